package domain

import "time"

// DocumentRef is a single entry discovered on a search results page.
type DocumentRef struct {
	Title string
	URL   string
}

// Document is the persisted result of fully processing one source document.
type Document struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Report      string    `json:"report"`
	Summary     string    `json:"summary"`
	VideoScript string    `json:"video_script"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ImagePrompt is one of the per-document prompts driving image generation.
type ImagePrompt struct {
	DocumentURL string `json:"document_url"`
	Index       int    `json:"prompt_index"`
	Prompt      string `json:"prompt"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Content holds the output of the generation chain for one document.
type Content struct {
	Report      string
	Summary     string
	VideoScript string
}

// ProcessResult is what a caller sees for a single processed (or skipped) document.
type ProcessResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Report      string `json:"report"`
	Summary     string `json:"summary"`
	VideoScript string `json:"video_script"`
	Status      string `json:"status"`
}

// Processed reports whether the pipeline produced new content for the document.
func (r ProcessResult) Processed() bool {
	return r.Status == StatusPromptsGenerated
}

// SearchQuery carries the parameters of a reading-room search.
type SearchQuery struct {
	Keyword   string `json:"keyword"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SearchCriteria filters stored documents. Zero values disable a bound.
type SearchCriteria struct {
	Keyword string
	After   time.Time
	Before  time.Time
}

// Processing statuses recorded on results and documents.
const (
	StatusPromptsGenerated = "prompts generated"
	StatusAlreadyStored    = "skipped: already stored"
	StatusFetchFailed      = "skipped: fetch failed"
	StatusNoDownloadLink   = "skipped: no download link"
	StatusDownloadFailed   = "skipped: download failed"
	StatusGenerationFailed = "failed: generation"
	StatusPersistFailed    = "failed: persistence"
)
