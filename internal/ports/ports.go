package ports

import (
	"context"
	"time"

	"ReadingRoom/internal/domain"
)

// Fetcher retrieves raw bytes for a URL. Transport failures and non-success
// statuses are reported as errors wrapping domain.ErrFetch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Page is parsed reading-room markup.
type Page interface {
	Documents() []domain.DocumentRef
	NextPageLink() (string, bool)
	DownloadLink() (string, bool)
}

// PageParser turns fetched markup into a Page. Missing structure yields empty
// results; only unreadable markup is an error.
type PageParser interface {
	Parse(pageURL string, body []byte) (Page, error)
}

// TextGenerator is an opaque text-generation capability (e.g., ChatGPT).
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator returns the URL of an image rendered for the prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Store owns persistence of documents and their image prompts.
type Store interface {
	Exists(ctx context.Context, url string) (bool, error)
	SaveDocument(ctx context.Context, doc domain.Document) (bool, error)
	SavePrompts(ctx context.Context, documentURL string, prompts []string) error
	Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Document, error)
	ReadyImages(ctx context.Context, documentURL string) ([]domain.ImagePrompt, error)
	PendingPrompts(ctx context.Context, documentURL string) ([]domain.ImagePrompt, error)
	SetImageURL(ctx context.Context, documentURL string, index int, imageURL string) error
}

// Limiter paces document-level operations.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Notifier streams crawl digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
