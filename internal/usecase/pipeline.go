package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"ReadingRoom/internal/crawler"
	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/metrics"
	"ReadingRoom/internal/ports"
)

// DocumentSource yields documents discovered from a search URL.
type DocumentSource interface {
	Crawl(ctx context.Context, startURL string) iter.Seq[domain.DocumentRef]
}

// TextExtractor turns a document URL into raw text.
type TextExtractor interface {
	Extract(ctx context.Context, documentURL string) (string, error)
}

// ContentGenerator runs the report/summary/script chain.
type ContentGenerator interface {
	Run(ctx context.Context, text string) (domain.Content, error)
}

// Window is the creation-date range used by the scheduled crawl.
type Window struct {
	StartDate string
	EndDate   string
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source        DocumentSource
	Extractor     TextExtractor
	Content       ContentGenerator
	Store         ports.Store
	Limiter       ports.Limiter
	Notifier      ports.Notifier
	Logger        *slog.Logger
	SearchBaseURL string
	PromptCount   int
	DailyWindow   Window
	Now           func() time.Time
}

// Pipeline sequences discovery, extraction, generation, segmentation and persistence.
type Pipeline struct {
	source        DocumentSource
	extractor     TextExtractor
	content       ContentGenerator
	store         ports.Store
	limiter       ports.Limiter
	notifier      ports.Notifier
	logger        *slog.Logger
	searchBaseURL string
	promptCount   int
	dailyWindow   Window
	now           func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	promptCount := deps.PromptCount
	if promptCount <= 0 {
		promptCount = DefaultPromptCount
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:        deps.Source,
		extractor:     deps.Extractor,
		content:       deps.Content,
		store:         deps.Store,
		limiter:       deps.Limiter,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		searchBaseURL: deps.SearchBaseURL,
		promptCount:   promptCount,
		dailyWindow:   deps.DailyWindow,
		now:           now,
	}
}

// ProcessOne runs a single document through the pipeline. Documents already
// stored, or whose page, download link or file cannot be obtained, are skipped
// with an explanatory status and a nil error. Generation and persistence
// failures abort the document, persist nothing further and wrap
// domain.ErrProcessingFailed.
func (p *Pipeline) ProcessOne(ctx context.Context, title, documentURL string) (result domain.ProcessResult, err error) {
	documentURL = strings.TrimSpace(documentURL)
	if documentURL == "" {
		return domain.ProcessResult{}, domain.ErrMissingURL
	}
	if strings.TrimSpace(title) == "" {
		title = documentURL
	}

	result = domain.ProcessResult{Title: title, URL: documentURL}
	defer func() {
		metrics.ObserveDocument(result.Status)
	}()

	p.info("processing document", "url", documentURL)

	exists, err := p.store.Exists(ctx, documentURL)
	if err != nil {
		result.Status = domain.StatusPersistFailed
		return result, fmt.Errorf("%w: check existing %s: %w", domain.ErrProcessingFailed, documentURL, err)
	}
	if exists {
		result.Status = domain.StatusAlreadyStored
		p.debug("document already stored", "url", documentURL)
		return result, nil
	}

	text, err := p.extractor.Extract(ctx, documentURL)
	if err != nil {
		result.Status = skipStatus(err)
		p.warn("document skipped", "url", documentURL, "status", result.Status, "error", err)
		return result, nil
	}

	content, err := p.content.Run(ctx, text)
	if err != nil {
		result.Status = domain.StatusGenerationFailed
		return result, fmt.Errorf("%w: %s: %w", domain.ErrProcessingFailed, documentURL, err)
	}

	prompts := SegmentPrompts(content.VideoScript, p.promptCount)
	if err := p.store.SavePrompts(ctx, documentURL, prompts); err != nil {
		result.Status = domain.StatusPersistFailed
		return result, fmt.Errorf("%w: save prompts %s: %w", domain.ErrProcessingFailed, documentURL, err)
	}

	created, err := p.store.SaveDocument(ctx, domain.Document{
		URL:         documentURL,
		Title:       title,
		Report:      content.Report,
		Summary:     content.Summary,
		VideoScript: content.VideoScript,
		Status:      domain.StatusPromptsGenerated,
		ProcessedAt: p.now().UTC(),
	})
	if err != nil {
		result.Status = domain.StatusPersistFailed
		return result, fmt.Errorf("%w: save document %s: %w", domain.ErrProcessingFailed, documentURL, err)
	}
	if !created {
		p.debug("document stored by a concurrent run", "url", documentURL)
	}

	result.Report = content.Report
	result.Summary = content.Summary
	result.VideoScript = content.VideoScript
	result.Status = domain.StatusPromptsGenerated
	return result, nil
}

// RunSearch crawls the search built from query and processes every discovered
// document, pacing them through the limiter. One entry is returned per
// document, in discovery order.
func (p *Pipeline) RunSearch(ctx context.Context, query domain.SearchQuery) ([]domain.ProcessResult, error) {
	if p.source == nil {
		return nil, nil
	}

	startURL := crawler.BuildSearchURL(p.searchBaseURL, query.Keyword, query.StartDate, query.EndDate)
	p.info("crawl started", "url", startURL)

	done := metrics.CrawlStarted()
	defer done()

	var results []domain.ProcessResult
	for ref := range p.source.Crawl(ctx, startURL) {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return results, fmt.Errorf("rate limit: %w", err)
			}
		}

		res, err := p.ProcessOne(ctx, ref.Title, ref.URL)
		if err != nil {
			p.logError("document failed", "url", ref.URL, "status", res.Status, "error", err)
		}
		if res.Status == "" {
			res = domain.ProcessResult{Title: ref.Title, URL: ref.URL, Status: domain.StatusFetchFailed}
		}
		results = append(results, res)
	}

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("crawl interrupted: %w", err)
	}

	p.info("crawl finished", "url", startURL, "documents", len(results))
	return results, nil
}

// DailyUpdate crawls the configured window with no keyword and publishes a digest.
func (p *Pipeline) DailyUpdate(ctx context.Context, trigger time.Time) error {
	p.info("running daily update", "trigger", trigger.Format(time.RFC3339))

	results, err := p.RunSearch(ctx, domain.SearchQuery{
		StartDate: p.dailyWindow.StartDate,
		EndDate:   p.dailyWindow.EndDate,
	})
	if err != nil {
		return fmt.Errorf("daily crawl: %w", err)
	}

	if p.notifier == nil {
		return nil
	}

	message := buildDigestMessage(results)
	if message == "" {
		return nil
	}
	if err := p.notifier.PublishDigest(ctx, message); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}
	return nil
}

func skipStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoDownloadLink):
		return domain.StatusNoDownloadLink
	case errors.Is(err, domain.ErrDownload):
		return domain.StatusDownloadFailed
	default:
		return domain.StatusFetchFailed
	}
}

// buildDigestMessage lists processed documents under a headline and a count
// of every other outcome. It returns "" when nothing was processed.
func buildDigestMessage(results []domain.ProcessResult) string {
	var entries strings.Builder
	processed := 0
	others := make(map[string]int)
	for _, r := range results {
		if !r.Processed() {
			others[r.Status]++
			continue
		}
		processed++
		fmt.Fprintf(&entries, "- %s\n%s\n\n", r.Title, r.URL)
	}
	if processed == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Processed %d of %d documents\n", processed, len(results))
	for _, status := range slices.Sorted(maps.Keys(others)) {
		fmt.Fprintf(&b, "%s: %d\n", status, others[status])
	}
	b.WriteString("\n")
	b.WriteString(entries.String())
	return b.String()
}

func (p *Pipeline) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) logError(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
