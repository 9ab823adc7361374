package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/ports"
)

// DocumentExtractor resolves a document's downloadable file and extracts its text.
type DocumentExtractor struct {
	fetcher  ports.Fetcher
	parser   ports.PageParser
	registry *Registry
	logger   *slog.Logger
}

// NewDocumentExtractor wires the collaborators; a nil registry uses DefaultRegistry.
func NewDocumentExtractor(fetcher ports.Fetcher, parser ports.PageParser, registry *Registry, logger *slog.Logger) *DocumentExtractor {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &DocumentExtractor{
		fetcher:  fetcher,
		parser:   parser,
		registry: registry,
		logger:   logger,
	}
}

// Extract returns the document text. A missing page, download link or file is
// reported with domain.ErrFetch, domain.ErrNoDownloadLink or domain.ErrDownload.
// Unknown formats and unreadable files produce empty text without error.
func (e *DocumentExtractor) Extract(ctx context.Context, documentURL string) (string, error) {
	body, err := e.fetcher.Fetch(ctx, documentURL)
	if err != nil {
		return "", fmt.Errorf("document page: %w", err)
	}

	page, err := e.parser.Parse(documentURL, body)
	if err != nil {
		return "", fmt.Errorf("%w: parse document page: %v", domain.ErrFetch, err)
	}

	fileURL, ok := page.DownloadLink()
	if !ok {
		return "", fmt.Errorf("%s: %w", documentURL, domain.ErrNoDownloadLink)
	}

	content, err := e.fetcher.Fetch(ctx, fileURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDownload, err)
	}

	suffix := fileSuffix(fileURL)
	strategy, ok := e.registry.Resolve(suffix)
	if !ok {
		e.debug("unsupported format", "url", fileURL, "suffix", suffix)
		return "", nil
	}

	text, err := strategy.ExtractText(ctx, content)
	if err != nil {
		e.warn("text extraction failed", "url", fileURL, "suffix", suffix, "error", err)
		return "", nil
	}

	e.debug("text extracted", "url", fileURL, "chars", len(text))
	return text, nil
}

func fileSuffix(fileURL string) string {
	p := fileURL
	if u, err := url.Parse(fileURL); err == nil {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}

func (e *DocumentExtractor) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *DocumentExtractor) warn(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
