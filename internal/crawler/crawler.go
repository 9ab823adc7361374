package crawler

import (
	"context"
	"iter"
	"log/slog"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/metrics"
	"ReadingRoom/internal/ports"
)

const defaultMaxPages = 500

// PageCrawler walks a search result chain via "next page" links.
type PageCrawler struct {
	fetcher  ports.Fetcher
	parser   ports.PageParser
	maxPages int
	logger   *slog.Logger
}

// New wires fetch and parse capabilities; maxPages <= 0 defaults to 500.
func New(fetcher ports.Fetcher, parser ports.PageParser, maxPages int, logger *slog.Logger) *PageCrawler {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &PageCrawler{
		fetcher:  fetcher,
		parser:   parser,
		maxPages: maxPages,
		logger:   logger,
	}
}

// Crawl lazily yields every document reachable from startURL. Fetch and parse
// failures end the sequence; they are logged, not returned. A page link seen
// twice or the page cap also ends it. Each call starts fresh.
func (c *PageCrawler) Crawl(ctx context.Context, startURL string) iter.Seq[domain.DocumentRef] {
	return func(yield func(domain.DocumentRef) bool) {
		visited := map[string]struct{}{}
		seen := map[string]struct{}{}
		current := startURL

		for current != "" {
			if ctx.Err() != nil {
				c.debug("crawl cancelled", "url", current)
				return
			}
			if _, ok := visited[current]; ok {
				c.warn("pagination cycle detected", "url", current)
				return
			}
			if len(visited) >= c.maxPages {
				c.warn("page cap reached", "max_pages", c.maxPages, "url", current)
				return
			}
			visited[current] = struct{}{}

			page, ok := c.load(ctx, current)
			if !ok {
				return
			}

			docs := page.Documents()
			c.debug("page parsed", "url", current, "documents", len(docs))
			for _, doc := range docs {
				if _, dup := seen[doc.URL]; dup {
					continue
				}
				seen[doc.URL] = struct{}{}
				if !yield(doc) {
					return
				}
			}

			next, ok := page.NextPageLink()
			if !ok {
				return
			}
			current = next
		}
	}
}

// Collect drains a crawl into a slice.
func (c *PageCrawler) Collect(ctx context.Context, startURL string) []domain.DocumentRef {
	var docs []domain.DocumentRef
	for doc := range c.Crawl(ctx, startURL) {
		docs = append(docs, doc)
	}
	return docs
}

func (c *PageCrawler) load(ctx context.Context, pageURL string) (ports.Page, bool) {
	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		metrics.ObservePage(metrics.ResultError)
		c.logError("fetch page", "url", pageURL, "error", err)
		return nil, false
	}

	page, err := c.parser.Parse(pageURL, body)
	if err != nil {
		metrics.ObservePage(metrics.ResultError)
		c.logError("parse page", "url", pageURL, "error", err)
		return nil, false
	}

	metrics.ObservePage(metrics.ResultOK)
	return page, true
}

func (c *PageCrawler) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *PageCrawler) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *PageCrawler) logError(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
