package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/metrics"
	"ReadingRoom/internal/ports"
)

// ArchiveBuilder bundles a document's finished images into one zip.
type ArchiveBuilder struct {
	store   ports.Store
	fetcher ports.Fetcher
	logger  *slog.Logger
}

// NewArchiveBuilder wires the store and the image fetcher.
func NewArchiveBuilder(store ports.Store, fetcher ports.Fetcher, logger *slog.Logger) *ArchiveBuilder {
	return &ArchiveBuilder{store: store, fetcher: fetcher, logger: logger}
}

// Build returns zip bytes with one prompt_{index}.png entry per ready image, in
// store order. domain.ErrNoImages is returned when nothing is ready or no
// image could be fetched; domain.ErrMissingURL when documentURL is empty.
func (a *ArchiveBuilder) Build(ctx context.Context, documentURL string) ([]byte, error) {
	documentURL = strings.TrimSpace(documentURL)
	if documentURL == "" {
		return nil, domain.ErrMissingURL
	}

	ready, err := a.store.ReadyImages(ctx, documentURL)
	if err != nil {
		metrics.ObserveArchive(metrics.ResultError)
		return nil, fmt.Errorf("load ready images: %w", err)
	}
	if len(ready) == 0 {
		metrics.ObserveArchive(metrics.ResultNotFound)
		return nil, domain.ErrNoImages
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	written := 0

	for _, img := range ready {
		data, err := a.fetcher.Fetch(ctx, img.ImageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch images: %w", ctx.Err())
			}
			a.warn("image fetch failed", "document", documentURL, "index", img.Index, "error", err)
			continue
		}

		w, err := zw.Create(fmt.Sprintf("prompt_%d.png", img.Index))
		if err != nil {
			return nil, fmt.Errorf("create entry %d: %w", img.Index, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write entry %d: %w", img.Index, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	if written == 0 {
		metrics.ObserveArchive(metrics.ResultNotFound)
		return nil, domain.ErrNoImages
	}

	metrics.ObserveArchive(metrics.ResultOK)
	return buf.Bytes(), nil
}

func (a *ArchiveBuilder) warn(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
