package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/metrics"
	"ReadingRoom/internal/ports"
)

// Illustrator fills image URLs for a document's pending prompts.
type Illustrator struct {
	store     ports.Store
	generator ports.ImageGenerator
	limiter   ports.Limiter
	logger    *slog.Logger
}

// NewIllustrator wires the image generator; limiter may be nil.
func NewIllustrator(store ports.Store, generator ports.ImageGenerator, limiter ports.Limiter, logger *slog.Logger) *Illustrator {
	return &Illustrator{store: store, generator: generator, limiter: limiter, logger: logger}
}

// Illustrate generates an image for every prompt without one and returns how
// many were stored. A generation failure stops the run; prompts already
// illustrated keep their URLs.
func (i *Illustrator) Illustrate(ctx context.Context, documentURL string) (int, error) {
	documentURL = strings.TrimSpace(documentURL)
	if documentURL == "" {
		return 0, domain.ErrMissingURL
	}
	if i.generator == nil {
		return 0, fmt.Errorf("image generator is not configured")
	}

	pending, err := i.store.PendingPrompts(ctx, documentURL)
	if err != nil {
		return 0, fmt.Errorf("load pending prompts: %w", err)
	}

	generated := 0
	for _, prompt := range pending {
		if i.limiter != nil {
			if err := i.limiter.Wait(ctx); err != nil {
				return generated, fmt.Errorf("rate limit: %w", err)
			}
		}

		imageURL, err := i.generator.GenerateImage(ctx, prompt.Prompt)
		if err != nil {
			metrics.ObserveImage(metrics.ResultError)
			return generated, fmt.Errorf("generate image %d: %w", prompt.Index, err)
		}
		metrics.ObserveImage(metrics.ResultOK)

		if err := i.store.SetImageURL(ctx, documentURL, prompt.Index, imageURL); err != nil {
			return generated, fmt.Errorf("store image %d: %w", prompt.Index, err)
		}
		generated++
	}

	if i.logger != nil {
		i.logger.Info("prompts illustrated", "document", documentURL, "generated", generated)
	}
	return generated, nil
}
