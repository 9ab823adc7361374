package usecase

import (
	"context"
	"errors"
	"testing"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/infrastructure/storage"
)

func TestIllustrateFillsPendingPrompts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.SavePrompts(ctx, docURL, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("SavePrompts: %v", err)
	}
	if err := store.SetImageURL(ctx, docURL, 2, "https://img.test/existing"); err != nil {
		t.Fatalf("SetImageURL: %v", err)
	}

	images := &fakeImages{}
	limiter := &countingLimiter{}
	n, err := NewIllustrator(store, images, limiter, nil).Illustrate(ctx, docURL)
	if err != nil {
		t.Fatalf("Illustrate error: %v", err)
	}
	if n != 2 || images.calls != 2 || limiter.calls != 2 {
		t.Fatalf("expected 2 generations, got n=%d calls=%d waits=%d", n, images.calls, limiter.calls)
	}

	ready, _ := store.ReadyImages(ctx, docURL)
	if len(ready) != 3 || ready[1].ImageURL != "https://img.test/existing" || ready[2].ImageURL != "https://img.test/c" {
		t.Fatalf("unexpected ready images %+v", ready)
	}
}

func TestIllustrateStopsOnGeneratorFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.SavePrompts(ctx, docURL, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("SavePrompts: %v", err)
	}

	n, err := NewIllustrator(store, &fakeImages{failAt: 2}, nil, nil).Illustrate(ctx, docURL)
	if err == nil || n != 1 {
		t.Fatalf("expected failure after one image, got n=%d err=%v", n, err)
	}
	pending, _ := store.PendingPrompts(ctx, docURL)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending prompts, got %d", len(pending))
	}
}

func TestIllustrateRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewIllustrator(storage.NewMemoryStore(), &fakeImages{}, nil, nil).Illustrate(context.Background(), "")
	if !errors.Is(err, domain.ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
}
