package usecase

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"time"

	"ReadingRoom/internal/domain"
)

type fakeSource struct {
	refs []domain.DocumentRef

	mu       sync.Mutex
	startURL string
}

func (f *fakeSource) Crawl(ctx context.Context, startURL string) iter.Seq[domain.DocumentRef] {
	f.mu.Lock()
	f.startURL = startURL
	f.mu.Unlock()
	return func(yield func(domain.DocumentRef) bool) {
		for _, ref := range f.refs {
			if ctx.Err() != nil {
				return
			}
			if !yield(ref) {
				return
			}
		}
	}
}

type extractResult struct {
	text string
	err  error
}

type fakeExtractor map[string]extractResult

func (f fakeExtractor) Extract(_ context.Context, url string) (string, error) {
	r, ok := f[url]
	if !ok {
		return "", domain.ErrFetch
	}
	return r.text, r.err
}

// echoGenerator tags each stage so the chain order is observable.
type echoGenerator struct {
	mu      sync.Mutex
	prompts []string
	failOn  string
}

func (g *echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.failOn != "" && strings.HasPrefix(prompt, g.failOn) {
		return "", errors.New("model unavailable")
	}
	switch {
	case strings.HasPrefix(prompt, reportPrompt):
		return "REPORT(" + strings.TrimPrefix(prompt, reportPrompt) + ")", nil
	case strings.HasPrefix(prompt, summaryPrompt):
		return "SUMMARY", nil
	case strings.HasPrefix(prompt, scriptPrompt):
		return "Scene one. Scene two.", nil
	}
	return "", errors.New("unexpected prompt")
}

type countingLimiter struct {
	mu    sync.Mutex
	calls int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return ctx.Err()
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.messages = append(n.messages, digest)
	return nil
}

type fakeImages struct {
	mu     sync.Mutex
	calls  int
	failAt int
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return "", errors.New("image backend down")
	}
	return "https://img.test/" + prompt, nil
}

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	body, ok := m[url]
	if !ok {
		return nil, domain.ErrFetch
	}
	return body, nil
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}
