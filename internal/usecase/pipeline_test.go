package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/infrastructure/storage"
)

const docURL = "https://example.test/readingroom/document/1"

func newTestPipeline(store *storage.MemoryStore, extractor TextExtractor, gen *echoGenerator) *Pipeline {
	return NewPipeline(PipelineDeps{
		Extractor:   extractor,
		Content:     NewContentPipeline(gen),
		Store:       store,
		PromptCount: 5,
		Now:         fixedClock,
	})
}

func TestProcessOneStoresDocumentAndPrompts(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	p := newTestPipeline(store, fakeExtractor{docURL: {text: "declassified"}}, &echoGenerator{})

	res, err := p.ProcessOne(context.Background(), "Memo", docURL)
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if res.Status != domain.StatusPromptsGenerated || res.Report != "REPORT(declassified)" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if store.DocumentCount() != 1 || store.PromptCount(docURL) != 5 {
		t.Fatalf("expected 1 document and 5 prompts, got %d and %d", store.DocumentCount(), store.PromptCount(docURL))
	}

	docs, _ := store.Search(context.Background(), domain.SearchCriteria{})
	if !docs[0].ProcessedAt.Equal(fixedClock()) || docs[0].Status != domain.StatusPromptsGenerated {
		t.Fatalf("unexpected stored document: %+v", docs[0])
	}
}

func TestProcessOneSkipsWithoutDownloadLink(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	gen := &echoGenerator{}
	p := newTestPipeline(store, fakeExtractor{docURL: {err: domain.ErrNoDownloadLink}}, gen)

	res, err := p.ProcessOne(context.Background(), "Memo", docURL)
	if err != nil {
		t.Fatalf("skip must not be an error: %v", err)
	}
	if res.Status != domain.StatusNoDownloadLink {
		t.Fatalf("unexpected status %q", res.Status)
	}
	if store.DocumentCount() != 0 || store.PromptCount(docURL) != 0 || len(gen.prompts) != 0 {
		t.Fatalf("nothing may be generated or stored for a skipped document")
	}
}

func TestProcessOneSkipStatuses(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		want string
	}{
		"fetch":    {err: domain.ErrFetch, want: domain.StatusFetchFailed},
		"download": {err: domain.ErrDownload, want: domain.StatusDownloadFailed},
		"link":     {err: domain.ErrNoDownloadLink, want: domain.StatusNoDownloadLink},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p := newTestPipeline(storage.NewMemoryStore(), fakeExtractor{docURL: {err: tc.err}}, &echoGenerator{})
			res, err := p.ProcessOne(context.Background(), "", docURL)
			if err != nil || res.Status != tc.want {
				t.Fatalf("got status %q err %v, want %q", res.Status, err, tc.want)
			}
			if res.Title != docURL {
				t.Fatalf("empty title should fall back to the url, got %q", res.Title)
			}
		})
	}
}

func TestProcessOneAlreadyStored(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	gen := &echoGenerator{}
	p := newTestPipeline(store, fakeExtractor{docURL: {text: "text"}}, gen)

	if _, err := p.ProcessOne(context.Background(), "Memo", docURL); err != nil {
		t.Fatalf("first run: %v", err)
	}
	calls := len(gen.prompts)

	res, err := p.ProcessOne(context.Background(), "Memo", docURL)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Status != domain.StatusAlreadyStored {
		t.Fatalf("unexpected status %q", res.Status)
	}
	if store.DocumentCount() != 1 || store.PromptCount(docURL) != 5 || len(gen.prompts) != calls {
		t.Fatalf("second run must not generate or store anything")
	}
}

func TestProcessOneGenerationFailurePersistsNothing(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	p := newTestPipeline(store, fakeExtractor{docURL: {text: "text"}}, &echoGenerator{failOn: scriptPrompt})

	res, err := p.ProcessOne(context.Background(), "Memo", docURL)
	if !errors.Is(err, domain.ErrProcessingFailed) || !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected processing failure wrapping generation error, got %v", err)
	}
	if res.Status != domain.StatusGenerationFailed {
		t.Fatalf("unexpected status %q", res.Status)
	}
	if store.DocumentCount() != 0 || store.PromptCount(docURL) != 0 {
		t.Fatalf("failed generation must not persist")
	}
}

func TestProcessOneRequiresURL(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(storage.NewMemoryStore(), fakeExtractor{}, &echoGenerator{})
	if _, err := p.ProcessOne(context.Background(), "x", "  "); !errors.Is(err, domain.ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
}

func TestRunSearchProcessesEveryDocument(t *testing.T) {
	t.Parallel()

	source := &fakeSource{refs: []domain.DocumentRef{
		{Title: "A", URL: "https://example.test/a"},
		{Title: "B", URL: "https://example.test/b"},
		{Title: "C", URL: "https://example.test/c"},
	}}
	limiter := &countingLimiter{}
	store := storage.NewMemoryStore()
	p := NewPipeline(PipelineDeps{
		Source: source,
		Extractor: fakeExtractor{
			"https://example.test/a": {text: "alpha"},
			"https://example.test/b": {err: domain.ErrNoDownloadLink},
			"https://example.test/c": {text: "gamma"},
		},
		Content:       NewContentPipeline(&echoGenerator{}),
		Store:         store,
		Limiter:       limiter,
		SearchBaseURL: "https://www.cia.gov",
		PromptCount:   2,
		Now:           fixedClock,
	})

	results, err := p.RunSearch(context.Background(), domain.SearchQuery{Keyword: "ufo", StartDate: "2020-01-01", EndDate: "2021-01-01"})
	if err != nil {
		t.Fatalf("RunSearch error: %v", err)
	}

	wantStatuses := []string{domain.StatusPromptsGenerated, domain.StatusNoDownloadLink, domain.StatusPromptsGenerated}
	if len(results) != len(wantStatuses) {
		t.Fatalf("expected %d results, got %d", len(wantStatuses), len(results))
	}
	for i, want := range wantStatuses {
		if results[i].Status != want {
			t.Fatalf("result %d: status %q want %q", i, results[i].Status, want)
		}
	}
	if results[1].Report != "" {
		t.Fatalf("skipped entry must carry no content")
	}
	if limiter.calls != 3 {
		t.Fatalf("expected a limiter wait per document, got %d", limiter.calls)
	}
	if store.DocumentCount() != 2 {
		t.Fatalf("expected 2 stored documents, got %d", store.DocumentCount())
	}
	if !strings.Contains(source.startURL, "/readingroom/search/site/ufo") || !strings.Contains(source.startURL, "2020-01-01T00%3A00%3A00Z") {
		t.Fatalf("unexpected start url %s", source.startURL)
	}
}

func TestRunSearchCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(PipelineDeps{
		Source:    &fakeSource{refs: []domain.DocumentRef{{Title: "A", URL: "https://example.test/a"}}},
		Extractor: fakeExtractor{},
		Content:   NewContentPipeline(&echoGenerator{}),
		Store:     storage.NewMemoryStore(),
	})

	if _, err := p.RunSearch(ctx, domain.SearchQuery{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDailyUpdatePublishesDigest(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	source := &fakeSource{refs: []domain.DocumentRef{
		{Title: "A", URL: "https://example.test/a"},
		{Title: "B", URL: "https://example.test/b"},
	}}
	p := NewPipeline(PipelineDeps{
		Source:        source,
		Extractor:     fakeExtractor{"https://example.test/a": {text: "alpha"}},
		Content:       NewContentPipeline(&echoGenerator{}),
		Store:         storage.NewMemoryStore(),
		Notifier:      notifier,
		SearchBaseURL: "https://www.cia.gov",
		DailyWindow:   Window{StartDate: "2025-01-01", EndDate: "2026-01-01"},
	})

	if err := p.DailyUpdate(context.Background(), fixedClock()); err != nil {
		t.Fatalf("DailyUpdate error: %v", err)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one digest, got %d", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if !strings.HasPrefix(msg, "Processed 1 of 2 documents") || !strings.Contains(msg, "https://example.test/a") {
		t.Fatalf("unexpected digest %q", msg)
	}
	if strings.Contains(source.startURL, "/site/") {
		t.Fatalf("daily crawl must not carry a keyword: %s", source.startURL)
	}
}

func TestBuildDigestMessageCountsOutcomes(t *testing.T) {
	t.Parallel()

	msg := buildDigestMessage([]domain.ProcessResult{
		{Title: "A", URL: "https://example.test/a", Status: domain.StatusPromptsGenerated},
		{Title: "B", URL: "https://example.test/b", Status: domain.StatusNoDownloadLink},
		{Title: "C", URL: "https://example.test/c", Status: domain.StatusAlreadyStored},
		{Title: "D", URL: "https://example.test/d", Status: domain.StatusAlreadyStored},
		{Title: "E", URL: "https://example.test/e", Status: domain.StatusPromptsGenerated},
	})

	want := "Processed 2 of 5 documents\n" +
		"skipped: already stored: 2\n" +
		"skipped: no download link: 1\n\n" +
		"- A\nhttps://example.test/a\n\n" +
		"- E\nhttps://example.test/e\n\n"
	if msg != want {
		t.Fatalf("unexpected digest:\n%s", msg)
	}
	if buildDigestMessage([]domain.ProcessResult{{Status: domain.StatusFetchFailed}}) != "" {
		t.Fatalf("digest without processed documents must be empty")
	}
}

func TestDailyUpdateWithoutProcessedDocumentsStaysQuiet(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	p := NewPipeline(PipelineDeps{
		Source:    &fakeSource{refs: []domain.DocumentRef{{Title: "A", URL: "https://example.test/a"}}},
		Extractor: fakeExtractor{},
		Content:   NewContentPipeline(&echoGenerator{}),
		Store:     storage.NewMemoryStore(),
		Notifier:  notifier,
	})

	if err := p.DailyUpdate(context.Background(), fixedClock()); err != nil {
		t.Fatalf("DailyUpdate error: %v", err)
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("no digest expected, got %v", notifier.messages)
	}
}
