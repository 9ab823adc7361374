package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/ports"
)

// MemoryStore keeps documents and prompts in process.
type MemoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	documents []domain.Document
	byURL     map[string]int
	prompts   map[string][]domain.ImagePrompt
}

var _ ports.Store = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		byURL:   map[string]int{},
		prompts: map[string][]domain.ImagePrompt{},
	}
}

// Exists reports whether a document with url is stored.
func (m *MemoryStore) Exists(_ context.Context, url string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byURL[url]
	return ok, nil
}

// SaveDocument stores doc unless its URL is already present. A zero
// ProcessedAt is stamped with the current time.
func (m *MemoryStore) SaveDocument(_ context.Context, doc domain.Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byURL[doc.URL]; ok {
		return false, nil
	}
	if doc.ProcessedAt.IsZero() {
		doc.ProcessedAt = m.now()
	}
	doc.ProcessedAt = doc.ProcessedAt.UTC()
	m.byURL[doc.URL] = len(m.documents)
	m.documents = append(m.documents, doc)
	return true, nil
}

// SavePrompts appends prompts with indices from 1; an existing
// (document, index) pair is left untouched.
func (m *MemoryStore) SavePrompts(_ context.Context, documentURL string, prompts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.prompts[documentURL]
	have := make(map[int]struct{}, len(existing))
	for _, p := range existing {
		have[p.Index] = struct{}{}
	}

	for i, text := range prompts {
		index := i + 1
		if _, dup := have[index]; dup {
			continue
		}
		existing = append(existing, domain.ImagePrompt{
			DocumentURL: documentURL,
			Index:       index,
			Prompt:      text,
		})
	}
	m.prompts[documentURL] = existing
	return nil
}

// Search matches keyword in title, report or summary and bounds processed_at.
func (m *MemoryStore) Search(_ context.Context, criteria domain.SearchCriteria) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Document
	for _, doc := range m.documents {
		if criteria.Keyword != "" &&
			!strings.Contains(doc.Title, criteria.Keyword) &&
			!strings.Contains(doc.Report, criteria.Keyword) &&
			!strings.Contains(doc.Summary, criteria.Keyword) {
			continue
		}
		if !criteria.After.IsZero() && !doc.ProcessedAt.After(criteria.After) {
			continue
		}
		if !criteria.Before.IsZero() && !doc.ProcessedAt.Before(criteria.Before) {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

// ReadyImages returns prompts with an image URL, ordered by index.
func (m *MemoryStore) ReadyImages(_ context.Context, documentURL string) ([]domain.ImagePrompt, error) {
	return m.filterPrompts(documentURL, func(p domain.ImagePrompt) bool { return p.ImageURL != "" }), nil
}

// PendingPrompts returns prompts still waiting for an image, ordered by index.
func (m *MemoryStore) PendingPrompts(_ context.Context, documentURL string) ([]domain.ImagePrompt, error) {
	return m.filterPrompts(documentURL, func(p domain.ImagePrompt) bool { return p.ImageURL == "" }), nil
}

// SetImageURL records the generated image for one prompt.
func (m *MemoryStore) SetImageURL(_ context.Context, documentURL string, index int, imageURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prompts := m.prompts[documentURL]
	for i := range prompts {
		if prompts[i].Index == index {
			prompts[i].ImageURL = imageURL
			return nil
		}
	}
	return fmt.Errorf("prompt %d of %s not found", index, documentURL)
}

// PromptCount reports how many prompts are stored for documentURL.
func (m *MemoryStore) PromptCount(documentURL string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.prompts[documentURL])
}

// DocumentCount reports how many documents are stored.
func (m *MemoryStore) DocumentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents)
}

func (m *MemoryStore) filterPrompts(documentURL string, keep func(domain.ImagePrompt) bool) []domain.ImagePrompt {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.ImagePrompt
	for _, p := range m.prompts[documentURL] {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
