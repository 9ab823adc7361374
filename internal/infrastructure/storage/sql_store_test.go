package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReadingRoom/internal/domain"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, DialectPostgres), mock
}

var existsQuery = regexp.QuoteMeta("SELECT 1 FROM documents WHERE url = $1 LIMIT 1")

func TestSQLStoreExists(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(existsQuery).
		WithArgs("https://example.test/a").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(existsQuery).
		WithArgs("https://example.test/b").
		WillReturnError(sql.ErrNoRows)

	ok, err := store.Exists(context.Background(), "https://example.test/a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(context.Background(), "https://example.test/b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSaveDocumentSkipsExisting(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(existsQuery).
		WithArgs("https://example.test/a").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	created, err := store.SaveDocument(context.Background(), domain.Document{URL: "https://example.test/a"})
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSaveDocumentInserts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	stamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return stamp }

	mock.ExpectQuery(existsQuery).
		WithArgs("https://example.test/a").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO documents .* ON CONFLICT \(url\) DO NOTHING`).
		WithArgs("https://example.test/a", "Title", "report", "summary", "script", domain.StatusPromptsGenerated, stamp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := store.SaveDocument(context.Background(), domain.Document{
		URL:         "https://example.test/a",
		Title:       "Title",
		Report:      "report",
		Summary:     "summary",
		VideoScript: "script",
		Status:      domain.StatusPromptsGenerated,
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSavePromptsNumbersFromOne(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO image_prompts .* ON CONFLICT \(document_url, prompt_index\) DO NOTHING`).
		WithArgs("u", 1, "first", "", "u", 2, "second", "").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.SavePrompts(context.Background(), "u", []string{"first", "second"}))
	require.NoError(t, store.SavePrompts(context.Background(), "u", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSetImageURLMissingPrompt(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE image_prompts SET image_url = \$1 WHERE document_url = \$2 AND prompt_index = \$3`).
		WithArgs("https://img.test/1.png", "u", 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetImageURL(context.Background(), "u", 7, "https://img.test/1.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSearchBuildsFilters(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	after := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stamp := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT url, title, report, summary, video_script, status, processed_at FROM documents WHERE \(\(strpos\(title, \$1\) > 0 OR strpos\(report, \$2\) > 0 OR strpos\(summary, \$3\) > 0\) AND processed_at > \$4\) ORDER BY processed_at, url`).
		WithArgs("radar", "radar", "radar", after).
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("u", "Radar study", "r", "s", "v", domain.StatusPromptsGenerated, stamp))

	docs, err := store.Search(context.Background(), domain.SearchCriteria{Keyword: "radar", After: after})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Radar study", docs[0].Title)
	assert.True(t, docs[0].ProcessedAt.Equal(stamp))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	stamp := time.Date(2025, 5, 10, 8, 30, 0, 0, time.UTC)
	created, err := store.SaveDocument(ctx, domain.Document{
		URL:         "https://example.test/doc",
		Title:       "Stargate report",
		Report:      "remote viewing",
		Status:      domain.StatusPromptsGenerated,
		ProcessedAt: stamp,
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.SaveDocument(ctx, domain.Document{URL: "https://example.test/doc", Title: "again"})
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, store.SavePrompts(ctx, "https://example.test/doc", []string{"a", "b", "c"}))
	require.NoError(t, store.SavePrompts(ctx, "https://example.test/doc", []string{"x", "y", "z"}))

	pending, err := store.PendingPrompts(ctx, "https://example.test/doc")
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "a", pending[0].Prompt)

	require.NoError(t, store.SetImageURL(ctx, "https://example.test/doc", 2, "https://img.test/2.png"))
	ready, err := store.ReadyImages(ctx, "https://example.test/doc")
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, 2, ready[0].Index)

	docs, err := store.Search(ctx, domain.SearchCriteria{
		Keyword: "remote",
		After:   stamp.Add(-time.Hour),
		Before:  stamp.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Stargate report", docs[0].Title)
	assert.True(t, docs[0].ProcessedAt.Equal(stamp))

	docs, err = store.Search(ctx, domain.SearchCriteria{After: stamp})
	require.NoError(t, err)
	assert.Empty(t, docs)

	for _, doc := range []domain.Document{
		{URL: "https://example.test/upper", Title: "STARGATE program"},
		{URL: "https://example.test/pct", Title: "budget cut 50 pct"},
		{URL: "https://example.test/axb", Title: "axb notes"},
	} {
		_, err = store.SaveDocument(ctx, doc)
		require.NoError(t, err)
	}
	for _, keyword := range []string{"stargate", "50%", "a_b"} {
		docs, err = store.Search(ctx, domain.SearchCriteria{Keyword: keyword})
		require.NoError(t, err)
		assert.Empty(t, docs, "keyword %q", keyword)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
}

func TestSearchKeywordIsLiteralAndCaseSensitive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sqlite, err := Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	require.NoError(t, sqlite.Migrate(ctx))
	memory := NewMemoryStore()

	titles := []string{"STARGATE program", "budget cut 50 pct", "axb notes", "rates at 50% and a_b"}
	for i, title := range titles {
		doc := domain.Document{URL: fmt.Sprintf("https://example.test/%d", i), Title: title}
		_, err := sqlite.SaveDocument(ctx, doc)
		require.NoError(t, err)
		_, err = memory.SaveDocument(ctx, doc)
		require.NoError(t, err)
	}

	cases := map[string][]string{
		"stargate": nil,
		"STARGATE": {"STARGATE program"},
		"50%":      {"rates at 50% and a_b"},
		"a_b":      {"rates at 50% and a_b"},
		"%":        {"rates at 50% and a_b"},
		"notes":    {"axb notes"},
	}
	for keyword, want := range cases {
		for name, store := range map[string]interface {
			Search(context.Context, domain.SearchCriteria) ([]domain.Document, error)
		}{"sqlite": sqlite, "memory": memory} {
			docs, err := store.Search(ctx, domain.SearchCriteria{Keyword: keyword})
			require.NoError(t, err)
			var got []string
			for _, d := range docs {
				got = append(got, d.Title)
			}
			assert.Equal(t, want, got, "%s store, keyword %q", name, keyword)
		}
	}
}
