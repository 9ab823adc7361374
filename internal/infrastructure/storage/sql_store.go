package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"ReadingRoom/internal/domain"
	"ReadingRoom/internal/ports"
)

// Dialect selects placeholder style and schema types.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const (
	documentsTable = "documents"
	promptsTable   = "image_prompts"
)

var documentColumns = []string{"url", "title", "report", "summary", "video_script", "status", "processed_at"}

var promptColumns = []string{"document_url", "prompt_index", "prompt", "image_url"}

// SQLStore persists documents and prompts through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.Store = (*SQLStore)(nil)

// Open connects to driver ("postgres" or "sqlite") and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	dialect := Dialect(driver)
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if dialect == DialectSQLite {
		// :memory: databases are per connection
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return NewSQLStore(db, dialect), nil
}

// NewSQLStore wraps an existing connection pool.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	sb := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if dialect == DialectPostgres {
		sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &SQLStore{db: db, dialect: dialect, sb: sb, now: time.Now}
}

// Close releases the pool.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the tables when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	tsType := "TIMESTAMP"
	if s.dialect == DialectPostgres {
		tsType = "TIMESTAMPTZ"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	report TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	video_script TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	processed_at %s NOT NULL
)`, documentsTable, tsType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	document_url TEXT NOT NULL,
	prompt_index INTEGER NOT NULL,
	prompt TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (document_url, prompt_index)
)`, promptsTable),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Exists runs an exact-match lookup on documents.url.
func (s *SQLStore) Exists(ctx context.Context, url string) (bool, error) {
	query, args, err := s.sb.Select("1").From(documentsTable).Where(sq.Eq{"url": url}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return true, nil
}

// SaveDocument inserts doc unless its URL is present. The existence check and
// the insert are separate statements; the unique key absorbs a racing insert.
func (s *SQLStore) SaveDocument(ctx context.Context, doc domain.Document) (bool, error) {
	exists, err := s.Exists(ctx, doc.URL)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	processedAt := doc.ProcessedAt
	if processedAt.IsZero() {
		processedAt = s.now()
	}

	query, args, err := s.sb.Insert(documentsTable).
		Columns(documentColumns...).
		Values(doc.URL, doc.Title, doc.Report, doc.Summary, doc.VideoScript, doc.Status, processedAt.UTC()).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert document: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SavePrompts inserts one row per prompt with indices from 1. Rows for an
// existing (document_url, prompt_index) pair are skipped.
func (s *SQLStore) SavePrompts(ctx context.Context, documentURL string, prompts []string) error {
	if len(prompts) == 0 {
		return nil
	}

	insert := s.sb.Insert(promptsTable).Columns(promptColumns...)
	for i, prompt := range prompts {
		insert = insert.Values(documentURL, i+1, prompt, "")
	}

	query, args, err := insert.Suffix("ON CONFLICT (document_url, prompt_index) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build insert prompts: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert prompts: %w", err)
	}
	return nil
}

// Search ORs case-sensitive keyword containment across title, report and
// summary and ANDs the processed_at bounds. Empty criteria return every document.
func (s *SQLStore) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Document, error) {
	conds := sq.And{}
	if criteria.Keyword != "" {
		conds = append(conds, sq.Or{
			s.contains("title", criteria.Keyword),
			s.contains("report", criteria.Keyword),
			s.contains("summary", criteria.Keyword),
		})
	}
	if !criteria.After.IsZero() {
		conds = append(conds, sq.Gt{"processed_at": criteria.After.UTC()})
	}
	if !criteria.Before.IsZero() {
		conds = append(conds, sq.Lt{"processed_at": criteria.Before.UTC()})
	}

	builder := s.sb.Select(documentColumns...).From(documentsTable)
	if len(conds) > 0 {
		builder = builder.Where(conds)
	}
	query, args, err := builder.OrderBy("processed_at", "url").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(
			&doc.URL,
			&doc.Title,
			&doc.Report,
			&doc.Summary,
			&doc.VideoScript,
			&doc.Status,
			timeColumn{&doc.ProcessedAt},
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return docs, nil
}

// contains matches a literal, case-sensitive substring. LIKE would treat % and _
// as wildcards and ignores ASCII case on sqlite.
func (s *SQLStore) contains(column, keyword string) sq.Sqlizer {
	fn := "instr(%s, ?) > 0"
	if s.dialect == DialectPostgres {
		fn = "strpos(%s, ?) > 0"
	}
	return sq.Expr(fmt.Sprintf(fn, column), keyword)
}

// ReadyImages returns prompts with a non-empty image URL, ordered by index.
func (s *SQLStore) ReadyImages(ctx context.Context, documentURL string) ([]domain.ImagePrompt, error) {
	return s.queryPrompts(ctx, sq.And{
		sq.Eq{"document_url": documentURL},
		sq.NotEq{"image_url": ""},
	})
}

// PendingPrompts returns prompts still waiting for an image, ordered by index.
func (s *SQLStore) PendingPrompts(ctx context.Context, documentURL string) ([]domain.ImagePrompt, error) {
	return s.queryPrompts(ctx, sq.And{
		sq.Eq{"document_url": documentURL},
		sq.Eq{"image_url": ""},
	})
}

// SetImageURL records the generated image for one prompt.
func (s *SQLStore) SetImageURL(ctx context.Context, documentURL string, index int, imageURL string) error {
	query, args, err := s.sb.Update(promptsTable).
		Set("image_url", imageURL).
		Where(sq.Eq{"document_url": documentURL}).
		Where(sq.Eq{"prompt_index": index}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update prompt: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update prompt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("prompt %d of %s not found", index, documentURL)
	}
	return nil
}

func (s *SQLStore) queryPrompts(ctx context.Context, where sq.Sqlizer) ([]domain.ImagePrompt, error) {
	query, args, err := s.sb.Select(promptColumns...).
		From(promptsTable).
		Where(where).
		OrderBy("prompt_index").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build prompts query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}
	defer rows.Close()

	var prompts []domain.ImagePrompt
	for rows.Next() {
		var p domain.ImagePrompt
		if err := rows.Scan(&p.DocumentURL, &p.Index, &p.Prompt, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return prompts, nil
}

// timeColumn scans timestamps stored natively or as text.
type timeColumn struct {
	dst *time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func (c timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.dst = time.Time{}
		return nil
	case time.Time:
		*c.dst = v.UTC()
		return nil
	case []byte:
		return c.parse(string(v))
	case string:
		return c.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (c timeColumn) parse(value string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			*c.dst = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", value)
}
