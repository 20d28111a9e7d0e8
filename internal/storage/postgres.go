package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/econodata/noticias-harvester/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id           BIGSERIAL PRIMARY KEY,
	source_id    TEXT        NOT NULL,
	title        TEXT        NOT NULL,
	url          TEXT        NOT NULL,
	image_url    TEXT,
	published_at TIMESTAMPTZ NOT NULL,
	fetched_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source_id, url)
);
CREATE INDEX IF NOT EXISTS articles_source_published_idx ON articles (source_id, published_at DESC);
CREATE INDEX IF NOT EXISTS articles_source_title_idx ON articles (source_id, title);
CREATE INDEX IF NOT EXISTS articles_published_idx ON articles (published_at DESC);
`

const insertArticleSQL = `
INSERT INTO articles (source_id, title, url, image_url, published_at)
VALUES (:source_id, :title, :url, :image_url, :published_at)
ON CONFLICT (source_id, url) DO NOTHING`

// PostgresStore keeps articles in one table keyed by (source_id, url).
type PostgresStore struct {
	db *sqlx.DB
}

type articleRow struct {
	SourceID    string         `db:"source_id"`
	Title       string         `db:"title"`
	URL         string         `db:"url"`
	ImageURL    sql.NullString `db:"image_url"`
	PublishedAt time.Time      `db:"published_at"`
}

func toRow(a domain.Article) articleRow {
	a = normalizeArticle(a)
	return articleRow{
		SourceID:    a.SourceID,
		Title:       a.Title,
		URL:         a.URL,
		ImageURL:    sql.NullString{String: a.ImageURL, Valid: a.ImageURL != ""},
		PublishedAt: a.PublishedAt,
	}
}

func (r articleRow) article() domain.Article {
	return domain.Article{
		SourceID:    r.SourceID,
		Title:       r.Title,
		URL:         r.URL,
		ImageURL:    r.ImageURL.String,
		PublishedAt: r.PublishedAt.UTC(),
	}
}

// OpenPostgres connects, verifies the connection and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an existing connection; the schema is assumed present.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) MaxPublishedAt(ctx context.Context, sourceID string) (time.Time, bool, error) {
	var maxAt sql.NullTime
	err := s.db.GetContext(ctx, &maxAt, `SELECT MAX(published_at) FROM articles WHERE source_id = $1`, sourceID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("postgres max published_at for %q: %w", sourceID, err)
	}
	if !maxAt.Valid {
		return time.Time{}, false, nil
	}
	return maxAt.Time.UTC(), true, nil
}

func (s *PostgresStore) InsertBatch(ctx context.Context, sourceID string, articles []domain.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	if err := validateBatch(sourceID, articles); err != nil {
		return 0, err
	}

	rows := make([]articleRow, len(articles))
	for i, a := range articles {
		rows[i] = toRow(a)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.NamedExecContext(ctx, insertArticleSQL, rows)
	if err != nil {
		return 0, fmt.Errorf("postgres insert batch for %q: %w", sourceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres commit: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) Known(ctx context.Context, sourceID string, key domain.DedupKey, values []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if len(values) == 0 {
		return known, nil
	}

	var found []string
	if err := s.db.SelectContext(ctx, &found, knownQuery(key), sourceID, pq.Array(values)); err != nil {
		return nil, fmt.Errorf("postgres known %s for %q: %w", key, sourceID, err)
	}
	for _, v := range found {
		known[v] = struct{}{}
	}
	return known, nil
}

// knownQuery selects the dedup column from a fixed set, never from input.
func knownQuery(key domain.DedupKey) string {
	column := "url"
	if key == domain.DedupByTitle {
		column = "title"
	}
	return fmt.Sprintf(`SELECT DISTINCT %[1]s FROM articles WHERE source_id = $1 AND %[1]s = ANY($2)`, column)
}

func (s *PostgresStore) ListArticles(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()
	page := Page{Page: q.Page, PageSize: q.PageSize, Articles: []domain.Article{}}

	countSQL, listSQL, args := listQueries(q)
	if err := s.db.GetContext(ctx, &page.Total, countSQL, args...); err != nil {
		return page, fmt.Errorf("postgres count articles: %w", err)
	}

	var rows []articleRow
	if err := s.db.SelectContext(ctx, &rows, listSQL, append(args, q.PageSize, q.Offset())...); err != nil {
		return page, fmt.Errorf("postgres list articles: %w", err)
	}
	for _, r := range rows {
		page.Articles = append(page.Articles, r.article())
	}
	return page, nil
}

func listQueries(q Query) (countSQL, listSQL string, args []any) {
	const columns = `source_id, title, url, image_url, published_at`
	if q.SourceID == "" {
		return `SELECT COUNT(*) FROM articles`,
			`SELECT ` + columns + ` FROM articles ORDER BY published_at DESC, id DESC LIMIT $1 OFFSET $2`,
			nil
	}
	return `SELECT COUNT(*) FROM articles WHERE source_id = $1`,
		`SELECT ` + columns + ` FROM articles WHERE source_id = $1 ORDER BY published_at DESC, id DESC LIMIT $2 OFFSET $3`,
		[]any{q.SourceID}
}
