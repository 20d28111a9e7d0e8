// Package storage persists articles partitioned by source. Every backend
// supports batch appends, per-source watermark queries, bulk membership
// checks for deduplication and paginated reads for the dashboard.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/econodata/noticias-harvester/internal/domain"
)

const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidArticle is returned when a batch carries an article missing a
// required field or belonging to another source.
var ErrInvalidArticle = errors.New("invalid article")

// Store is the durable article store.
type Store interface {
	// MaxPublishedAt returns the newest PublishedAt stored for the source;
	// ok is false when the source has no articles.
	MaxPublishedAt(ctx context.Context, sourceID string) (t time.Time, ok bool, err error)
	// InsertBatch appends articles in one operation and returns how many were new.
	InsertBatch(ctx context.Context, sourceID string, articles []domain.Article) (int, error)
	// Known returns the subset of values already stored under key for the source.
	Known(ctx context.Context, sourceID string, key domain.DedupKey, values []string) (map[string]struct{}, error)
	// ListArticles returns a page of articles ordered by PublishedAt descending.
	ListArticles(ctx context.Context, q Query) (Page, error)
	Close() error
}

// Query selects a page of articles, optionally for one source.
type Query struct {
	SourceID string
	Page     int
	PageSize int
}

// Page is one page of ListArticles results.
type Page struct {
	Articles []domain.Article `json:"articles"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// Pages returns the number of pages needed for Total.
func (p Page) Pages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Normalize applies defaults and bounds; pages are 1-based.
func (q Query) Normalize() Query {
	q.SourceID = strings.TrimSpace(q.SourceID)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// Offset is the number of rows before the requested page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Config selects and configures a backend.
type Config struct {
	Driver      string
	DSN         string
	Path        string
	Database    string
	Collection  string
	LockTimeout time.Duration // bolt only: wait for the file lock
}

// Open connects to the configured backend. The caller owns the returned
// store and must Close it. The bolt backend holds its file lock only inside
// each call, so a harvester and a dashboard can share the file.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverBolt:
		return OpenSharedBolt(cfg.Path, cfg.LockTimeout)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case DriverMongo:
		return OpenMongo(ctx, cfg.DSN, cfg.Database, cfg.Collection)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// validateBatch checks every article before a backend touches storage.
func validateBatch(sourceID string, articles []domain.Article) error {
	for i, a := range articles {
		if a.SourceID != sourceID {
			return fmt.Errorf("article %d belongs to %q, batch is for %q: %w", i, a.SourceID, sourceID, ErrInvalidArticle)
		}
		if !a.Valid() {
			return fmt.Errorf("article %d (%q): %w", i, a.URL, ErrInvalidArticle)
		}
	}
	return nil
}

// normalizeArticle forces the single stored time representation.
func normalizeArticle(a domain.Article) domain.Article {
	a.Title = strings.TrimSpace(a.Title)
	a.URL = strings.TrimSpace(a.URL)
	a.ImageURL = strings.TrimSpace(a.ImageURL)
	a.PublishedAt = a.PublishedAt.UTC()
	return a
}
