package crawler

import (
	"context"
	"time"

	"github.com/econodata/noticias-harvester/internal/domain"
)

// WatermarkReader is the store query behind Watermark.
type WatermarkReader interface {
	MaxPublishedAt(ctx context.Context, sourceID string) (time.Time, bool, error)
}

// ArticleStore is the part of the store the pipeline reads and appends to.
type ArticleStore interface {
	WatermarkReader
	Known(ctx context.Context, sourceID string, key domain.DedupKey, values []string) (map[string]struct{}, error)
	InsertBatch(ctx context.Context, sourceID string, articles []domain.Article) (int, error)
}

// EventPublisher receives the articles of every successful batch.
type EventPublisher interface {
	PublishArticles(ctx context.Context, articles []domain.Article) error
}
