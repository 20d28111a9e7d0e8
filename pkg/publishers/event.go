// Package publishers fans ingested articles out to external sinks: HTTP
// webhooks, AWS SQS queues, AWS SNS topics and GCP Pub/Sub topics.
package publishers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/econodata/noticias-harvester/internal/domain"
	"github.com/econodata/noticias-harvester/internal/logger"
)

// EventArticleIngested is the type of events emitted after a batch is stored.
const EventArticleIngested = "article.ingested"

// Logger is the logging surface publishers write to.
type Logger = logger.Logger

// Event is the payload delivered to every publisher.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ProviderID  string    `json:"provider_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// NewArticleEvent builds an article.ingested event with a fresh id.
func NewArticleEvent(a domain.Article, ingestedAt time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        EventArticleIngested,
		ProviderID:  a.SourceID,
		Title:       a.Title,
		URL:         a.URL,
		ImageURL:    a.ImageURL,
		PublishedAt: a.PublishedAt.UTC(),
		IngestedAt:  ingestedAt.UTC(),
	}
}

// Publisher delivers one event to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

func ensureLogger(log Logger) Logger {
	return logger.Ensure(log)
}
