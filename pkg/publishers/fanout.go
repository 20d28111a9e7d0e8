package publishers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/econodata/noticias-harvester/internal/domain"
)

// Fanout delivers every article to every publisher. A failing publisher does
// not stop delivery to the others.
type Fanout struct {
	pubs []Publisher
	log  Logger
	now  func() time.Time
}

// NewFanout wraps the given publishers.
func NewFanout(pubs []Publisher, log Logger) *Fanout {
	return &Fanout{pubs: pubs, log: ensureLogger(log), now: time.Now}
}

// Len returns the number of publishers.
func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.pubs)
}

// PublishArticles emits one article.ingested event per article and returns
// the joined delivery errors.
func (f *Fanout) PublishArticles(ctx context.Context, articles []domain.Article) error {
	if f.Len() == 0 || len(articles) == 0 {
		return nil
	}

	ingestedAt := f.now()
	var errs []error
	for _, a := range articles {
		evt := NewArticleEvent(a, ingestedAt)
		for _, pub := range f.pubs {
			if err := pub.Publish(ctx, evt); err != nil {
				f.log.WarnObj("event delivery failed", "publisher_error", map[string]any{
					"publisher_id": pub.ID(),
					"provider_id":  a.SourceID,
					"url":          a.URL,
					"error":        err.Error(),
				})
				errs = append(errs, fmt.Errorf("publisher %s: %w", pub.ID(), err))
			}
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return errors.Join(errs...)
}

// Close releases every publisher holding a connection.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.pubs)
}

// Setup loads the publishers file and builds a Fanout over its enabled
// entries. An empty path yields an empty Fanout.
func Setup(ctx context.Context, path string, log Logger) (*Fanout, error) {
	if path == "" {
		return NewFanout(nil, log), nil
	}
	cfgs, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	pubs, err := BuildAll(ctx, DefaultRegistry(), cfgs, log)
	if err != nil {
		return nil, err
	}
	return NewFanout(pubs, log), nil
}
