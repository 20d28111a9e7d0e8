package publishers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/econodata/noticias-harvester/internal/domain"
)

type memPublisher struct {
	id     string
	err    error
	mu     sync.Mutex
	events []Event
	closed bool
}

func (m *memPublisher) ID() string   { return m.id }
func (m *memPublisher) Type() string { return "memory" }

func (m *memPublisher) Publish(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return m.err
}

func (m *memPublisher) Close() error {
	m.closed = true
	return nil
}

func articles() []domain.Article {
	at := time.Date(2024, 1, 4, 13, 0, 0, 0, time.UTC)
	return []domain.Article{
		{SourceID: "g1", Title: "Dólar", URL: "https://g1.globo.com/dolar", PublishedAt: at},
		{SourceID: "g1", Title: "Ibovespa", URL: "https://g1.globo.com/ibov", PublishedAt: at},
	}
}

func TestFanoutDeliversToEveryPublisher(t *testing.T) {
	ok := &memPublisher{id: "ok"}
	broken := &memPublisher{id: "broken", err: errors.New("unavailable")}
	f := NewFanout([]Publisher{broken, ok}, nil)
	f.now = func() time.Time { return time.Date(2024, 1, 4, 13, 5, 0, 0, time.UTC) }

	err := f.PublishArticles(context.Background(), articles())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publisher broken")

	require.Len(t, ok.events, 2)
	assert.Len(t, broken.events, 2)
	evt := ok.events[0]
	assert.Equal(t, EventArticleIngested, evt.Type)
	assert.Equal(t, "g1", evt.ProviderID)
	assert.Equal(t, time.Date(2024, 1, 4, 13, 5, 0, 0, time.UTC), evt.IngestedAt)
	_, parseErr := uuid.Parse(evt.ID)
	assert.NoError(t, parseErr)
	assert.NotEqual(t, ok.events[0].ID, ok.events[1].ID)

	require.NoError(t, f.Close())
	assert.True(t, ok.closed)
}

func TestFanoutEmpty(t *testing.T) {
	var f *Fanout
	assert.Zero(t, f.Len())
	assert.NoError(t, f.Close())

	f, err := Setup(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Zero(t, f.Len())
	assert.NoError(t, f.PublishArticles(context.Background(), articles()))
}
