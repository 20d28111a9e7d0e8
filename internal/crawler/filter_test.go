package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/econodata/noticias-harvester/internal/domain"
)

func art(url, title string, at time.Time) domain.Article {
	return domain.Article{SourceID: "src", Title: title, URL: url, PublishedAt: at}
}

func TestFilterNew(t *testing.T) {
	wm := time.Date(2024, 1, 4, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		in    []domain.Article
		known KnownSet
		key   domain.DedupKey
		want  []string
	}{
		{
			name: "empty input",
			want: []string{},
		},
		{
			name: "keeps articles at the watermark and drops older ones",
			in: []domain.Article{
				art("https://a/1", "um", wm),
				art("https://a/2", "dois", wm.Add(-time.Second)),
				art("https://a/3", "três", wm.Add(time.Hour)),
			},
			want: []string{"https://a/1", "https://a/3"},
		},
		{
			name: "drops stored urls regardless of timestamp",
			in: []domain.Article{
				art("https://a/1", "um", wm.Add(time.Hour)),
				art("https://a/2", "dois", wm.Add(time.Hour)),
			},
			known: KnownSet{URLs: map[string]struct{}{"https://a/1": {}}},
			want:  []string{"https://a/2"},
		},
		{
			name: "collapses repeats inside the batch",
			in: []domain.Article{
				art("https://a/1", "um", wm),
				art("https://a/1", "um de novo", wm.Add(time.Minute)),
			},
			want: []string{"https://a/1"},
		},
		{
			name: "title key drops stored titles and repeated titles",
			in: []domain.Article{
				art("https://a/1", "Selic", wm),
				art("https://a/2", "Dólar", wm),
				art("https://a/3", "Dólar", wm),
			},
			known: KnownSet{Titles: map[string]struct{}{"Selic": {}}},
			key:   domain.DedupByTitle,
			want:  []string{"https://a/2"},
		},
		{
			name: "url key ignores stored titles",
			in: []domain.Article{
				art("https://a/1", "Selic", wm),
			},
			known: KnownSet{Titles: map[string]struct{}{"Selic": {}}},
			key:   domain.DedupByURL,
			want:  []string{"https://a/1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterNew(tt.in, wm, tt.known, tt.key)
			urls := make([]string, 0, len(got))
			for _, a := range got {
				urls = append(urls, a.URL)
			}
			assert.Equal(t, tt.want, urls)
		})
	}
}

type maxStub struct {
	at  time.Time
	ok  bool
	err error
}

func (s maxStub) MaxPublishedAt(context.Context, string) (time.Time, bool, error) {
	return s.at, s.ok, s.err
}

func TestWatermark(t *testing.T) {
	ctx := context.Background()

	wm, err := Watermark(ctx, maxStub{}, "src")
	require.NoError(t, err)
	assert.Equal(t, domain.WatermarkSentinel, wm)

	brt := time.FixedZone("BRT", -3*60*60)
	wm, err = Watermark(ctx, maxStub{at: time.Date(2024, 1, 4, 10, 0, 0, 0, brt), ok: true}, "src")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 4, 13, 0, 0, 0, time.UTC), wm)

	boom := errors.New("boom")
	_, err = Watermark(ctx, maxStub{err: boom}, "src")
	require.ErrorIs(t, err, boom)
}
