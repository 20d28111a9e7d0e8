package crawler

import (
	"time"

	"github.com/samber/lo"

	"github.com/econodata/noticias-harvester/internal/domain"
)

// KnownSet holds identities already stored for one source. Titles is only
// consulted for sources deduplicated by title.
type KnownSet struct {
	URLs   map[string]struct{}
	Titles map[string]struct{}
}

func (k KnownSet) has(a domain.Article, key domain.DedupKey) bool {
	if _, ok := k.URLs[a.Key(domain.DedupByURL)]; ok {
		return true
	}
	if key == domain.DedupByTitle {
		_, ok := k.Titles[a.Key(domain.DedupByTitle)]
		return ok
	}
	return false
}

// FilterNew keeps the articles that are not older than watermark, not already
// stored and not repeated earlier in the same batch. Stored URLs are always
// rejected, whatever the dedup key.
func FilterNew(articles []domain.Article, watermark time.Time, known KnownSet, key domain.DedupKey) []domain.Article {
	fresh := lo.Filter(articles, func(a domain.Article, _ int) bool {
		return !a.PublishedAt.Before(watermark) && !known.has(a, key)
	})
	fresh = lo.UniqBy(fresh, func(a domain.Article) string { return a.Key(domain.DedupByURL) })
	if key == domain.DedupByTitle {
		fresh = lo.UniqBy(fresh, func(a domain.Article) string { return a.Key(domain.DedupByTitle) })
	}
	return fresh
}
