package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/econodata/noticias-harvester/internal/domain"
)

// Bucket layout:
//
//	sources/<source_id>/urls       url -> article JSON
//	sources/<source_id>/titles     title -> url
//	sources/<source_id>/published  <fixed-width UTC time>\x00<url> -> url
var (
	bucketSources   = []byte("sources")
	bucketURLs      = []byte("urls")
	bucketTitles    = []byte("titles")
	bucketPublished = []byte("published")
)

const (
	defaultBoltPath = "data/noticias.db"
	timeKeyLayout   = "2006-01-02T15:04:05.000000000Z"
)

// BoltStore keeps articles in a single bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database file at path and holds its
// exclusive lock until Close. Use OpenSharedBolt when another process needs
// the same file.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := openBoltDB(boltPath(path), &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func boltPath(path string) string {
	if path = strings.TrimSpace(path); path == "" {
		return defaultBoltPath
	}
	return path
}

// openBoltDB opens path with opts. Writable opens create the file, its
// directory and the root bucket.
func openBoltDB(path string, opts *bolt.Options) (*bolt.DB, error) {
	if !opts.ReadOnly {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
	}

	db, err := bolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	if opts.ReadOnly {
		return db, nil
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSources)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt store: %w", err)
	}
	return db, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) MaxPublishedAt(ctx context.Context, sourceID string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}

	var (
		maxAt time.Time
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		pub := sourceBucket(tx, sourceID, bucketPublished)
		if pub == nil {
			return nil
		}
		k, _ := pub.Cursor().Last()
		if k == nil {
			return nil
		}
		t, err := parseTimeKey(k)
		if err != nil {
			return err
		}
		maxAt, found = t, true
		return nil
	})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("bolt max published_at for %q: %w", sourceID, err)
	}
	return maxAt, found, nil
}

func (s *BoltStore) InsertBatch(ctx context.Context, sourceID string, articles []domain.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validateBatch(sourceID, articles); err != nil {
		return 0, err
	}

	inserted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		src, err := tx.Bucket(bucketSources).CreateBucketIfNotExists([]byte(sourceID))
		if err != nil {
			return err
		}
		urls, err := src.CreateBucketIfNotExists(bucketURLs)
		if err != nil {
			return err
		}
		titles, err := src.CreateBucketIfNotExists(bucketTitles)
		if err != nil {
			return err
		}
		pub, err := src.CreateBucketIfNotExists(bucketPublished)
		if err != nil {
			return err
		}

		for _, a := range articles {
			a = normalizeArticle(a)
			if urls.Get([]byte(a.URL)) != nil {
				continue
			}
			raw, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("encode article %q: %w", a.URL, err)
			}
			if err := urls.Put([]byte(a.URL), raw); err != nil {
				return err
			}
			if err := titles.Put([]byte(a.Title), []byte(a.URL)); err != nil {
				return err
			}
			if err := pub.Put(timeKey(a.PublishedAt, a.URL), []byte(a.URL)); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("bolt insert batch for %q: %w", sourceID, err)
	}
	return inserted, nil
}

func (s *BoltStore) Known(ctx context.Context, sourceID string, key domain.DedupKey, values []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if len(values) == 0 {
		return known, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := bucketURLs
	if key == domain.DedupByTitle {
		name = bucketTitles
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := sourceBucket(tx, sourceID, name)
		if b == nil {
			return nil
		}
		for _, v := range values {
			if b.Get([]byte(v)) != nil {
				known[v] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt known %s for %q: %w", key, sourceID, err)
	}
	return known, nil
}

type boltRef struct {
	source string
	key    []byte
	url    []byte
}

func (s *BoltStore) ListArticles(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()
	page := Page{Page: q.Page, PageSize: q.PageSize, Articles: []domain.Article{}}
	if err := ctx.Err(); err != nil {
		return page, err
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		var refs []boltRef
		root := tx.Bucket(bucketSources)
		err := root.ForEachBucket(func(name []byte) error {
			if q.SourceID != "" && string(name) != q.SourceID {
				return nil
			}
			pub := root.Bucket(name).Bucket(bucketPublished)
			if pub == nil {
				return nil
			}
			return pub.ForEach(func(k, v []byte) error {
				refs = append(refs, boltRef{source: string(name), key: clone(k), url: clone(v)})
				return nil
			})
		})
		if err != nil {
			return err
		}

		sort.SliceStable(refs, func(i, j int) bool {
			if c := strings.Compare(string(refs[i].key), string(refs[j].key)); c != 0 {
				return c > 0
			}
			return refs[i].source < refs[j].source
		})

		page.Total = len(refs)
		start := min(q.Offset(), len(refs))
		end := min(start+q.PageSize, len(refs))
		for _, ref := range refs[start:end] {
			raw := root.Bucket([]byte(ref.source)).Bucket(bucketURLs).Get(ref.url)
			if raw == nil {
				return fmt.Errorf("dangling published index %q", ref.key)
			}
			var a domain.Article
			if err := json.Unmarshal(raw, &a); err != nil {
				return fmt.Errorf("decode article %q: %w", ref.url, err)
			}
			page.Articles = append(page.Articles, a)
		}
		return nil
	})
	if err != nil {
		return page, fmt.Errorf("bolt list articles: %w", err)
	}
	return page, nil
}

func sourceBucket(tx *bolt.Tx, sourceID string, name []byte) *bolt.Bucket {
	src := tx.Bucket(bucketSources).Bucket([]byte(sourceID))
	if src == nil {
		return nil
	}
	return src.Bucket(name)
}

func timeKey(t time.Time, url string) []byte {
	return []byte(t.UTC().Format(timeKeyLayout) + "\x00" + url)
}

func parseTimeKey(k []byte) (time.Time, error) {
	ts, _, ok := strings.Cut(string(k), "\x00")
	if !ok {
		return time.Time{}, errors.New("malformed published index key")
	}
	return time.Parse(timeKeyLayout, ts)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
