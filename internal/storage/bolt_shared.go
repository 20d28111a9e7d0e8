package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/econodata/noticias-harvester/internal/domain"
)

// DefaultLockTimeout bounds how long a SharedBoltStore call waits for
// another process to release the database file.
const DefaultLockTimeout = 10 * time.Second

// SharedBoltStore opens the bbolt file for the duration of each call, so the
// harvester and the dashboard can use one file from separate processes.
// Reads open the file read-only under a shared lock; a batch insert holds
// the exclusive lock only while its transaction runs.
type SharedBoltStore struct {
	path    string
	timeout time.Duration
	mu      sync.RWMutex
}

// OpenSharedBolt creates the database file if needed and returns a store
// that holds no lock between calls.
func OpenSharedBolt(path string, lockTimeout time.Duration) (*SharedBoltStore, error) {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	s := &SharedBoltStore{path: boltPath(path), timeout: lockTimeout}

	db, err := openBoltDB(s.path, &bolt.Options{Timeout: s.timeout})
	if err != nil {
		return nil, err
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("close bolt store %s: %w", s.path, err)
	}
	return s, nil
}

// Close is a no-op; no handle outlives a call.
func (s *SharedBoltStore) Close() error { return nil }

func (s *SharedBoltStore) MaxPublishedAt(ctx context.Context, sourceID string) (t time.Time, ok bool, err error) {
	err = s.read(func(b *BoltStore) error {
		t, ok, err = b.MaxPublishedAt(ctx, sourceID)
		return err
	})
	return t, ok, err
}

func (s *SharedBoltStore) InsertBatch(ctx context.Context, sourceID string, articles []domain.Article) (n int, err error) {
	if len(articles) == 0 {
		return 0, nil
	}
	if err := validateBatch(sourceID, articles); err != nil {
		return 0, err
	}
	err = s.write(func(b *BoltStore) error {
		n, err = b.InsertBatch(ctx, sourceID, articles)
		return err
	})
	return n, err
}

func (s *SharedBoltStore) Known(ctx context.Context, sourceID string, key domain.DedupKey, values []string) (known map[string]struct{}, err error) {
	if len(values) == 0 {
		return map[string]struct{}{}, nil
	}
	err = s.read(func(b *BoltStore) error {
		known, err = b.Known(ctx, sourceID, key, values)
		return err
	})
	return known, err
}

func (s *SharedBoltStore) ListArticles(ctx context.Context, q Query) (page Page, err error) {
	err = s.read(func(b *BoltStore) error {
		page, err = b.ListArticles(ctx, q)
		return err
	})
	return page, err
}

func (s *SharedBoltStore) read(fn func(*BoltStore) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.with(&bolt.Options{ReadOnly: true, Timeout: s.timeout}, fn)
}

func (s *SharedBoltStore) write(fn func(*BoltStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.with(&bolt.Options{Timeout: s.timeout}, fn)
}

func (s *SharedBoltStore) with(opts *bolt.Options, fn func(*BoltStore) error) (err error) {
	db, err := openBoltDB(s.path, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close bolt store %s: %w", s.path, cerr)
		}
	}()
	return fn(&BoltStore{db: db})
}
