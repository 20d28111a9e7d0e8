package crawler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/econodata/noticias-harvester/internal/domain"
	"github.com/econodata/noticias-harvester/internal/logger"
	"github.com/econodata/noticias-harvester/pkg/httpclient"
	"github.com/econodata/noticias-harvester/pkg/providers"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB

	DefaultConcurrency = 10
	MaxConcurrency     = 20
)

// Resolver fetches detail pages of two-step sources through a bounded worker pool.
type Resolver struct {
	client      httpclient.Client
	log         logger.Logger
	concurrency int
}

// ResolveResult holds the articles read from detail pages and the number of
// URLs that yielded nothing.
type ResolveResult struct {
	Articles []domain.Article
	Skipped  int
}

// NewResolver creates a Resolver running at most concurrency fetches at once.
func NewResolver(client httpclient.Client, log logger.Logger, concurrency int) *Resolver {
	return &Resolver{
		client:      client,
		log:         logger.Ensure(log),
		concurrency: clampConcurrency(concurrency),
	}
}

func clampConcurrency(n int) int {
	if n <= 0 {
		return DefaultConcurrency
	}
	return min(n, MaxConcurrency)
}

// Resolve fetches and parses every URL. Failed fetches, pages that are not
// articles and pages missing a required field are logged and counted as
// skipped; siblings are unaffected. Results keep the order of urls.
func (r *Resolver) Resolve(ctx context.Context, src providers.Source, urls []string) ResolveResult {
	if !src.NeedsDetailFetch() || len(urls) == 0 {
		return ResolveResult{Skipped: len(urls)}
	}

	out := make([]*domain.Article, len(urls))
	workerCount := min(len(urls), r.concurrency)

	var limiter <-chan time.Time
	if delay := src.RequestDelay(); delay > 0 {
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		limiter = ticker.C
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup
	for workerID := range workerCount {
		wg.Add(1)
		go r.detailWorker(ctx, src, urls, limiter, jobCh, out, &wg, workerID)
	}

feed:
	for idx := range urls {
		select {
		case <-ctx.Done():
			break feed
		case jobCh <- idx:
		}
	}
	close(jobCh)
	wg.Wait()

	res := ResolveResult{Articles: make([]domain.Article, 0, len(urls))}
	for _, art := range out {
		if art == nil {
			res.Skipped++
			continue
		}
		res.Articles = append(res.Articles, *art)
	}
	return res
}

func (r *Resolver) detailWorker(
	ctx context.Context,
	src providers.Source,
	urls []string,
	limiter <-chan time.Time,
	jobCh <-chan int,
	out []*domain.Article,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for idx := range jobCh {
		if ctx.Err() != nil {
			continue
		}

		if limiter != nil {
			select {
			case <-ctx.Done():
				continue
			case <-limiter:
			}
		}

		pageURL := urls[idx]
		art, err := r.fetchAndParse(ctx, src, pageURL, workerID)
		switch {
		case err == nil:
			out[idx] = &art
		case errors.Is(err, providers.ErrNotArticle):
			r.log.DebugObj("detail page is not an article", "detail_not_article", map[string]any{
				"worker_id":   workerID,
				"provider_id": src.ID,
				"url":         pageURL,
			})
		case ctx.Err() != nil:
			// cancelled fetches are dropped silently
		default:
			r.log.WarnObj("detail page resolve failed", "detail_error", map[string]any{
				"worker_id":   workerID,
				"provider_id": src.ID,
				"url":         pageURL,
				"error":       err.Error(),
			})
		}
	}
}

func (r *Resolver) fetchAndParse(ctx context.Context, src providers.Source, pageURL string, workerID int) (domain.Article, error) {
	r.log.DebugObj("fetching detail page", "detail_start", map[string]any{
		"worker_id":   workerID,
		"provider_id": src.ID,
		"url":         pageURL,
	})

	body, err := fetchPage(ctx, r.client, pageURL, providers.Headers(src.Provider))
	if err != nil {
		return domain.Article{}, err
	}

	if len(body) > maxHTMLBodyBytes {
		r.log.InfoObj("html body truncated", "truncation", map[string]any{
			"worker_id":   workerID,
			"provider_id": src.ID,
			"url":         pageURL,
			"original":    len(body),
			"kept":        maxHTMLBodyBytes,
		})
		body = body[:maxHTMLBodyBytes]
	}

	return src.Detail.ParseDetail(pageURL, body)
}
