// Package crawler runs the per-source ingestion pipeline: watermark, listing
// fetch, parse, detail resolution, filtering, persistence and event fan-out.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/econodata/noticias-harvester/internal/domain"
	"github.com/econodata/noticias-harvester/internal/logger"
	"github.com/econodata/noticias-harvester/pkg/httpclient"
	"github.com/econodata/noticias-harvester/pkg/providers"
)

const maxNestedSitemaps = 5

// RunReport is the outcome of one source run. Stage and Err are set only
// when the run stopped early or publishing failed after persistence.
type RunReport struct {
	SourceID string
	Stage    Stage
	Err      error
	Parsed   int
	Resolved int
	Skipped  int
	Inserted int
	Duration time.Duration
}

// NoUpdates reports a successful run that stored nothing.
func (r RunReport) NoUpdates() bool {
	return r.Err == nil && r.Inserted == 0
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithConcurrency caps simultaneous detail fetches per source.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = clampConcurrency(n) }
}

// WithPublisher enables post-persist events.
func WithPublisher(pub EventPublisher) Option {
	return func(p *Pipeline) { p.events = pub }
}

// Pipeline wires the stages together around one store and one HTTP client.
type Pipeline struct {
	client      httpclient.Client
	store       ArticleStore
	events      EventPublisher
	log         logger.Logger
	concurrency int
	resolver    *Resolver
}

// New creates a Pipeline. The caller owns store and closes it.
func New(client httpclient.Client, store ArticleStore, log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:      client,
		store:       store,
		log:         logger.Ensure(log),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.resolver = NewResolver(client, p.log, p.concurrency)
	return p
}

// Run ingests one source and reports the outcome. It never panics on source
// errors; failures are carried in the report.
func (p *Pipeline) Run(ctx context.Context, src providers.Source) RunReport {
	start := time.Now()
	rep := RunReport{SourceID: src.ID}
	p.run(ctx, src, &rep)
	rep.Duration = time.Since(start)
	p.logReport(rep)
	return rep
}

func (p *Pipeline) run(ctx context.Context, src providers.Source, rep *RunReport) {
	fail := func(stage Stage, err error) {
		rep.Stage, rep.Err = stage, err
	}

	watermark, err := Watermark(ctx, p.store, src.ID)
	if err != nil {
		fail(StageWatermark, err)
		return
	}

	listing, err := FetchListing(ctx, p.client, src.Provider)
	if err != nil {
		fail(StageFetch, err)
		return
	}

	if listing.Truncated() {
		p.log.WarnObj("listing body truncated", "truncation", map[string]any{
			"provider_id": src.ID,
			"url":         listing.URL,
			"original":    listing.Size,
			"kept":        len(listing.Body),
		})
	}

	parsed, err := p.parseListing(ctx, src, listing)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fail(StageFetch, err)
		} else {
			fail(StageParse, err)
		}
		return
	}
	rep.Parsed = len(parsed.Candidates)
	rep.Skipped = len(parsed.Skipped)
	for _, skipErr := range parsed.Skipped {
		p.log.DebugObj("listing item skipped", "listing_item_skipped", map[string]any{
			"provider_id": src.ID,
			"error":       skipErr.Error(),
		})
	}

	articles, err := p.resolve(ctx, src, parsed.Candidates, rep)
	if err != nil {
		fail(StageResolve, err)
		return
	}

	known, err := p.known(ctx, src, articles)
	if err != nil {
		fail(StageFilter, err)
		return
	}
	fresh := FilterNew(articles, watermark, known, src.Dedup())
	if len(fresh) == 0 {
		return
	}

	inserted, err := p.persist(ctx, src.ID, fresh)
	if err != nil {
		fail(StagePersist, err)
		return
	}
	rep.Inserted = inserted

	if p.events != nil {
		if err := p.events.PublishArticles(ctx, fresh); err != nil {
			fail(StagePublish, err)
		}
	}
}

// parseListing parses the listing, following nested sitemaps when a
// news-sitemap source points at a sitemap index.
func (p *Pipeline) parseListing(ctx context.Context, src providers.Source, listing Listing) (providers.ParseResult, error) {
	if err := listing.CheckKind(); err != nil {
		return providers.ParseResult{}, err
	}
	res, err := src.Listing.ParseListing(listing.Body)
	if err != nil && listing.Truncated() {
		err = fmt.Errorf("listing truncated at %d of %d bytes: %w", len(listing.Body), listing.Size, err)
	}
	var idx *providers.SitemapIndexError
	if !errors.As(err, &idx) {
		return res, err
	}

	var merged providers.ParseResult
	for _, u := range lo.Slice(idx.Sitemaps, 0, maxNestedSitemaps) {
		body, err := fetchPage(ctx, p.client, u, providers.Headers(src.Provider))
		if err != nil {
			return merged, err
		}
		nested, err := src.Listing.ParseListing(body)
		if err != nil {
			return merged, fmt.Errorf("nested sitemap %s: %w", u, err)
		}
		merged.Candidates = append(merged.Candidates, nested.Candidates...)
		merged.Skipped = append(merged.Skipped, nested.Skipped...)
	}
	return merged, nil
}

// resolve turns candidates into articles. Detail URLs already stored are not
// fetched again.
func (p *Pipeline) resolve(ctx context.Context, src providers.Source, candidates []providers.Candidate, rep *RunReport) ([]domain.Article, error) {
	articles := make([]domain.Article, 0, len(candidates))
	var detailURLs []string
	for _, c := range candidates {
		if c.NeedsDetail() {
			detailURLs = append(detailURLs, c.DetailURL)
			continue
		}
		articles = append(articles, c.Article)
	}
	if len(detailURLs) == 0 {
		return articles, nil
	}

	stored, err := p.store.Known(ctx, src.ID, domain.DedupByURL, detailURLs)
	if err != nil {
		return nil, fmt.Errorf("check stored detail urls: %w", err)
	}
	pending := lo.Reject(detailURLs, func(u string, _ int) bool {
		_, ok := stored[u]
		return ok
	})

	res := p.resolver.Resolve(ctx, src, pending)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rep.Resolved = len(res.Articles)
	rep.Skipped += res.Skipped
	return append(articles, res.Articles...), nil
}

func (p *Pipeline) known(ctx context.Context, src providers.Source, articles []domain.Article) (KnownSet, error) {
	var known KnownSet
	if len(articles) == 0 {
		return known, nil
	}

	urls := lo.Map(articles, func(a domain.Article, _ int) string { return a.Key(domain.DedupByURL) })
	var err error
	if known.URLs, err = p.store.Known(ctx, src.ID, domain.DedupByURL, lo.Uniq(urls)); err != nil {
		return known, fmt.Errorf("check stored urls: %w", err)
	}

	if src.Dedup() == domain.DedupByTitle {
		titles := lo.Map(articles, func(a domain.Article, _ int) string { return a.Key(domain.DedupByTitle) })
		if known.Titles, err = p.store.Known(ctx, src.ID, domain.DedupByTitle, lo.Uniq(titles)); err != nil {
			return known, fmt.Errorf("check stored titles: %w", err)
		}
	}
	return known, nil
}

func (p *Pipeline) persist(ctx context.Context, sourceID string, articles []domain.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	n, err := p.store.InsertBatch(ctx, sourceID, articles)
	if err != nil {
		return 0, &PersistError{SourceID: sourceID, Err: err}
	}
	return n, nil
}

func (p *Pipeline) logReport(rep RunReport) {
	fields := map[string]any{
		"provider_id": rep.SourceID,
		"parsed":      rep.Parsed,
		"resolved":    rep.Resolved,
		"skipped":     rep.Skipped,
		"inserted":    rep.Inserted,
		"duration_ms": rep.Duration.Milliseconds(),
	}

	switch {
	case rep.Err != nil && rep.Stage == StagePublish:
		fields["stage"] = string(rep.Stage)
		fields["error"] = rep.Err.Error()
		p.log.WarnObj("articles stored but event publishing failed", "source_run_publish_failed", fields)
	case rep.Err != nil:
		fields["stage"] = string(rep.Stage)
		fields["error"] = rep.Err.Error()
		p.log.ErrorObj("source run failed", "source_run_failed", fields)
	case rep.NoUpdates():
		p.log.InfoObj("no updates", "source_run_no_updates", fields)
	default:
		p.log.InfoObj("source run complete", "source_run_complete", fields)
	}
}

// RunAll runs every source with up to parallel sources in flight and returns
// the reports in source order. Sources not started before ctx is done report
// the context error at the fetch stage.
func (p *Pipeline) RunAll(ctx context.Context, sources []providers.Source, parallel int) []RunReport {
	reports := make([]RunReport, len(sources))
	if len(sources) == 0 {
		return reports
	}
	workerCount := min(max(parallel, 1), len(sources))

	jobCh := make(chan int)
	var wg sync.WaitGroup
	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				src := sources[idx]
				if err := ctx.Err(); err != nil {
					reports[idx] = RunReport{SourceID: src.ID, Stage: StageFetch, Err: err}
					continue
				}
				reports[idx] = p.Run(ctx, src)
			}
		}()
	}

	for idx := range sources {
		jobCh <- idx
	}
	close(jobCh)
	wg.Wait()

	return reports
}
