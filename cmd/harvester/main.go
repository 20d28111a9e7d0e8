// Command harvester ingests articles from every configured source into the
// article store, once or on a fixed interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/econodata/noticias-harvester/internal/config"
	"github.com/econodata/noticias-harvester/internal/crawler"
	"github.com/econodata/noticias-harvester/internal/logger"
	"github.com/econodata/noticias-harvester/internal/storage"
	"github.com/econodata/noticias-harvester/pkg/httpclient"
	"github.com/econodata/noticias-harvester/pkg/providers"
	"github.com/econodata/noticias-harvester/pkg/publishers"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	only := flag.String("sources", "", "comma-separated source ids to run (default: all)")
	once := flag.Bool("once", false, "run a single harvest even when crawl.interval is set")
	flag.Parse()

	if err := run(*configPath, *only, *once); err != nil {
		fmt.Fprintln(os.Stderr, "harvester:", err)
		os.Exit(1)
	}
}

func run(configPath, only string, once bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer zl.Sync()
	var log logger.Logger = zl

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, err := loadSources(cfg.Sources.File, only)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, storage.Config{
		Driver:      cfg.Store.Driver,
		DSN:         cfg.Store.DSN,
		Path:        cfg.Store.Path,
		Database:    cfg.Store.Database,
		Collection:  cfg.Store.Collection,
		LockTimeout: cfg.Store.LockTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WarnObj("closing store failed", "store_close_error", map[string]any{"error": err.Error()})
		}
	}()

	events, err := publishers.Setup(ctx, cfg.Publishers.File, log)
	if err != nil {
		return err
	}
	defer events.Close()

	client := httpclient.NewRestyClient(cfg.HTTP.Timeout,
		httpclient.WithUserAgents(cfg.HTTP.UserAgents...),
		httpclient.WithMaxConnsPerHost(cfg.Crawl.Concurrency),
	)

	opts := []crawler.Option{crawler.WithConcurrency(cfg.Crawl.Concurrency)}
	if events.Len() > 0 {
		opts = append(opts, crawler.WithPublisher(events))
	}
	pipeline := crawler.New(client, store, log, opts...)

	log.InfoObj("harvester started", "harvester_start", map[string]any{
		"sources":    len(sources),
		"store":      cfg.Store.Driver,
		"publishers": events.Len(),
		"interval":   cfg.Crawl.Interval.String(),
	})

	harvest := func() {
		start := time.Now()
		reports := pipeline.RunAll(ctx, sources, cfg.Crawl.ParallelSources)
		inserted, failed := 0, 0
		for _, rep := range reports {
			inserted += rep.Inserted
			if rep.Err != nil {
				failed++
			}
		}
		log.InfoObj("harvest finished", "harvest_complete", map[string]any{
			"sources":     len(reports),
			"failed":      failed,
			"inserted":    inserted,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}

	harvest()
	if once || cfg.Crawl.Interval == 0 {
		return nil
	}

	ticker := time.NewTicker(cfg.Crawl.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.InfoObj("harvester stopping", "harvester_stop", map[string]any{"reason": context.Cause(ctx).Error()})
			return nil
		case <-ticker.C:
			harvest()
		}
	}
}

// loadSources builds the source registry from the sources file, or from the
// built-in table when no file is configured, and narrows it to only.
func loadSources(path, only string) ([]providers.Source, error) {
	cfgs := providers.DefaultProviders()
	if path != "" {
		var err error
		if cfgs, err = providers.LoadFile(path); err != nil {
			return nil, err
		}
	}

	reg, err := providers.NewRegistry(cfgs)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, id := range strings.Split(only, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	sources, err := reg.Select(ids...)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.New("no sources selected")
	}
	return sources, nil
}
