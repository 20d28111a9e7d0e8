// Command dashboard serves the stored articles as paginated HTML cards and JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"

	"github.com/econodata/noticias-harvester/internal/config"
	"github.com/econodata/noticias-harvester/internal/dashboard"
	"github.com/econodata/noticias-harvester/internal/logger"
	"github.com/econodata/noticias-harvester/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "dashboard:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	defer store.Close()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Dashboard.Addr,
		Handler:           dashboard.NewRouter(dashboard.NewHandler(store, zl, cfg.Dashboard.PageSize)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.InfoObj("dashboard listening", "dashboard_start", map[string]any{"addr": cfg.Dashboard.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	zl.InfoObj("dashboard stopping", "dashboard_stop", nil)
	return srv.Shutdown(shutdownCtx)
}
