package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/ingestion"
	"polyflow/internal/logger"
	"polyflow/internal/markets"
	"polyflow/internal/monitor"
	"polyflow/internal/signal"
	"polyflow/internal/store"
	"polyflow/internal/store/auditlog"
	pipelinehttp "polyflow/internal/transport/http"
)

// App owns application-level orchestration: config in, wired pipeline out,
// then one Run that drives every loop until the context dies.
type App struct {
	cfg       *config.Config
	bus       *bus.Bus
	watchlist *markets.Watchlist
	ingestion *ingestion.Service
	signals   *signal.Service
	monitor   *monitor.Service
	http      *pipelinehttp.Server
	journal   store.Journal
	audit     *auditlog.Store
}

// NewApp builds the application from config without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts the HTTP server, the ingestion pollers, and the background
// loops, blocking until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	logger.Infof("app: starting pipeline in %s mode", a.cfg.Trading.Mode)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error { return ignoreCancel(a.ingestion.Run(ctx)) })
	group.Go(func() error { return ignoreCancel(a.signals.RunSweeper(ctx)) })
	group.Go(func() error { return ignoreCancel(a.monitor.RunResolution(ctx)) })
	group.Go(func() error { return ignoreCancel(a.monitor.RunDrift(ctx)) })
	group.Go(func() error { return ignoreCancel(a.monitor.RunEvolution(ctx)) })

	err := group.Wait()
	a.Close()
	return err
}

func ignoreCancel(err error) error {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return nil
	}
	return err
}

// Close releases the stores and the watchlist watcher.
func (a *App) Close() {
	if a.watchlist != nil {
		_ = a.watchlist.Close()
	}
	if a.journal != nil {
		_ = a.journal.Close()
	}
	if a.audit != nil {
		_ = a.audit.Close()
	}
}

// Bus exposes the event bus for harnesses.
func (a *App) Bus() *bus.Bus {
	if a == nil {
		return nil
	}
	return a.bus
}
