package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/jdziat/simple-refresh/pkg/activity"
	"github.com/jdziat/simple-refresh/pkg/api"
	"github.com/jdziat/simple-refresh/pkg/config"
	"github.com/jdziat/simple-refresh/pkg/coordinator"
	"github.com/jdziat/simple-refresh/pkg/fetch"
	"github.com/jdziat/simple-refresh/pkg/metrics"
	"github.com/jdziat/simple-refresh/pkg/push"
	"github.com/jdziat/simple-refresh/pkg/refresher"
	"github.com/jdziat/simple-refresh/pkg/storage"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// app holds every component wired from one Config.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *gorm.DB
	store     *storage.GormStorage
	coord     *coordinator.Coordinator
	collector *storage.StatsCollector
	listener  *push.Listener
	handler   http.Handler
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	if cfg.Database.Enabled() {
		db, err := openDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.store = storage.NewGormStorage(db)
		if err := a.store.Migrate(context.Background()); err != nil {
			a.close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	a.coord = coordinator.New(
		coordinator.WithMaxPause(cfg.MaxPause),
		coordinator.WithLogger(log),
	)

	for _, rc := range cfg.Refreshers {
		if err := a.register(rc); err != nil {
			a.close()
			return nil, err
		}
	}

	tracker := activity.NewTracker(a.coord,
		activity.WithScope(cfg.Activity.Scope),
		activity.WithKeywords(cfg.Activity.Keywords...),
		activity.WithEditorMarkers(cfg.Activity.EditorMarkers...),
		activity.WithLogger(log),
	)

	apiOpts := []api.Option{
		api.WithTracker(tracker),
		api.WithLogger(log),
		api.WithMetrics(metrics.Handler(metrics.NewRegistry(a.coord, tracker))),
	}
	if a.store != nil {
		apiOpts = append(apiOpts, api.WithStorage(a.store))
		a.collector = storage.NewStatsCollector(a.coord, a.store,
			storage.WithRetention(cfg.Stats.Retention),
			storage.WithCollectorLogger(log),
		)
	}
	a.handler = api.Handler(a.coord, apiOpts...)

	if cfg.Push.URL != "" {
		pushOpts := []push.Option{push.WithLogger(log)}
		for k, v := range cfg.Push.Headers {
			pushOpts = append(pushOpts, push.WithHeader(k, v))
		}
		a.listener = push.New(cfg.Push.URL, a.coord, pushOpts...)
	}

	return a, nil
}

func (a *app) register(rc config.RefresherConfig) error {
	fetchOpts := []fetch.Option{fetch.WithTimeout(rc.Timeout)}
	for k, v := range rc.Query {
		fetchOpts = append(fetchOpts, fetch.WithQuery(k, v))
	}
	for k, v := range rc.Headers {
		fetchOpts = append(fetchOpts, fetch.WithHeader(k, v))
	}
	f, err := fetch.New(rc.URL, fetchOpts...)
	if err != nil {
		return fmt.Errorf("refresher %s: %w", rc.Kind, err)
	}

	opts := []refresher.Option{
		refresher.WithSchedule(rc.Schedule),
		refresher.WithTimeout(rc.Timeout),
		refresher.WithRunOnStart(rc.RunOnStart),
	}
	if a.store != nil {
		opts = append(opts, refresher.WithSink(storage.NewSnapshotSink(a.store, nil)))
	}

	if _, err := a.coord.Register(rc.Kind, f, opts...); err != nil {
		return fmt.Errorf("refresher %s: %w", rc.Kind, err)
	}
	return nil
}

// run serves until ctx is cancelled, then shuts everything down.
func (a *app) run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.HTTPAddr, err)
	}
	return a.serve(ctx, ln)
}

func (a *app) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	a.logger.Info("starting refreshd",
		"http_addr", ln.Addr().String(),
		"refreshers", len(a.cfg.Refreshers),
		"max_pause", a.cfg.MaxPause,
		"scope", string(a.cfg.Activity.Scope),
	)

	g, gctx := errgroup.WithContext(ctx)

	// The collector outlives the coordinator so settle events from fetches
	// drained during shutdown land in the final flush.
	collectorCtx, stopCollector := context.WithCancel(context.WithoutCancel(gctx))

	g.Go(func() error {
		defer stopCollector()
		if err := a.coord.Start(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if a.collector != nil {
		g.Go(func() error {
			a.collector.Start(collectorCtx)
			return nil
		})
	}

	if a.listener != nil {
		g.Go(func() error {
			_ = a.listener.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.logger.Info("refreshd stopped")
	return err
}

func (a *app) close() {
	if a.coord != nil {
		a.coord.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func openDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := cfg.DSN
	if cfg.Driver == storage.DriverSQLite {
		dsn = cfg.Path
	}
	return storage.Open(cfg.Driver, dsn,
		storage.MaxOpenConns(cfg.MaxOpenConns),
		storage.ConnMaxLifetime(cfg.ConnMaxLifetime),
	)
}
