package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/worktrail/worktrail/internal/api"
	"github.com/worktrail/worktrail/internal/config"
	"github.com/worktrail/worktrail/internal/db"
	"github.com/worktrail/worktrail/internal/db/migrations"
	"github.com/worktrail/worktrail/internal/dbpool"
	"github.com/worktrail/worktrail/internal/realtime"
	"github.com/worktrail/worktrail/internal/service"
	"github.com/worktrail/worktrail/internal/store"
	"github.com/worktrail/worktrail/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, realtime feed and metrics listener",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// openPool loads config, builds the logger and connects to the database.
func openPool(ctx context.Context) (*config.Config, *logrus.Logger, *dbpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	log := newLogger(cfg)

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), dbpool.Options{MaxConns: int32(cfg.DBMaxConns)}) //nolint:gosec // bounded to 200 by config.
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	return cfg, log, pool, nil
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTelStdout, config.Version)
	if err != nil {
		return err
	}

	base := store.Base{Pool: pool, Log: log, RetryMaxElapsed: cfg.DBRetryMaxElapsed}
	auditStore := store.NewAuditStore(base)
	activityStore := store.NewActivityStore(base)

	auditWorker := service.NewAuditWorker(auditStore, log, cfg.AuditQueueSize)
	dispatcher := realtime.NewDispatcher(log, cfg.SubscriberBuffer)

	workItems := service.NewWorkItemService(
		store.NewWorkItemStore(base), auditStore, activityStore, auditWorker,
		log, service.WorkItemOptions{CAS: cfg.TransitionCAS},
	)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log: log,
		DB:  pool,
		AppliedVersion: func(ctx context.Context) (int64, error) {
			return db.AppliedVersion(ctx, pool)
		},
		SchemaVersion: db.SchemaVersion(),
		WorkItems:     workItems,
		Audit:         service.NewAuditService(auditStore, log, cfg.QueryTimeout),
		Activity:      service.NewActivityService(activityStore, log, cfg.QueryTimeout),
		Stats:         service.NewStatsService(auditStore, activityStore, cfg.StatsRowCap, cfg.QueryTimeout, log),
		Principals:    store.NewPrincipalStore(base),
		Dispatcher:    dispatcher,
		CORSOrigins:   cfg.CORSOrigins,
		TimelineLen:   cfg.TimelineBuffer,
		Version:       config.Version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// workCtx outlives ctx so in-flight requests can still enqueue audit
	// jobs and publish events while the servers drain.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	g, gctx := errgroup.WithContext(ctx)

	var workers sync.WaitGroup

	workers.Add(2)

	go func() { defer workers.Done(); auditWorker.Run(workCtx) }()
	go func() { defer workers.Done(); dispatcher.Run(workCtx) }()

	if err := db.NewNotifyBridge(log, pool, dispatcher).Start(workCtx); err != nil {
		log.WithError(err).Warn("notify.start_failed")
	}

	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "version": config.Version}).Info("http.listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		log.WithField("addr", metricsSrv.Addr).Info("metrics.listening")

		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown.started")

		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		dispatcher.Shutdown(sctx)

		if err := srv.Shutdown(sctx); err != nil {
			log.WithError(err).Warn("shutdown.http_failed")
		}

		if err := metricsSrv.Shutdown(sctx); err != nil {
			log.WithError(err).Warn("shutdown.metrics_failed")
		}

		cancelWork()
		workers.Wait()

		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("shutdown.tracing_failed")
		}

		return nil
	})

	err = g.Wait()
	log.Info("shutdown.complete")

	return err
}
