package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"timeledger/internal/amqp"
	"timeledger/internal/backend"
	"timeledger/internal/cache"
	"timeledger/internal/cli"
	"timeledger/internal/collector"
	"timeledger/internal/config"
	apihttp "timeledger/internal/http"
	"timeledger/internal/log"
	"timeledger/internal/middleware/ratelimit"
	"timeledger/internal/reconcile"
	"timeledger/internal/report"
	"timeledger/internal/runner"
	"timeledger/internal/scheduler"
	"timeledger/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info").Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)
	logger.Info("Starting ledger-worker", log.FieldBackend, cfg.DataBackend)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ledger-worker stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	store, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		return err
	}

	caches := cache.NewManager(logger)
	for _, c := range store.Caches {
		caches.Register(c)
	}

	opts := []runner.Option{runner.WithTimeout(cfg.RunTimeout)}

	var runs apihttp.RunLister
	if cfg.SQLiteDBPath != "" {
		journal, err := storage.Open(cfg.SQLiteDBPath)
		if err != nil {
			return fmt.Errorf("open run journal: %w", err)
		}
		defer journal.Close()
		opts = append(opts, runner.WithJournal(journal))
		runs = journal
		logger.WithComponent(log.ComponentJournal).Info("Run journal enabled",
			"path", cfg.SQLiteDBPath,
			"schema_version", journal.SchemaVersion())
	}

	var bus *amqp.Client
	if cfg.AMQPURL != "" {
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", log.FieldError, err.Error())
		} else {
			defer bus.Close()
			opts = append(opts, runner.WithNotifier(bus))
		}
	}

	jobs := runner.New(logger, cli.Jobs(cfg, store.Workbooks, logger), opts...)

	sched := scheduler.New(cfg.Location(), jobs, logger)
	schedules := []struct{ job, spec string }{
		{collector.JobName, cfg.CollectSchedule},
		{reconcile.JobName, cfg.ReconcileSchedule},
		{report.JobName, cfg.ReportSchedule},
	}
	for _, s := range schedules {
		if err := sched.Add(s.job, s.spec); err != nil {
			return err
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.StatusPort != "" {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
		caches.Register(limiter)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return caches.Run(gctx, cfg.CacheSweep) })

	if cfg.StatusPort != "" {
		srv := apihttp.NewServer(apihttp.Config{
			Addr:        ":" + cfg.StatusPort,
			Jobs:        jobs,
			Runs:        runs,
			Schedule:    sched,
			Limiter:     limiter,
			BaseContext: gctx,
		}, logger)
		g.Go(func() error { return srv.Run(gctx) })
	}

	if bus != nil {
		g.Go(func() error {
			return bus.ConsumeRunRequests(gctx, cli.RunRequestHandler(jobs, logger))
		})
	}

	return g.Wait()
}
