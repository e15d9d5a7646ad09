package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pricelist-backend/internal/app"
	"github.com/angelmondragon/pricelist-backend/internal/cron"
	"github.com/angelmondragon/pricelist-backend/internal/pricelists"
	"github.com/angelmondragon/pricelist-backend/pkg/env"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/metrics"
	"github.com/angelmondragon/pricelist-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Open(ctx, app.OpenOptions{Service: serviceName, Redis: app.Required})
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(ctx, "cron worker bootstrap failed", err)
		os.Exit(1)
	}
	ctx = rt.Logger.WithFields(ctx, map[string]any{"env": rt.Config.App.Env, "instance": env.InstanceID()})

	code := 0
	if err := run(ctx, rt); err != nil && !errors.Is(err, context.Canceled) {
		rt.Logger.Error(ctx, "cron worker stopped unexpectedly", err)
		code = 1
	}
	if err := rt.Close(); err != nil {
		rt.Logger.Error(ctx, "closing clients", err)
	}
	rt.Logger.Info(ctx, "cron worker stopped")
	stop()
	os.Exit(code)
}

func run(ctx context.Context, rt *app.Runtime) error {
	cfg, logg := rt.Config, rt.Logger
	scope := cfg.App.Env
	if scope == "" {
		scope = "local"
	}
	lock, err := redis.NewLock(rt.Redis, rt.Redis.CronLockKey(serviceName+":"+scope), cfg.Cron.Interval)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	uploads, err := cron.NewStaleUploadCleanupJob(cron.StaleUploadCleanupJobParams{
		Logger: logg,
		Dir:    cfg.Import.UploadDir,
		MaxAge: cfg.Cron.StaleUploadsAge,
	})
	if err != nil {
		return err
	}
	owners, err := cron.NewOwnerBackfillJob(pricelists.NewRepository(rt.DB.DB()), logg)
	if err != nil {
		return err
	}
	registry, err := cron.NewRegistry(uploads, owners)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "interval", cfg.Cron.Interval.String()), "starting cron worker")
	return service.Run(ctx)
}
