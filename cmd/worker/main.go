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
	"github.com/angelmondragon/pricelist-backend/internal/imports/consumer"
	"github.com/angelmondragon/pricelist-backend/pkg/env"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Open(ctx, app.OpenOptions{Service: "worker", Redis: app.Required, PubSub: app.Required})
	if err != nil {
		logger.New(logger.Options{ServiceName: "worker"}).Error(ctx, "worker bootstrap failed", err)
		os.Exit(1)
	}
	ctx = rt.Logger.WithFields(ctx, map[string]any{"env": rt.Config.App.Env, "instance": env.InstanceID()})

	code := 0
	if err := run(ctx, rt); err != nil && !errors.Is(err, context.Canceled) {
		rt.Logger.Error(ctx, "worker stopped with error", err)
		code = 1
	}
	if err := rt.Close(); err != nil {
		rt.Logger.Error(ctx, "closing clients", err)
	}
	rt.Logger.Info(ctx, "worker stopped")
	stop()
	os.Exit(code)
}

func run(ctx context.Context, rt *app.Runtime) error {
	services, err := app.Build(rt.Params(prometheus.DefaultRegisterer))
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	importConsumer, err := consumer.NewConsumer(services.Runner, rt.PubSub.ImportSubscription(), rt.Logger)
	if err != nil {
		return err
	}
	svc, err := NewService(rt.Logger, rt.Dependencies(), importConsumer)
	if err != nil {
		return err
	}
	rt.Logger.Info(ctx, "starting worker")
	return svc.Run(ctx)
}
