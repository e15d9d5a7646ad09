package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pricelist-backend/api/controllers"
	"github.com/angelmondragon/pricelist-backend/api/routes"
	"github.com/angelmondragon/pricelist-backend/internal/app"
	"github.com/angelmondragon/pricelist-backend/pkg/env"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Open(ctx, app.OpenOptions{Service: "api", Redis: app.Required, PubSub: app.IfConfigured})
	if err != nil {
		logger.New(logger.Options{ServiceName: "api"}).Error(ctx, "api bootstrap failed", err)
		os.Exit(1)
	}
	code := 0
	if err := serve(ctx, rt); err != nil {
		rt.Logger.Error(ctx, "api server stopped unexpectedly", err)
		code = 1
	}
	if err := rt.Close(); err != nil {
		rt.Logger.Error(ctx, "closing clients", err)
	}
	stop()
	os.Exit(code)
}

func serve(ctx context.Context, rt *app.Runtime) error {
	cfg, logg := rt.Config, rt.Logger
	services, err := app.Build(rt.Params(prometheus.DefaultRegisterer))
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	ready := make(map[string]controllers.Pinger)
	for _, dep := range rt.Dependencies() {
		ready[dep.Name] = dep.Pinger
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr, "instance": env.InstanceID()})
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: readHeaderTimeout,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Prices:      services.Pricing,
			Eligibility: services.Eligibility,
			PriceLists:  services.PriceLists,
			Imports:     services.Imports,
			Ready:       ready,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
