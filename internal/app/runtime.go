package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/migrate"
	"github.com/angelmondragon/pricelist-backend/pkg/pubsub"
	"github.com/angelmondragon/pricelist-backend/pkg/redis"
)

// Requirement says whether a binary needs an optional client.
type Requirement int

const (
	Skip Requirement = iota
	// IfConfigured opens the client only when its connection settings are present.
	IfConfigured
	Required
)

// OpenOptions selects what Open brings up for one binary.
type OpenOptions struct {
	Service   string
	EnvFile   string
	LogOutput io.Writer
	Redis     Requirement
	PubSub    Requirement
}

// Pinger is a dependency probed for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is a named client in the order it was opened.
type Dependency struct {
	Name string
	Pinger
}

// Runtime holds the configuration and clients one process runs on.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client
	PubSub *pubsub.Client

	deps    []Dependency
	closers []func() error
}

// Open loads the dotenv file and configuration, builds the logger and connects the
// database (running dev migrations), then Redis and Pub/Sub as requested. Clients
// opened before a failure are closed again.
func Open(ctx context.Context, opts OpenOptions) (rt *Runtime, err error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	envMissing := false
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
		envMissing = true
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.Service != "" {
		cfg.Service.Kind = opts.Service
	}

	rt = &Runtime{
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: cfg.Service.Kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
			Output:      opts.LogOutput,
		}),
	}
	if envMissing {
		rt.Logger.Debug(ctx, envFile+" not found, relying on environment")
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, rt.Close())
			rt = nil
		}
	}()

	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return rt, fmt.Errorf("bootstrap database: %w", err)
	}
	rt.track("database", rt.DB, rt.DB.Close)
	if err = migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return rt, fmt.Errorf("dev migrations: %w", err)
	}

	if wanted(opts.Redis, cfg.Redis.URL != "" || cfg.Redis.Address != "") {
		rt.Redis, err = redis.New(ctx, cfg.Redis, rt.Logger)
		if err != nil {
			return rt, fmt.Errorf("bootstrap redis: %w", err)
		}
		rt.track("redis", rt.Redis, rt.Redis.Close)
	}

	if wanted(opts.PubSub, strings.TrimSpace(cfg.GCP.ProjectID) != "") {
		rt.PubSub, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, rt.Logger)
		if err != nil {
			return rt, fmt.Errorf("bootstrap pubsub: %w", err)
		}
		rt.track("pubsub", rt.PubSub, rt.PubSub.Close)
	} else if opts.PubSub == IfConfigured {
		rt.Logger.Warn(ctx, "gcp project id not set, import jobs must be advanced over http")
	}
	return rt, nil
}

func wanted(req Requirement, configured bool) bool {
	return req == Required || (req == IfConfigured && configured)
}

func (r *Runtime) track(name string, p Pinger, closeFn func() error) {
	r.deps = append(r.deps, Dependency{Name: name, Pinger: p})
	r.closers = append(r.closers, func() error {
		if err := closeFn(); err != nil {
			return fmt.Errorf("close %s: %w", name, err)
		}
		return nil
	})
}

// Dependencies lists the opened clients, database first.
func (r *Runtime) Dependencies() []Dependency {
	return append([]Dependency(nil), r.deps...)
}

// Params hands the opened clients to Build.
func (r *Runtime) Params(reg prometheus.Registerer) Params {
	return Params{
		Config:     r.Config,
		Logger:     r.Logger,
		DB:         r.DB,
		Redis:      r.Redis,
		PubSub:     r.PubSub,
		Registerer: reg,
	}
}

// Close releases the clients in reverse order of opening.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i]())
	}
	r.closers = nil
	return err
}
