package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/pricelist-backend/internal/app"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

const (
	heartbeatInterval  = 30 * time.Second
	readinessAttempts  = 5
	readinessBaseDelay = time.Second
)

type runnable interface {
	Run(ctx context.Context) error
}

// Service starts the import consumer once every dependency answers a ping.
type Service struct {
	logg     *logger.Logger
	deps     []app.Dependency
	consumer runnable
	backoff  time.Duration
}

func NewService(logg *logger.Logger, deps []app.Dependency, consumer runnable) (*Service, error) {
	if consumer == nil {
		return nil, errors.New("import consumer is required")
	}
	if len(deps) == 0 {
		return nil, errors.New("at least one dependency is required")
	}
	for _, dep := range deps {
		if dep.Pinger == nil {
			return nil, fmt.Errorf("dependency %q has no client", dep.Name)
		}
	}
	return &Service{logg: logg, deps: deps, consumer: consumer, backoff: readinessBaseDelay}, nil
}

// awaitReady pings each dependency, doubling the wait between failed rounds.
func (s *Service) awaitReady(ctx context.Context) error {
	delay := s.backoff
	var lastErr error
	for attempt := 1; attempt <= readinessAttempts; attempt++ {
		if lastErr = s.pingAll(ctx); lastErr == nil {
			s.logg.Info(ctx, "worker.ready")
			return nil
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"attempt": attempt, "error": lastErr.Error()}), "worker.not_ready")
		if attempt == readinessAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("dependencies not ready after %d attempts: %w", readinessAttempts, lastErr)
}

func (s *Service) pingAll(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", dep.Name, err)
		}
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.awaitReady(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.consumer.Run(ctx) }()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case err := <-done:
			if err == nil && ctx.Err() != nil {
				err = ctx.Err()
			}
			return err
		case <-heartbeat.C:
			s.logg.Debug(ctx, "worker.heartbeat")
		}
	}
}
