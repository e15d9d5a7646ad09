package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/metrics"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 10 * time.Minute
)

// Lock keeps replicas of the cron worker from sweeping at the same time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Outcome is the result of one job within a sweep.
type Outcome struct {
	Job      string
	Affected int
	Took     time.Duration
	Err      error
}

// Service runs every registered job once per interval while holding the cron lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	case params.Registry == nil:
		return nil, errors.New("registry required")
	}
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.logg.Error(ctx, "cron sweep aborted", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep runs each job once. It returns nil outcomes when another replica holds the lock.
// A failing job does not stop the jobs after it.
func (s *Service) Sweep(ctx context.Context) ([]Outcome, error) {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping sweep")
		return nil, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	jobs := s.registry.Jobs()
	outcomes := make([]Outcome, 0, len(jobs))
	for _, job := range jobs {
		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}
		outcomes = append(outcomes, s.runJob(ctx, job))
	}
	return outcomes, nil
}

func (s *Service) runJob(ctx context.Context, job Job) Outcome {
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", job.Name()), s.jobTimeout)
	defer cancel()

	start := time.Now()
	affected, err := job.Run(jobCtx)
	out := Outcome{Job: job.Name(), Affected: affected, Took: time.Since(start), Err: err}
	s.metrics.Observe(out.Job, out.Took, out.Affected, out.Err)

	logCtx := s.logg.WithFields(jobCtx, map[string]any{
		"affected":    out.Affected,
		"duration_ms": out.Took.Milliseconds(),
	})
	if err != nil {
		s.logg.Error(logCtx, "cron job failed", err)
	} else {
		s.logg.Info(logCtx, "cron job finished")
	}
	return out
}
