package imports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

// Runner performs locked, persisted invocations of the pipeline.
type Runner struct {
	store    JobStore
	locker   Locker
	pipeline *Pipeline
	notifier Notifier
	logg     *logger.Logger
	pause    time.Duration
}

type RunnerParams struct {
	Store    JobStore
	Locker   Locker
	Pipeline *Pipeline
	Notifier Notifier
	Logger   *logger.Logger
	// Pause is waited between invocations in RunToCompletion.
	Pause time.Duration
}

func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Store == nil {
		return nil, errors.New("job store required")
	}
	if params.Locker == nil {
		return nil, errors.New("locker required")
	}
	if params.Pipeline == nil {
		return nil, errors.New("pipeline required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(logg)
	}
	return &Runner{
		store:    params.Store,
		locker:   params.Locker,
		pipeline: params.Pipeline,
		notifier: notifier,
		logg:     logg,
		pause:    params.Pause,
	}, nil
}

// Advance runs exactly one invocation of the job under the price list lock and saves the
// resulting context. Terminal jobs are returned unchanged.
func (r *Runner) Advance(ctx context.Context, jobID uuid.UUID) (job *JobContext, err error) {
	job, err = r.store.Load(ctx, jobID)
	if err != nil || job.Done() {
		return job, err
	}
	ctx = r.logg.WithPriceListID(r.logg.WithJobID(ctx, jobID.String()), job.PriceListID.String())

	lock, err := r.locker.ForPriceList(job.PriceListID)
	if err != nil {
		return job, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build import lock")
	}
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return job, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire import lock")
	}
	if !acquired {
		return job, pkgerrors.New(pkgerrors.CodeConflict, "another import invocation is running for this price list")
	}
	defer func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			err = multierr.Append(err, pkgerrors.Wrap(pkgerrors.CodeDependency, releaseErr, "release import lock"))
		}
	}()

	// reload under the lock so a concurrent driver's cursor is never overwritten
	job, err = r.store.Load(ctx, jobID)
	if err != nil || job.Done() {
		return job, err
	}

	stepErr := r.pipeline.Advance(ctx, job)
	if saveErr := r.store.Save(ctx, job); saveErr != nil {
		return job, multierr.Append(stepErr, saveErr)
	}
	if job.Done() {
		r.finish(ctx, job)
	}
	return job, stepErr
}

// RunToCompletion advances the job until it is terminal. Cancellation is checked
// between invocations only.
func (r *Runner) RunToCompletion(ctx context.Context, jobID uuid.UUID) (*JobContext, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		job, err := r.Advance(ctx, jobID)
		if err != nil {
			return job, err
		}
		if job.Done() {
			return job, nil
		}
		if r.pause > 0 {
			select {
			case <-ctx.Done():
				return job, ctx.Err()
			case <-time.After(r.pause):
			}
		}
	}
}

func (r *Runner) finish(ctx context.Context, job *JobContext) {
	if err := r.store.ClearActive(ctx, job.PriceListID, job.ID); err != nil {
		r.logg.Error(ctx, "failed to clear active import marker", err)
	}
	if err := r.notifier.JobFinished(ctx, Summarize(job)); err != nil {
		r.logg.Error(ctx, "failed to publish import completion", err)
	}
}
