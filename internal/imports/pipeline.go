package imports

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/metrics"
)

// Pipeline drives a job through its planned steps one invocation at a time.
type Pipeline struct {
	steps   map[enums.ImportStep]Step
	metrics *metrics.ImportMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewPipeline(steps []Step, m *metrics.ImportMetrics, logg *logger.Logger) *Pipeline {
	if logg == nil {
		logg = logger.Nop()
	}
	byName := make(map[enums.ImportStep]Step, len(steps))
	for _, step := range steps {
		byName[step.Name()] = step
	}
	return &Pipeline{steps: byName, metrics: m, logg: logg, now: time.Now}
}

// NewDefaultPipeline wires the purge, row import and cleanup steps.
func NewDefaultPipeline(items itemStore, catalog purchasableFinder, m *metrics.ImportMetrics, logg *logger.Logger) *Pipeline {
	return NewPipeline([]Step{
		NewPurgeStep(items),
		NewRowImportStep(items, catalog, logg),
		NewCleanupStep(logg),
	}, m, logg)
}

// Advance runs one invocation of the job's current step and moves the cursor on when the
// step reports completion. A step error marks the job failed; earlier mutations are kept.
func (p *Pipeline) Advance(ctx context.Context, job *JobContext) error {
	if job.Done() {
		return nil
	}
	name := job.CurrentStep()
	if name == "" {
		p.finish(ctx, job)
		return nil
	}
	step, ok := p.steps[name]
	if !ok {
		return p.fail(ctx, job, name, nil, fmt.Errorf("no handler registered for step %q", name))
	}

	job.Status = enums.ImportStatusRunning
	ctx = p.logg.WithField(ctx, "import_step", string(name))

	createdBefore, updatedBefore, skippedBefore := job.Results.Created, job.Results.Updated, len(job.Results.Skipped)
	start := p.now()
	progress, err := step.Run(ctx, job)
	p.metrics.ObserveStep(string(name), p.now().Sub(start))
	if err != nil {
		return p.fail(ctx, job, name, step.Args(job), err)
	}
	p.metrics.AddRows("created", job.Results.Created-createdBefore)
	p.metrics.AddRows("updated", job.Results.Updated-updatedBefore)
	p.metrics.AddRows("skipped", len(job.Results.Skipped)-skippedBefore)

	job.Fraction = clamp(progress.Fraction)
	job.Message = progress.Message
	job.UpdatedAt = p.now()
	if job.Fraction >= 1 {
		job.StepIndex++
		p.logg.Info(ctx, "import step finished")
		if job.CurrentStep() == "" {
			p.finish(ctx, job)
		} else {
			job.Fraction = 0
		}
	}
	return nil
}

func (p *Pipeline) finish(ctx context.Context, job *JobContext) {
	job.Status = enums.ImportStatusCompleted
	job.Fraction = 1
	job.Message = FinishMessage(job)
	job.UpdatedAt = p.now()
	p.metrics.IncJob(string(job.Status))
	p.logg.Info(ctx, job.Message)
}

func (p *Pipeline) fail(ctx context.Context, job *JobContext, step enums.ImportStep, args map[string]any, cause error) error {
	job.Status = enums.ImportStatusFailed
	job.Failure = &Failure{Step: step, Args: args, Message: cause.Error()}
	job.Message = FinishMessage(job)
	job.UpdatedAt = p.now()
	p.metrics.IncStepFailure(string(step))
	p.metrics.IncJob(string(job.Status))
	p.logg.Error(ctx, "import step failed", cause)
	return pkgerrors.Wrap(pkgerrors.CodeImportFailed, cause, job.Message).
		WithDetails(map[string]any{"step": step, "args": args})
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
