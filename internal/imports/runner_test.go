package imports

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

type recordingNotifier struct {
	mu       sync.Mutex
	queued   []uuid.UUID
	finished []Summary
	err      error
}

func (n *recordingNotifier) Enqueue(_ context.Context, job *JobContext) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queued = append(n.queued, job.ID)
	return n.err
}

func (n *recordingNotifier) JobFinished(_ context.Context, summary Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, summary)
	return n.err
}

func newTestRunner(t *testing.T, e *env, store JobStore, locker Locker, notifier Notifier) *Runner {
	t.Helper()
	r, err := NewRunner(RunnerParams{Store: store, Locker: locker, Pipeline: e.pipeline(), Notifier: notifier})
	require.NoError(t, err)
	return r
}

func TestRunnerRunsToCompletionAndNotifies(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	path := writeCSV(t, "sku,price", "A,4.00", "NOPE,1.00")
	job := e.job(path, skuPrice(), 1)

	store := NewMemoryJobStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, job))
	_, _ = store.SetActive(ctx, job.PriceListID, job.ID)

	notifier := &recordingNotifier{}
	runner := newTestRunner(t, e, store, NewLocalLocker(), notifier)

	done, err := runner.RunToCompletion(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportStatusCompleted, done.Status)

	require.Len(t, notifier.finished, 1)
	summary := notifier.finished[0]
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, []string{"NOPE"}, summary.SkippedIdentifiers)
	assert.Equal(t, []string{}, summary.UpdatedIdentifiers)

	_, active, _ := store.ActiveJob(ctx, job.PriceListID)
	assert.False(t, active)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	again, err := runner.Advance(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportStatusCompleted, again.Status)
	assert.Len(t, notifier.finished, 1)
}

func TestRunnerRejectsConcurrentInvocation(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	job := e.job(writeCSV(t, "sku,price", "A,4.00"), skuPrice(), 25)
	store := NewMemoryJobStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, job))

	locker := NewLocalLocker()
	held, _ := locker.ForPriceList(job.PriceListID)
	ok, _ := held.Acquire(ctx)
	require.True(t, ok)

	runner := newTestRunner(t, e, store, locker, nil)
	_, err := runner.Advance(ctx, job.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	require.NoError(t, held.Release(ctx))
	advanced, err := runner.Advance(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, advanced.Rows.Processed)

	saved, err := store.Load(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Rows.Processed)
}

func TestRunnerWithRedisLockAndStore(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	client, mr := newRedis(t)
	store, err := NewRedisJobStore(client, 0)
	require.NoError(t, err)
	job := e.job(writeCSV(t, "sku,price", "A,4.00"), skuPrice(), 25)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, job))

	runner := newTestRunner(t, e, store, NewRedisLocker(client, 0), nil)
	done, err := runner.RunToCompletion(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, done.Done())
	assert.False(t, mr.Exists(client.ImportLockKey(job.PriceListID.String())))
}

func TestRunnerPersistsFailure(t *testing.T) {
	e := newEnv(t)
	path := writeCSV(t, "sku,price", "A,1")
	job := e.job(path, skuPrice(), 25)
	require.NoError(t, os.Remove(path))
	store := NewMemoryJobStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, job))
	notifier := &recordingNotifier{}

	runner := newTestRunner(t, e, store, NewLocalLocker(), notifier)
	failed, err := runner.RunToCompletion(ctx, job.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeImportFailed))
	assert.Equal(t, enums.ImportStatusFailed, failed.Status)

	saved, err := store.Load(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.Failure)
	assert.Equal(t, enums.ImportStepRows, saved.Failure.Step)
	require.Len(t, notifier.finished, 1)
	assert.Equal(t, enums.ImportStatusFailed, notifier.finished[0].Status)
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	e := newEnv(t)
	runner := newTestRunner(t, e, NewMemoryJobStore(), NewLocalLocker(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.RunToCompletion(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(RunnerParams{})
	assert.Error(t, err)
	_, err = NewRunner(RunnerParams{Store: NewMemoryJobStore()})
	assert.Error(t, err)
	_, err = NewRunner(RunnerParams{Store: NewMemoryJobStore(), Locker: NewLocalLocker()})
	assert.Error(t, err)
}
