package imports

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

func newTestService(t *testing.T, e *env, notifier *recordingNotifier, maxBytes int64) (*Service, *MemoryJobStore, string) {
	t.Helper()
	store := NewMemoryJobStore()
	dir := t.TempDir()
	runner := newTestRunner(t, e, store, NewLocalLocker(), notifier)
	svc, err := NewService(ServiceParams{
		Lists:          e.lists,
		Stores:         e.stores,
		Store:          store,
		Enqueuer:       notifier,
		Runner:         runner,
		UploadDir:      dir,
		BatchSize:      10,
		MaxUploadBytes: maxBytes,
	})
	require.NoError(t, err)
	return svc, store, dir
}

func stagedFiles(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestStartImportQueuesJob(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	notifier := &recordingNotifier{}
	svc, _, dir := newTestService(t, e, notifier, 0)
	ctx := context.Background()

	job, err := svc.StartImport(ctx, StartInput{
		PriceListID: e.list.ID,
		Filename:    "prices.csv",
		Upload:      strings.NewReader("sku,price\nA,2.50\n"),
		Options:     skuPrice(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ImportStatusQueued, job.Status)
	assert.Equal(t, enums.CurrencyUSD, job.Currency)
	assert.Equal(t, 10, job.BatchSize)
	assert.Equal(t, "prices.csv", job.Filename)
	assert.Equal(t, []uuid.UUID{job.ID}, notifier.queued)
	assert.Len(t, stagedFiles(t, dir), 1)

	_, err = svc.StartImport(ctx, StartInput{
		PriceListID: e.list.ID,
		Filename:    "again.csv",
		Upload:      strings.NewReader("sku,price\nA,3\n"),
		Options:     skuPrice(),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Len(t, stagedFiles(t, dir), 1)

	done, err := svc.Run(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, done.Results.Created)
	assert.Empty(t, stagedFiles(t, dir))

	status, err := svc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportStatusCompleted, status.Status)

	_, err = svc.StartImport(ctx, StartInput{
		PriceListID: e.list.ID,
		Filename:    "third.csv",
		Upload:      strings.NewReader("sku,price\nA,3\n"),
		Options:     skuPrice(),
	})
	require.NoError(t, err)
}

func TestStartImportValidatesBeforeQueueing(t *testing.T) {
	e := newEnv(t)
	notifier := &recordingNotifier{}
	svc, _, dir := newTestService(t, e, notifier, 64)
	ctx := context.Background()

	cases := map[string]StartInput{
		"missing column": {PriceListID: e.list.ID, Filename: "a.csv", Upload: strings.NewReader("sku,cost\nA,1\n"), Options: skuPrice()},
		"empty file":     {PriceListID: e.list.ID, Filename: "a.csv", Upload: strings.NewReader(""), Options: skuPrice()},
		"no file":        {PriceListID: e.list.ID, Filename: "a.csv", Options: skuPrice()},
		"wrong type":     {PriceListID: e.list.ID, Filename: "a.xlsx", Upload: strings.NewReader("sku,price\n"), Options: skuPrice()},
		"too large":      {PriceListID: e.list.ID, Filename: "a.csv", Upload: strings.NewReader("sku,price\n" + strings.Repeat("A,1\n", 40)), Options: skuPrice()},
	}
	for name, input := range cases {
		_, err := svc.StartImport(ctx, input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: %v", name, err)
	}
	assert.Empty(t, stagedFiles(t, dir))
	assert.Empty(t, notifier.queued)

	_, err := svc.StartImport(ctx, StartInput{PriceListID: uuid.New(), Filename: "a.csv", Upload: strings.NewReader("sku,price\n"), Options: skuPrice()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestStartImportReleasesListWhenEnqueueFails(t *testing.T) {
	e := newEnv(t)
	notifier := &recordingNotifier{err: errors.New("pubsub unavailable")}
	svc, store, dir := newTestService(t, e, notifier, 0)
	ctx := context.Background()

	_, err := svc.StartImport(ctx, StartInput{PriceListID: e.list.ID, Filename: "a.csv", Upload: strings.NewReader("sku,price\nA,1\n"), Options: skuPrice()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, active, _ := store.ActiveJob(ctx, e.list.ID)
	assert.False(t, active)
	assert.Empty(t, stagedFiles(t, dir))
}

type activeLookupFailingStore struct {
	*MemoryJobStore
}

func (activeLookupFailingStore) ActiveJob(context.Context, uuid.UUID) (uuid.UUID, bool, error) {
	return uuid.Nil, false, errors.New("redis unavailable")
}

func TestStartImportConflictDetails(t *testing.T) {
	e := newEnv(t)
	notifier := &recordingNotifier{}
	ctx := context.Background()
	running := uuid.New()

	start := func(store JobStore) *pkgerrors.Error {
		t.Helper()
		svc, err := NewService(ServiceParams{
			Lists:     e.lists,
			Stores:    e.stores,
			Store:     store,
			Enqueuer:  notifier,
			Runner:    newTestRunner(t, e, store, NewLocalLocker(), notifier),
			UploadDir: t.TempDir(),
		})
		require.NoError(t, err)
		_, err = svc.StartImport(ctx, StartInput{PriceListID: e.list.ID, Filename: "a.csv", Upload: strings.NewReader("sku,price\nA,1\n"), Options: skuPrice()})
		var typed *pkgerrors.Error
		require.True(t, errors.As(err, &typed))
		require.Equal(t, pkgerrors.CodeConflict, typed.Code())
		return typed
	}

	healthy := NewMemoryJobStore()
	_, err := healthy.SetActive(ctx, e.list.ID, running)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"job_id": running.String()}, start(healthy).Details())

	broken := activeLookupFailingStore{MemoryJobStore: NewMemoryJobStore()}
	_, err = broken.SetActive(ctx, e.list.ID, running)
	require.NoError(t, err)
	assert.Nil(t, start(broken).Details())
	assert.Empty(t, notifier.queued)
}
