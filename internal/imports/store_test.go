package imports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/redis"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})), mr
}

func testJob() *JobContext {
	return NewJobContext(uuid.New(), enums.CurrencyUSD, "/tmp/x.csv", "x.csv", skuPrice(), 25, time.Now().UTC())
}

func TestRedisJobStoreRoundTrip(t *testing.T) {
	client, mr := newRedis(t)
	store, err := NewRedisJobStore(client, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	job := testJob()
	job.Rows = RowCursor{Started: true, Total: 10, Processed: 4}
	job.Results.Skipped = []SkippedRow{{Identifier: "X", Line: 3, Reason: SkipNotFound}}
	require.NoError(t, store.Save(ctx, job))
	assert.Equal(t, time.Hour, mr.TTL(client.ImportJobKey(job.ID.String())))

	loaded, err := store.Load(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Rows, loaded.Rows)
	assert.Equal(t, job.Results.Skipped, loaded.Results.Skipped)
	assert.Equal(t, []enums.ImportStep{enums.ImportStepRows, enums.ImportStepCleanup}, loaded.Steps)

	_, err = store.Load(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRedisJobStoreActiveMarker(t *testing.T) {
	client, _ := newRedis(t)
	store, _ := NewRedisJobStore(client, 0)
	ctx := context.Background()
	list := uuid.New()
	first, second := uuid.New(), uuid.New()

	ok, err := store.SetActive(ctx, list, first)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.SetActive(ctx, list, second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.ClearActive(ctx, list, second))
	active, found, err := store.ActiveJob(ctx, list)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, first, active)

	require.NoError(t, store.ClearActive(ctx, list, first))
	_, found, err = store.ActiveJob(ctx, list)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisJobStoreReportsDependencyErrors(t *testing.T) {
	client, mr := newRedis(t)
	store, _ := NewRedisJobStore(client, time.Hour)
	mr.Close()

	err := store.Save(context.Background(), testJob())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestMemoryJobStore(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()
	job := testJob()

	require.NoError(t, store.Save(ctx, job))
	job.Rows.Processed = 99
	loaded, err := store.Load(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Rows.Processed)

	ok, _ := store.SetActive(ctx, job.PriceListID, job.ID)
	assert.True(t, ok)
	ok, _ = store.SetActive(ctx, job.PriceListID, uuid.New())
	assert.False(t, ok)
	require.NoError(t, store.ClearActive(ctx, job.PriceListID, job.ID))
	_, found, _ := store.ActiveJob(ctx, job.PriceListID)
	assert.False(t, found)

	_, err = store.Load(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
