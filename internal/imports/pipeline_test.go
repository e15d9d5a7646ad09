package imports

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

func TestImportCreatesThenUpdatesThenSkips(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	e.product("B")
	p := e.pipeline()
	ctx := context.Background()

	job := e.job(writeCSV(t, "sku,price", "A,10.00", "B,20.00"), skuPrice(), 25)
	e.drive(p, job)
	require.Equal(t, enums.ImportStatusCompleted, job.Status)
	assert.Equal(t, 2, job.Results.Created)
	assert.EqualValues(t, 2, e.itemCount())

	items, err := e.lists.Items(ctx, e.list.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Price().Equal(types.NewPrice(decimal.NewFromInt(10), enums.CurrencyUSD)))
	assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(1)))
	require.NotNil(t, items[0].PriceListID)
	assert.Equal(t, e.list.ID, *items[0].PriceListID)

	update := e.job(writeCSV(t, "sku,price", "A,11.00", "B,21.00"), skuPrice(), 25)
	e.drive(p, update)
	assert.Equal(t, 0, update.Results.Created)
	assert.Equal(t, 2, update.Results.Updated)
	assert.Equal(t, []string{"A", "B"}, update.Results.UpdatedIdentifiers)
	assert.EqualValues(t, 2, e.itemCount())
	items, err = e.lists.Items(ctx, e.list.ID)
	require.NoError(t, err)
	assert.True(t, items[1].Price().Equal(types.NewPrice(decimal.NewFromInt(21), enums.CurrencyUSD)))

	skipOpts := skuPrice()
	skipOpts.Strategy = enums.ImportStrategySkipExisting
	skip := e.job(writeCSV(t, "sku,price", "A,1.00", "B,2.00"), skipOpts, 25)
	e.drive(p, skip)
	assert.Equal(t, 0, skip.Results.Created)
	assert.Equal(t, 0, skip.Results.Updated)
	assert.Equal(t, []string{"A", "B"}, skip.Results.SkippedIdentifiers())
	assert.Equal(t, SkipExisting, skip.Results.Skipped[0].Reason)
	assert.EqualValues(t, 2, e.itemCount())
	assert.Contains(t, skip.Message, "skipped 2")
}

func TestImportBatchesAndReportsProgress(t *testing.T) {
	e := newEnv(t)
	lines := []string{"sku,price"}
	for i := 0; i < 60; i++ {
		sku := fmt.Sprintf("SKU-%02d", i)
		e.product(sku)
		lines = append(lines, sku+",1.50")
	}
	job := e.job(writeCSV(t, lines...), skuPrice(), 25)
	p := e.pipeline()
	ctx := context.Background()

	require.NoError(t, p.Advance(ctx, job))
	assert.Equal(t, 60, job.Rows.Total)
	assert.Equal(t, 25, job.Rows.Processed)
	assert.InDelta(t, 25.0/60.0, job.Fraction, 1e-9)
	assert.Equal(t, enums.ImportStatusRunning, job.Status)

	require.NoError(t, p.Advance(ctx, job))
	assert.InDelta(t, 50.0/60.0, job.Fraction, 1e-9)

	require.NoError(t, p.Advance(ctx, job))
	assert.Equal(t, enums.ImportStepCleanup, job.CurrentStep())
	assert.Equal(t, 0.0, job.Fraction)

	require.NoError(t, p.Advance(ctx, job))
	assert.True(t, job.Done())
	assert.Equal(t, 60, job.Results.Created)
	assert.EqualValues(t, 60, e.itemCount())

	ids, err := e.lists.ItemIDs(ctx, e.list.ID)
	require.NoError(t, err)
	items, err := e.lists.Items(ctx, e.list.ID)
	require.NoError(t, err)
	assert.Equal(t, e.products["SKU-00"].Ref.ID, items[0].PurchasableID)
	assert.Equal(t, e.products["SKU-59"].Ref.ID, items[len(items)-1].PurchasableID)
	assert.Len(t, ids, 60)
}

func TestImportSkipsBadRowsAndStillAdvances(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	e.product("C")
	e.product("D")
	e.product("E")
	opts := Options{Mapping: Mapping{IdentifierColumn: "sku", PriceColumn: "price", ListPriceColumn: "msrp", QuantityColumn: "qty"}}
	job := e.job(writeCSV(t,
		"sku,price,msrp,qty",
		"A,5.00,7.00,",
		"MISSING,1.00,,",
		"C,abc,,",
		"D,2.00,,-3",
		"E,2.00,zz,10",
		",1.00,,",
	), opts, 2)

	calls := e.drive(e.pipeline(), job)
	require.Equal(t, enums.ImportStatusCompleted, job.Status)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 6, job.Rows.Processed)
	assert.Equal(t, 1, job.Results.Created)

	reasons := map[string]string{}
	for _, s := range job.Results.Skipped {
		reasons[s.Identifier] = s.Reason
	}
	assert.Equal(t, map[string]string{
		"MISSING": SkipNotFound,
		"C":       SkipInvalidPrice,
		"D":       SkipInvalidQuantity,
		"E":       SkipInvalidListPrice,
		"":        SkipNotFound,
	}, reasons)

	items, err := e.lists.Items(context.Background(), e.list.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ListPrice())
	assert.True(t, items[0].ListPrice().Equal(types.NewPrice(decimal.NewFromInt(7), enums.CurrencyUSD)))
}

func TestReimportMatchesOnPurchasableRegardlessOfQuantity(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	p := e.pipeline()
	ctx := context.Background()
	opts := Options{Mapping: Mapping{IdentifierColumn: "sku", PriceColumn: "price", QuantityColumn: "qty"}}

	first := e.job(writeCSV(t, "sku,price,qty", "A,10.00,1"), opts, 25)
	e.drive(p, first)
	require.Equal(t, 1, first.Results.Created)

	update := e.job(writeCSV(t, "sku,price,qty", "A,8.00,5"), opts, 25)
	e.drive(p, update)
	assert.Equal(t, 0, update.Results.Created)
	assert.Equal(t, 1, update.Results.Updated)
	assert.Equal(t, []string{"A"}, update.Results.UpdatedIdentifiers)
	assert.EqualValues(t, 1, e.itemCount())

	item, err := e.lists.FindItem(ctx, e.list.ID, e.products["A"].Ref)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(5)))
	assert.True(t, item.PriceAmount.Equal(decimal.NewFromInt(8)))

	skipOpts := opts
	skipOpts.Strategy = enums.ImportStrategySkipExisting
	skip := e.job(writeCSV(t, "sku,price,qty", "A,7.00,9"), skipOpts, 25)
	e.drive(p, skip)
	assert.Equal(t, 0, skip.Results.Created)
	assert.Equal(t, []string{"A"}, skip.Results.SkippedIdentifiers())
	assert.EqualValues(t, 1, e.itemCount())
}

func TestDuplicateRowsInOneFileUpdateTheSameItem(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	opts := Options{Mapping: Mapping{IdentifierColumn: "sku", PriceColumn: "price", QuantityColumn: "qty"}}

	job := e.job(writeCSV(t, "sku,price,qty", "A,10,1", "A,8,10", "A,9,2"), opts, 2)
	e.drive(e.pipeline(), job)
	assert.Equal(t, 1, job.Results.Created)
	assert.Equal(t, 2, job.Results.Updated)
	assert.Equal(t, []string{"A", "A"}, job.Results.UpdatedIdentifiers)
	assert.EqualValues(t, 1, e.itemCount())

	item, err := e.lists.FindItem(context.Background(), e.list.ID, e.products["A"].Ref)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.True(t, item.PriceAmount.Equal(decimal.NewFromInt(9)))
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(2)))
}

func TestPurgeEmptiesListBeforeImport(t *testing.T) {
	e := newEnv(t)
	e.seedItems(30)
	e.product("A")
	opts := skuPrice()
	opts.Purge = true
	job := e.job(writeCSV(t, "sku,price", "A,3.00"), opts, 25)
	require.Equal(t, []enums.ImportStep{enums.ImportStepPurge, enums.ImportStepRows, enums.ImportStepCleanup}, job.Steps)

	p := e.pipeline()
	ctx := context.Background()
	require.NoError(t, p.Advance(ctx, job))
	assert.Equal(t, 30, job.Purge.Total)
	assert.Equal(t, 25, job.Purge.Deleted)
	assert.InDelta(t, 25.0/30.0, job.Fraction, 1e-9)
	assert.EqualValues(t, 5, e.itemCount())

	require.NoError(t, p.Advance(ctx, job))
	assert.Equal(t, 30, job.Purge.Deleted)
	assert.EqualValues(t, 0, e.itemCount())
	assert.Equal(t, enums.ImportStepRows, job.CurrentStep())

	e.drive(p, job)
	assert.EqualValues(t, 1, e.itemCount())
}

func TestPurgeOnEmptyListFinishesImmediately(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	opts := skuPrice()
	opts.Purge = true
	job := e.job(writeCSV(t, "sku,price", "A,3.00"), opts, 25)

	require.NoError(t, e.pipeline().Advance(context.Background(), job))
	assert.Equal(t, enums.ImportStepRows, job.CurrentStep())
	assert.Equal(t, 0, job.Purge.Total)
}

func TestStepFailureAbortsAndNamesTheStep(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	e.product("B")
	path := writeCSV(t, "sku,price", "A,1", "B,2")
	job := e.job(path, skuPrice(), 1)
	p := e.pipeline()
	ctx := context.Background()

	require.NoError(t, p.Advance(ctx, job))
	require.NoError(t, os.Remove(path))

	err := p.Advance(ctx, job)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeImportFailed))
	assert.Equal(t, enums.ImportStatusFailed, job.Status)
	require.NotNil(t, job.Failure)
	assert.Equal(t, enums.ImportStepRows, job.Failure.Step)
	assert.Equal(t, job.PriceListID.String(), job.Failure.Args["price_list_id"])
	assert.Contains(t, job.Message, "An error occurred while processing import_rows")
	assert.Equal(t, 1, job.Rows.Processed)

	assert.EqualValues(t, 1, e.itemCount())
	require.NoError(t, p.Advance(ctx, job))
	assert.Equal(t, enums.ImportStatusFailed, job.Status)
}

func TestCleanupRemovesFileAndSwallowsErrors(t *testing.T) {
	path := writeCSV(t, "sku,price")
	job := &JobContext{FilePath: path}
	step := NewCleanupStep(nil)

	progress, err := step.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 1.0, progress.Fraction)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	progress, err = step.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 1.0, progress.Fraction)

	step.remove = func(string) error { return errors.New("permission denied") }
	progress, err = step.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 1.0, progress.Fraction)
}

func TestUnknownStepFailsJob(t *testing.T) {
	job := &JobContext{Steps: []enums.ImportStep{"transform"}, Status: enums.ImportStatusQueued}
	err := NewPipeline(nil, nil, nil).Advance(context.Background(), job)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeImportFailed))
	assert.Equal(t, enums.ImportStatusFailed, job.Status)
}

func TestJobContextRoundTripKeepsCursor(t *testing.T) {
	e := newEnv(t)
	e.product("A")
	e.product("B")
	job := e.job(writeCSV(t, "sku,price", "A,1", "B,2"), skuPrice(), 1)
	p := e.pipeline()
	require.NoError(t, p.Advance(context.Background(), job))

	data, err := job.Marshal()
	require.NoError(t, err)
	restored, err := UnmarshalJobContext(data)
	require.NoError(t, err)
	assert.Equal(t, job.Rows, restored.Rows)

	e.drive(p, restored)
	assert.Equal(t, 2, restored.Results.Created)
	assert.EqualValues(t, 2, e.itemCount())
}
