package imports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/internal/catalog"
	"github.com/angelmondragon/pricelist-backend/internal/pricelists"
	"github.com/angelmondragon/pricelist-backend/internal/stores"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

type env struct {
	t        *testing.T
	db       *gorm.DB
	lists    *pricelists.Repository
	stores   *stores.Repository
	catalog  *catalog.Repository
	store    *models.Store
	list     *models.PriceList
	products map[string]*catalog.Purchasable
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))

	ctx := context.Background()
	e := &env{
		t:        t,
		db:       db,
		lists:    pricelists.NewRepository(db),
		stores:   stores.NewRepository(db),
		catalog:  catalog.NewRepository(db),
		products: map[string]*catalog.Purchasable{},
	}
	e.store, err = e.stores.Create(ctx, stores.CreateStoreInput{Name: "Main", DefaultCurrency: enums.CurrencyUSD})
	require.NoError(t, err)

	e.list = &models.PriceList{
		StoreID:         e.store.ID,
		Name:            "Wholesale",
		PurchasableType: enums.PurchasableProductVariation,
		StartDate:       types.DateOf(time.Now().UTC()).AddMonths(-3),
		Published:       true,
	}
	require.NoError(t, e.lists.CreateList(ctx, e.list))
	return e
}

func (e *env) product(sku string) *catalog.Purchasable {
	e.t.Helper()
	if p, ok := e.products[sku]; ok {
		return p
	}
	p, err := e.catalog.Create(context.Background(), catalog.CreateInput{
		Type:      enums.PurchasableProductVariation,
		SKU:       sku,
		Label:     "Product " + sku,
		ListPrice: types.NewPrice(decimal.NewFromInt(99), enums.CurrencyUSD),
	})
	require.NoError(e.t, err)
	e.products[sku] = p
	return p
}

func (e *env) seedItems(n int) {
	e.t.Helper()
	ctx := context.Background()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		item := &models.PriceListItem{
			PurchasableType: enums.PurchasableProductVariation,
			PurchasableID:   uuid.New(),
			Quantity:        decimal.NewFromInt(1),
		}
		item.SetPrice(types.NewPrice(decimal.NewFromInt(1), enums.CurrencyUSD))
		require.NoError(e.t, e.lists.CreateItem(ctx, item))
		ids = append(ids, item.ID)
	}
	require.NoError(e.t, e.lists.AppendItems(ctx, e.list.ID, ids))
}

func (e *env) itemCount() int64 {
	e.t.Helper()
	n, err := e.lists.CountItems(context.Background(), e.list.ID)
	require.NoError(e.t, err)
	return n
}

func (e *env) pipeline() *Pipeline {
	return NewDefaultPipeline(e.lists, e.catalog, nil, nil)
}

func (e *env) job(path string, opts Options, batch int) *JobContext {
	e.t.Helper()
	require.NoError(e.t, opts.Validate(e.list.PurchasableType, mustHeader(e.t, path)))
	return NewJobContext(e.list.ID, e.store.DefaultCurrency, path, filepath.Base(path), opts, batch, time.Now().UTC())
}

// drive advances the job until it is terminal and returns the number of invocations.
func (e *env) drive(p *Pipeline, job *JobContext) int {
	e.t.Helper()
	calls := 0
	for !job.Done() {
		calls++
		require.Less(e.t, calls, 1000, "pipeline did not terminate")
		if err := p.Advance(context.Background(), job); err != nil {
			return calls
		}
	}
	return calls
}

func writeCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func mustHeader(t *testing.T, path string) []string {
	t.Helper()
	header, err := ReadHeader(path)
	require.NoError(t, err)
	return header
}

func skuPrice() Options {
	return Options{Mapping: Mapping{IdentifierColumn: "sku", PriceColumn: "price"}}
}
