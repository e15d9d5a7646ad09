package eligibility

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

var fixedNow = time.Date(2026, time.March, 15, 23, 30, 0, 0, time.UTC)

type fixture struct {
	t       *testing.T
	db      *gorm.DB
	store   uuid.UUID
	product types.PurchasableRef
	today   types.Date
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PriceList{}, &models.PriceListItem{}))
	return &fixture{
		t:       t,
		db:      db,
		store:   uuid.New(),
		product: types.PurchasableRef{Type: enums.PurchasableProductVariation, ID: uuid.New()},
		today:   types.DateOf(fixedNow),
	}
}

func (f *fixture) resolver() *Resolver {
	return NewResolver(f.db, WithClock(func() time.Time { return fixedNow }))
}

func (f *fixture) list(mutate func(*models.PriceList)) *models.PriceList {
	f.t.Helper()
	list := &models.PriceList{
		StoreID:         f.store,
		Name:            "list",
		PurchasableType: f.product.Type,
		StartDate:       f.today.AddMonths(-3),
		Published:       true,
	}
	if mutate != nil {
		mutate(list)
	}
	require.NoError(f.t, f.db.Create(list).Error)
	return list
}

func (f *fixture) item(list *models.PriceList, qty int64, amount string) *models.PriceListItem {
	f.t.Helper()
	listID := list.ID
	item := &models.PriceListItem{
		PriceListID:     &listID,
		PurchasableType: f.product.Type,
		PurchasableID:   f.product.ID,
		Quantity:        decimal.NewFromInt(qty),
		Published:       true,
	}
	item.SetPrice(types.NewPrice(decimal.RequireFromString(amount), enums.CurrencyUSD))
	require.NoError(f.t, f.db.Create(item).Error)
	return item
}

func (f *fixture) find(qty int64, ectx Context) []models.PriceListItem {
	f.t.Helper()
	items, err := f.resolver().FindEligibleItems(context.Background(), f.product, decimal.NewFromInt(qty), ectx)
	require.NoError(f.t, err)
	return items
}

func ids(items []models.PriceListItem) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestQuantityThreshold(t *testing.T) {
	f := newFixture(t)
	list := f.list(nil)
	item := f.item(list, 1, "5.00")
	ectx := Context{Customer: Anonymous(), StoreID: f.store}

	got := f.find(1, ectx)
	require.Len(t, got, 1)
	assert.Equal(t, item.ID, got[0].ID)
	assert.True(t, got[0].Price().Equal(types.NewPrice(decimal.NewFromInt(5), enums.CurrencyUSD)))

	require.NoError(t, f.db.Model(item).Update("quantity", decimal.NewFromInt(10)).Error)
	assert.Empty(t, f.find(1, ectx))
	assert.Len(t, f.find(10, ectx), 1)
}

func TestStoreScope(t *testing.T) {
	f := newFixture(t)
	f.item(f.list(func(l *models.PriceList) { l.StoreID = uuid.New() }), 1, "5.00")
	mine := f.item(f.list(nil), 1, "6.00")

	got := f.find(1, Context{Customer: Anonymous(), StoreID: f.store})
	assert.Equal(t, []uuid.UUID{mine.ID}, ids(got))
}

func TestDateWindow(t *testing.T) {
	f := newFixture(t)
	yesterday := f.today.AddDays(-1)
	today := f.today
	f.item(f.list(func(l *models.PriceList) { l.StartDate = f.today.AddDays(1) }), 1, "1.00")
	f.item(f.list(func(l *models.PriceList) { l.EndDate = &yesterday }), 1, "2.00")
	endsToday := f.item(f.list(func(l *models.PriceList) { l.EndDate = &today }), 1, "3.00")
	startsToday := f.item(f.list(func(l *models.PriceList) { l.StartDate = today; l.Weight = 1 }), 1, "4.00")

	got := f.find(1, Context{Customer: Anonymous(), StoreID: f.store})
	assert.ElementsMatch(t, []uuid.UUID{endsToday.ID, startsToday.ID}, ids(got))
}

func TestTargetUserScope(t *testing.T) {
	f := newFixture(t)
	alice := uuid.New()
	bob := uuid.New()
	forAlice := f.item(f.list(func(l *models.PriceList) { l.TargetUserID = &alice }), 1, "1.00")
	f.item(f.list(func(l *models.PriceList) { l.TargetUserID = &bob }), 1, "2.00")
	open := f.item(f.list(func(l *models.PriceList) { l.Weight = 10 }), 1, "3.00")

	got := f.find(1, Context{Customer: Customer{ID: &alice, Roles: []string{models.RoleAuthenticated}}, StoreID: f.store})
	assert.Equal(t, []uuid.UUID{forAlice.ID, open.ID}, ids(got))

	got = f.find(1, Context{Customer: Anonymous(), StoreID: f.store})
	assert.Equal(t, []uuid.UUID{open.ID}, ids(got))
}

func TestTargetRoleScope(t *testing.T) {
	f := newFixture(t)
	wholesale := "wholesale"
	retail := "retail"
	f.item(f.list(func(l *models.PriceList) { l.TargetRole = &retail }), 1, "1.00")
	forWholesale := f.item(f.list(func(l *models.PriceList) { l.TargetRole = &wholesale }), 1, "2.00")
	open := f.item(f.list(func(l *models.PriceList) { l.Weight = 10 }), 1, "3.00")

	user := uuid.New()
	got := f.find(1, Context{Customer: Customer{ID: &user, Roles: []string{models.RoleAuthenticated, wholesale}}, StoreID: f.store})
	assert.Equal(t, []uuid.UUID{forWholesale.ID, open.ID}, ids(got))

	got = f.find(1, Context{Customer: Customer{}, StoreID: f.store})
	assert.Equal(t, []uuid.UUID{open.ID}, ids(got))
}

func TestUserAndRoleMustBothMatch(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	wholesale := "wholesale"
	f.item(f.list(func(l *models.PriceList) { l.TargetUserID = &user; l.TargetRole = &wholesale }), 1, "1.00")

	assert.Empty(t, f.find(1, Context{Customer: Customer{ID: &user, Roles: []string{models.RoleAuthenticated}}, StoreID: f.store}))
	assert.Len(t, f.find(1, Context{Customer: Customer{ID: &user, Roles: []string{wholesale}}, StoreID: f.store}), 1)
}

func TestOrderingByWeightThenQuantity(t *testing.T) {
	f := newFixture(t)
	heavy := f.list(func(l *models.PriceList) { l.Weight = 5 })
	light := f.list(func(l *models.PriceList) { l.Weight = -2 })
	heavyItem := f.item(heavy, 1, "1.00")
	lightBase := f.item(light, 1, "9.00")
	lightTier := f.item(light, 5, "8.00")

	got := f.find(5, Context{Customer: Anonymous(), StoreID: f.store})
	assert.Equal(t, []uuid.UUID{lightTier.ID, lightBase.ID, heavyItem.ID}, ids(got))

	got = f.find(4, Context{Customer: Anonymous(), StoreID: f.store})
	assert.Equal(t, []uuid.UUID{lightBase.ID, heavyItem.ID}, ids(got))
}

func TestUnattachedItemsAndOtherPurchasablesAreIgnored(t *testing.T) {
	f := newFixture(t)
	list := f.list(nil)
	orphan := &models.PriceListItem{
		PurchasableType: f.product.Type,
		PurchasableID:   f.product.ID,
		Quantity:        decimal.NewFromInt(1),
	}
	orphan.SetPrice(types.NewPrice(decimal.NewFromInt(1), enums.CurrencyUSD))
	require.NoError(t, f.db.Create(orphan).Error)

	listID := list.ID
	widget := &models.PriceListItem{
		PriceListID:     &listID,
		PurchasableType: enums.PurchasableWidget,
		PurchasableID:   f.product.ID,
		Quantity:        decimal.NewFromInt(1),
	}
	widget.SetPrice(types.NewPrice(decimal.NewFromInt(1), enums.CurrencyUSD))
	require.NoError(t, f.db.Create(widget).Error)

	assert.Empty(t, f.find(1, Context{Customer: Anonymous(), StoreID: f.store}))
}

func TestInvalidPurchasableType(t *testing.T) {
	f := newFixture(t)
	_, err := f.resolver().FindEligibleItems(context.Background(), types.PurchasableRef{Type: "bundle"}, decimal.NewFromInt(1), Context{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCustomerFromUser(t *testing.T) {
	u := models.User{ID: uuid.New(), Roles: []string{"wholesale", "wholesale"}}
	c := CustomerFromUser(u)
	require.NotNil(t, c.ID)
	assert.Equal(t, u.ID, *c.ID)
	assert.Equal(t, []string{models.RoleAuthenticated, "wholesale"}, c.Roles)
}
