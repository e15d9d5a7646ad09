package stores

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

func setupStoresTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Store{}))
	return db
}

func TestRepositoryCreateAndDefaultCurrency(t *testing.T) {
	repo := NewRepository(setupStoresTestDB(t))
	ctx := context.Background()

	store, err := repo.Create(ctx, CreateStoreInput{Name: " Main ", DefaultCurrency: enums.CurrencyEUR})
	require.NoError(t, err)
	assert.Equal(t, "Main", store.Name)
	assert.NotEqual(t, uuid.Nil, store.ID)

	currency, err := repo.DefaultCurrency(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CurrencyEUR, currency)
}

func TestRepositoryCreateValidates(t *testing.T) {
	repo := NewRepository(setupStoresTestDB(t))

	_, err := repo.Create(context.Background(), CreateStoreInput{Name: "", DefaultCurrency: enums.CurrencyUSD})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = repo.Create(context.Background(), CreateStoreInput{Name: "x", DefaultCurrency: "ZZZ"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, map[string]any{"supported": enums.Currencies()}, pkgerrors.As(err).Details())
}

func TestRepositoryFindByIDNotFound(t *testing.T) {
	repo := NewRepository(setupStoresTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
