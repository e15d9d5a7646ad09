package stores

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/internal/repo"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

// Repository handles store persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to store operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// CreateStoreInput describes a new tenant.
type CreateStoreInput struct {
	Name            string
	DefaultCurrency enums.Currency
}

// Create persists a new store row.
func (r *Repository) Create(ctx context.Context, input CreateStoreInput) (*models.Store, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	if !input.DefaultCurrency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid default currency %q", input.DefaultCurrency)).
			WithDetails(map[string]any{"supported": enums.Currencies()})
	}
	store := &models.Store{Name: name, DefaultCurrency: input.DefaultCurrency}
	if err := r.DB(ctx).Create(store).Error; err != nil {
		return nil, repo.MapWriteError(err, "store already exists", "create store")
	}
	return store, nil
}

// FindByID loads a store by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.DB(ctx).Where("id = ?", id).First(&store).Error; err != nil {
		return nil, repo.MapError(err, "store not found", "load store")
	}
	return &store, nil
}

// DefaultCurrency returns the currency imported prices are recorded in for the store.
func (r *Repository) DefaultCurrency(ctx context.Context, id uuid.UUID) (enums.Currency, error) {
	store, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return store.DefaultCurrency, nil
}
