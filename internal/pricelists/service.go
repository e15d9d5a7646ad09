package pricelists

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricelist-backend/internal/catalog"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/pagination"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type purchasableLookup interface {
	Get(ctx context.Context, ref types.PurchasableRef) (*catalog.Purchasable, error)
}

// ItemInput describes one item created together with its list.
type ItemInput struct {
	PurchasableID uuid.UUID
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	ListPrice     *decimal.Decimal
}

// CreateInput describes a new price list.
type CreateInput struct {
	StoreID         uuid.UUID
	Name            string
	PurchasableType enums.PurchasableType
	Weight          int
	StartDate       types.Date
	EndDate         *types.Date
	TargetUserID    *uuid.UUID
	TargetRole      *string
	Published       bool
	Items           []ItemInput
}

// Detail is a price list with its items in collection order.
type Detail struct {
	List  models.PriceList
	Items []models.PriceListItem
}

// Service owns the price list lifecycle.
type Service struct {
	repo    *Repository
	stores  storeLookup
	catalog purchasableLookup
}

func NewService(repo *Repository, stores storeLookup, catalog purchasableLookup) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("price list repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store lookup required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("purchasable lookup required")
	}
	return &Service{repo: repo, stores: stores, catalog: catalog}, nil
}

// Create stores the list and its items in one transaction. Item prices use the
// store's default currency; owner pointers are backfilled once the items are attached.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Detail, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	store, err := s.stores.FindByID(ctx, input.StoreID)
	if err != nil {
		return nil, err
	}
	for _, in := range input.Items {
		if _, err := s.catalog.Get(ctx, types.PurchasableRef{Type: input.PurchasableType, ID: in.PurchasableID}); err != nil {
			return nil, err
		}
	}

	list := &models.PriceList{
		StoreID:         input.StoreID,
		Name:            strings.TrimSpace(input.Name),
		PurchasableType: input.PurchasableType,
		Weight:          input.Weight,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		TargetUserID:    input.TargetUserID,
		TargetRole:      normalizeRole(input.TargetRole),
		Published:       input.Published,
	}

	var items []models.PriceListItem
	err = s.repo.InTx(ctx, func(tx *Repository) error {
		if err := tx.CreateList(ctx, list); err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, in := range input.Items {
			item := models.PriceListItem{
				PurchasableType: input.PurchasableType,
				PurchasableID:   in.PurchasableID,
				Quantity:        quantityOrDefault(in.Quantity),
				Published:       true,
			}
			item.SetPrice(types.NewPrice(in.Price, store.DefaultCurrency))
			if in.ListPrice != nil {
				lp := types.NewPrice(*in.ListPrice, store.DefaultCurrency)
				item.SetListPrice(&lp)
			}
			if err := tx.CreateItem(ctx, &item); err != nil {
				return err
			}
			ids = append(ids, item.ID)
		}
		if err := tx.AppendItems(ctx, list.ID, ids); err != nil {
			return err
		}
		items, err = tx.Items(ctx, list.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Detail{List: *list, Items: items}, nil
}

// Get returns the list with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	list, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{List: *list, Items: items}, nil
}

// ListByStore pages through the store's lists without their items.
func (s *Service) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*Page, error) {
	return s.repo.PageByStore(ctx, storeID, params)
}

// Delete removes the list and cascades to its items.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func validateCreate(input CreateInput) error {
	if input.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store_id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.PurchasableType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported purchasable type %q", input.PurchasableType))
	}
	if input.StartDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start_date is required")
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end_date must not be before start_date")
	}
	for i, in := range input.Items {
		if in.PurchasableID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: purchasable_id is required", i))
		}
		if in.Quantity.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: quantity must not be negative", i))
		}
		if in.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d]: price must not be negative", i))
		}
	}
	return nil
}

func normalizeRole(role *string) *string {
	if role == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*role)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func quantityOrDefault(q decimal.Decimal) decimal.Decimal {
	if q.IsZero() {
		return decimal.NewFromInt(1)
	}
	return q
}
