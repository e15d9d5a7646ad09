package eligibility

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/internal/repo"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// Customer is the acting user. A nil ID means anonymous.
type Customer struct {
	ID    *uuid.UUID
	Roles []string
}

// Context scopes a lookup to a customer and a store.
type Context struct {
	Customer Customer
	StoreID  uuid.UUID
}

// Anonymous returns the customer used when no user is signed in.
func Anonymous() Customer {
	return Customer{Roles: []string{models.RoleAnonymous}}
}

// CustomerFromUser builds a customer from a persisted user.
func CustomerFromUser(u models.User) Customer {
	id := u.ID
	return Customer{ID: &id, Roles: u.EffectiveRoles()}
}

// Finder is the read side consumed by price resolvers.
type Finder interface {
	FindEligibleItems(ctx context.Context, purchasable types.PurchasableRef, quantity decimal.Decimal, ectx Context) ([]models.PriceListItem, error)
}

// Resolver selects the price list items that apply to a purchasable for a given context.
type Resolver struct {
	repo.Base
	now func() time.Time
}

type Option func(*Resolver)

// WithClock overrides the clock used to compute today's date.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func NewResolver(db *gorm.DB, opts ...Option) *Resolver {
	r := &Resolver{Base: repo.NewBase(db), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindEligibleItems returns every item for the purchasable whose quantity threshold is met
// and whose owning list is scoped to the context and active today (UTC). Results are ordered
// by list weight, then by the larger quantity threshold, then by list id and item id.
func (r *Resolver) FindEligibleItems(ctx context.Context, purchasable types.PurchasableRef, quantity decimal.Decimal, ectx Context) ([]models.PriceListItem, error) {
	if !purchasable.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchasable type is invalid")
	}
	today := types.DateOf(r.now().UTC())

	q := r.DB(ctx).
		Model(&models.PriceListItem{}).
		Select("price_list_items.*").
		Joins("JOIN price_lists ON price_lists.id = price_list_items.price_list_id").
		Where("price_list_items.purchasable_type = ?", purchasable.Type).
		Where("price_list_items.purchasable_id = ?", purchasable.ID).
		Where("price_list_items.quantity <= ?", quantity).
		Where("price_lists.store_id = ?", ectx.StoreID).
		Where("price_lists.start_date <= ?", today).
		Where("(price_lists.end_date IS NULL OR price_lists.end_date >= ?)", today)

	if ectx.Customer.ID == nil {
		q = q.Where("price_lists.target_user_id IS NULL")
	} else {
		q = q.Where("(price_lists.target_user_id IS NULL OR price_lists.target_user_id = ?)", *ectx.Customer.ID)
	}

	if roles := compactRoles(ectx.Customer.Roles); len(roles) == 0 {
		q = q.Where("price_lists.target_role IS NULL")
	} else {
		q = q.Where("(price_lists.target_role IS NULL OR price_lists.target_role IN ?)", roles)
	}

	var items []models.PriceListItem
	if err := q.
		Order("price_lists.weight ASC").
		Order("price_list_items.quantity DESC").
		Order("price_lists.id ASC").
		Order("price_list_items.id ASC").
		Find(&items).Error; err != nil {
		return nil, repo.MapError(err, "price list item not found", "find eligible price list items")
	}
	return items, nil
}

func compactRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if role != "" {
			out = append(out, role)
		}
	}
	return out
}
