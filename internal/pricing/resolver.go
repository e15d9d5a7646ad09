package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricelist-backend/internal/catalog"
	"github.com/angelmondragon/pricelist-backend/internal/eligibility"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// Resolver produces a price for a purchasable, or nil when it has no opinion.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, purchasable types.PurchasableRef, quantity decimal.Decimal, ectx eligibility.Context) (*types.Price, error)
}

// PriceListResolver answers with the price of the highest priority eligible item.
type PriceListResolver struct {
	finder eligibility.Finder
}

func NewPriceListResolver(finder eligibility.Finder) (*PriceListResolver, error) {
	if finder == nil {
		return nil, fmt.Errorf("eligibility finder required")
	}
	return &PriceListResolver{finder: finder}, nil
}

func (r *PriceListResolver) Name() string { return "price_list" }

func (r *PriceListResolver) Resolve(ctx context.Context, purchasable types.PurchasableRef, quantity decimal.Decimal, ectx eligibility.Context) (*types.Price, error) {
	items, err := r.finder.FindEligibleItems(ctx, purchasable, quantity, ectx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	price := items[0].Price()
	return &price, nil
}

type purchasableGetter interface {
	Get(ctx context.Context, ref types.PurchasableRef) (*catalog.Purchasable, error)
}

// ListPriceResolver falls back to the purchasable's own list price.
type ListPriceResolver struct {
	catalog purchasableGetter
}

func NewListPriceResolver(catalog purchasableGetter) (*ListPriceResolver, error) {
	if catalog == nil {
		return nil, fmt.Errorf("purchasable lookup required")
	}
	return &ListPriceResolver{catalog: catalog}, nil
}

func (r *ListPriceResolver) Name() string { return "list_price" }

func (r *ListPriceResolver) Resolve(ctx context.Context, purchasable types.PurchasableRef, _ decimal.Decimal, _ eligibility.Context) (*types.Price, error) {
	p, err := r.catalog.Get(ctx, purchasable)
	if err != nil {
		return nil, err
	}
	price := p.ListPrice
	return &price, nil
}
