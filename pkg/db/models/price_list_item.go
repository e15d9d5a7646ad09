package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// PriceListItem prices one purchasable from a minimum quantity upward.
// PriceListID stays nil between insert and attach; the owning list backfills it.
type PriceListItem struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	PriceListID       *uuid.UUID            `gorm:"column:price_list_id;type:uuid;index"`
	PurchasableType   enums.PurchasableType `gorm:"column:purchasable_type;not null"`
	PurchasableID     uuid.UUID             `gorm:"column:purchasable_id;type:uuid;not null;index"`
	Quantity          decimal.Decimal       `gorm:"column:quantity;type:numeric(19,6);not null"`
	PriceAmount       decimal.Decimal       `gorm:"column:price_amount;type:numeric(19,6);not null"`
	PriceCurrency     enums.Currency        `gorm:"column:price_currency_code;not null"`
	ListPriceAmount   decimal.NullDecimal   `gorm:"column:list_price_amount;type:numeric(19,6)"`
	ListPriceCurrency *enums.Currency       `gorm:"column:list_price_currency_code"`
	Published         bool                  `gorm:"column:published;not null"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *PriceListItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i PriceListItem) Price() types.Price {
	return types.NewPrice(i.PriceAmount, i.PriceCurrency)
}

func (i *PriceListItem) SetPrice(p types.Price) {
	i.PriceAmount = p.Amount
	i.PriceCurrency = p.CurrencyCode
}

// ListPrice returns the compare-at price, or nil when none was set.
func (i PriceListItem) ListPrice() *types.Price {
	if !i.ListPriceAmount.Valid || i.ListPriceCurrency == nil {
		return nil
	}
	p := types.NewPrice(i.ListPriceAmount.Decimal, *i.ListPriceCurrency)
	return &p
}

func (i *PriceListItem) SetListPrice(p *types.Price) {
	if p == nil {
		i.ListPriceAmount = decimal.NullDecimal{}
		i.ListPriceCurrency = nil
		return
	}
	currency := p.CurrencyCode
	i.ListPriceAmount = decimal.NewNullDecimal(p.Amount)
	i.ListPriceCurrency = &currency
}

func (i PriceListItem) Purchasable() types.PurchasableRef {
	return types.PurchasableRef{Type: i.PurchasableType, ID: i.PurchasableID}
}
