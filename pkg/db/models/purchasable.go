package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
)

// ProductVariation is a sellable SKU of a catalog product.
type ProductVariation struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SKU               string          `gorm:"column:sku;not null;uniqueIndex"`
	Title             string          `gorm:"column:title;not null"`
	ListPriceAmount   decimal.Decimal `gorm:"column:list_price_amount;type:numeric(19,6);not null"`
	ListPriceCurrency enums.Currency  `gorm:"column:list_price_currency_code;not null"`
	Active            bool            `gorm:"column:active;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *ProductVariation) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Widget is a second purchasable kind, identified by a code rather than a SKU.
type Widget struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Code              string          `gorm:"column:code;not null;uniqueIndex"`
	Name              string          `gorm:"column:name;not null"`
	ListPriceAmount   decimal.Decimal `gorm:"column:list_price_amount;type:numeric(19,6);not null"`
	ListPriceCurrency enums.Currency  `gorm:"column:list_price_currency_code;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Widget) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
