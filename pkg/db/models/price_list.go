package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// PriceList groups negotiated prices for one store, a date window and an optional audience.
// Lower weight wins when several lists match.
type PriceList struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	StoreID         uuid.UUID             `gorm:"column:store_id;type:uuid;not null;index"`
	Name            string                `gorm:"column:name;not null"`
	PurchasableType enums.PurchasableType `gorm:"column:purchasable_type;not null"`
	Weight          int                   `gorm:"column:weight;not null"`
	StartDate       types.Date            `gorm:"column:start_date;type:date;not null"`
	EndDate         *types.Date           `gorm:"column:end_date;type:date"`
	TargetUserID    *uuid.UUID            `gorm:"column:target_user_id;type:uuid"`
	TargetRole      *string               `gorm:"column:target_role"`
	Published       bool                  `gorm:"column:published;not null"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PriceList) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ActiveOn reports whether day falls inside the list's inclusive date window.
func (p PriceList) ActiveOn(day types.Date) bool {
	if p.StartDate.After(day) {
		return false
	}
	return p.EndDate == nil || !p.EndDate.Before(day)
}

// PriceListItemRef is one slot in a price list's ordered item collection.
type PriceListItemRef struct {
	PriceListID uuid.UUID `gorm:"column:price_list_id;type:uuid;primaryKey"`
	ItemID      uuid.UUID `gorm:"column:item_id;type:uuid;primaryKey"`
	Position    int       `gorm:"column:position;not null"`
}

func (PriceListItemRef) TableName() string {
	return "price_list_item_refs"
}
