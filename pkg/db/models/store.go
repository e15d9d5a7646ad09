package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
)

// Store is the tenant that owns price lists. Imported prices adopt its default currency.
type Store struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name            string         `gorm:"column:name;not null"`
	DefaultCurrency enums.Currency `gorm:"column:default_currency;not null"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Store) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
