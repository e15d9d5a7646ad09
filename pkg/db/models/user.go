package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/pricelist-backend/pkg/db/types"
)

// Built-in roles every customer carries in addition to assigned ones.
const (
	RoleAnonymous     = "anonymous"
	RoleAuthenticated = "authenticated"
)

// User is a customer whose id and roles scope price list eligibility.
type User struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Email     string              `gorm:"column:email;not null;uniqueIndex"`
	Roles     dbtypes.StringArray `gorm:"column:roles"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// EffectiveRoles returns the assigned roles plus the authenticated role.
func (u User) EffectiveRoles() []string {
	roles := []string{RoleAuthenticated}
	for _, role := range u.Roles {
		if role != "" && !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}
	return roles
}
