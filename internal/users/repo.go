package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/internal/repo"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/pricelist-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Create inserts a new user with the given roles.
func (r *Repository) Create(ctx context.Context, email string, roles []string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user := &models.User{Email: email, Roles: dbtypes.StringArray(roles)}
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, repo.MapWriteError(err, "email already registered", "create user")
	}
	return user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, repo.MapError(err, "user not found", "load user")
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, repo.MapError(err, "user not found", "load user")
	}
	return &user, nil
}
