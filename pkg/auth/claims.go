package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	ActiveStoreID *uuid.UUID
	Roles         []string
	JTI           string
}

// AccessTokenClaims represents the typed JWT issued to clients. Roles are the
// customer's assigned roles; price list targeting matches against them.
type AccessTokenClaims struct {
	UserID        uuid.UUID  `json:"user_id"`
	ActiveStoreID *uuid.UUID `json:"active_store_id,omitempty"`
	Roles         []string   `json:"roles,omitempty"`
	jwt.RegisteredClaims
}
