package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/pricelist-backend/api/responses"
	"github.com/angelmondragon/pricelist-backend/internal/eligibility"
	pkgAuth "github.com/angelmondragon/pricelist-backend/pkg/auth"
	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, false)
}

// OptionalAuth behaves like Auth when credentials are present and lets anonymous
// requests through with the anonymous customer.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, true)
}

func authenticate(cfg config.JWTConfig, logg *logger.Logger, optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" && optional {
				next.ServeHTTP(w, r.WithContext(WithCustomer(r.Context(), eligibility.Anonymous())))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims, logg)))
		})
	}
}

func withClaims(ctx context.Context, claims *pkgAuth.AccessTokenClaims, logg *logger.Logger) context.Context {
	customer := eligibility.CustomerFromUser(models.User{ID: claims.UserID, Roles: claims.Roles})
	ctx = WithCustomer(ctx, customer)
	ctx = WithUserID(ctx, claims.UserID.String())
	if claims.ActiveStoreID != nil {
		ctx = WithStoreID(ctx, claims.ActiveStoreID.String())
	}

	fields := map[string]any{
		"user_id": claims.UserID.String(),
		"roles":   customer.Roles,
	}
	if claims.ActiveStoreID != nil {
		fields["store_id"] = claims.ActiveStoreID.String()
	}
	return logg.WithFields(ctx, fields)
}
