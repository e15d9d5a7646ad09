package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricelist-backend/api/middleware"
	"github.com/angelmondragon/pricelist-backend/api/responses"
	"github.com/angelmondragon/pricelist-backend/api/validators"
	"github.com/angelmondragon/pricelist-backend/internal/eligibility"
	"github.com/angelmondragon/pricelist-backend/internal/pricing"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// PriceService resolves the price a customer pays.
type PriceService interface {
	Resolve(ctx context.Context, purchasable types.PurchasableRef, quantity decimal.Decimal, ectx eligibility.Context) (*pricing.Result, error)
}

// EligibilityFinder lists the price list items a customer qualifies for.
type EligibilityFinder interface {
	FindEligibleItems(ctx context.Context, purchasable types.PurchasableRef, quantity decimal.Decimal, ectx eligibility.Context) ([]models.PriceListItem, error)
}

type resolvePriceRequest struct {
	PurchasableType string           `json:"purchasable_type" validate:"required,purchasable_type"`
	PurchasableID   string           `json:"purchasable_id" validate:"required,uuid"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty" validate:"omitempty,decimal_gt0"`
	StoreID         string           `json:"store_id,omitempty" validate:"omitempty,uuid"`
}

// PriceResolve answers with the winning price and the resolver that produced it, or a
// null payload when no resolver has an opinion.
func PriceResolve(svc PriceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body resolvePriceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ref, err := purchasableRef(body.PurchasableType, body.PurchasableID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := decimal.NewFromInt(1)
		if body.Quantity != nil {
			quantity = *body.Quantity
		}
		ectx, err := eligibilityContext(r, body.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Resolve(r.Context(), ref, quantity, ectx)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			responses.WriteSuccess(w, nil)
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

// EligibleItems lists the qualifying items in tie-break order.
func EligibleItems(finder EligibilityFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ref, err := purchasableRef(q.Get("purchasable_type"), q.Get("purchasable_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity, err := validators.ParseQueryDecimal(r, "quantity", decimal.NewFromInt(1))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ectx, err := eligibilityContext(r, q.Get("store_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := finder.FindEligibleItems(r.Context(), ref, quantity, ectx)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, presentItems(items))
	}
}

func purchasableRef(rawType, rawID string) (types.PurchasableRef, error) {
	typ, err := enums.ParsePurchasableType(strings.TrimSpace(rawType))
	if err != nil {
		return types.PurchasableRef{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchasable_type").
			WithDetails(map[string]any{"field": "purchasable_type"})
	}
	id, err := validators.ParsePathUUID(rawID, "purchasable_id")
	if err != nil {
		return types.PurchasableRef{}, err
	}
	return types.PurchasableRef{Type: typ, ID: id}, nil
}

// eligibilityContext pairs the authenticated customer with a store. An explicit store
// wins over the one carried by the token.
func eligibilityContext(r *http.Request, explicitStore string) (eligibility.Context, error) {
	raw := strings.TrimSpace(explicitStore)
	if raw == "" {
		raw = middleware.StoreIDFromContext(r.Context())
	}
	if raw == "" {
		return eligibility.Context{}, pkgerrors.New(pkgerrors.CodeValidation, "store_id is required").
			WithDetails(map[string]any{"field": "store_id"})
	}
	storeID, err := uuid.Parse(raw)
	if err != nil {
		return eligibility.Context{}, pkgerrors.New(pkgerrors.CodeValidation, "store_id must be a uuid").
			WithDetails(map[string]any{"field": "store_id"})
	}
	return eligibility.Context{
		Customer: middleware.CustomerFromContext(r.Context()),
		StoreID:  storeID,
	}, nil
}
