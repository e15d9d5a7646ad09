package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricelist-backend/api/middleware"
	"github.com/angelmondragon/pricelist-backend/api/responses"
	"github.com/angelmondragon/pricelist-backend/api/validators"
	"github.com/angelmondragon/pricelist-backend/internal/pricelists"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/pagination"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// PriceListService manages price lists for the active store.
type PriceListService interface {
	Create(ctx context.Context, input pricelists.CreateInput) (*pricelists.Detail, error)
	Get(ctx context.Context, id uuid.UUID) (*pricelists.Detail, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*pricelists.Page, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type priceListItemRequest struct {
	PurchasableID string           `json:"purchasable_id" validate:"required,uuid"`
	Quantity      decimal.Decimal  `json:"quantity" validate:"decimal_gte0"`
	Price         decimal.Decimal  `json:"price" validate:"decimal_gte0"`
	ListPrice     *decimal.Decimal `json:"list_price,omitempty" validate:"omitempty,decimal_gte0"`
}

type createPriceListRequest struct {
	Name            string                 `json:"name" validate:"required,min=1,max=255"`
	PurchasableType string                 `json:"purchasable_type" validate:"required,purchasable_type"`
	Weight          int                    `json:"weight"`
	StartDate       *types.Date            `json:"start_date,omitempty"`
	EndDate         *types.Date            `json:"end_date,omitempty"`
	TargetUserID    *string                `json:"target_user_id,omitempty" validate:"omitempty,uuid"`
	TargetRole      *string                `json:"target_role,omitempty"`
	Published       bool                   `json:"published"`
	Items           []priceListItemRequest `json:"items" validate:"omitempty,dive"`
}

func (req createPriceListRequest) toInput(storeID uuid.UUID) (pricelists.CreateInput, error) {
	typ, err := enums.ParsePurchasableType(strings.TrimSpace(req.PurchasableType))
	if err != nil {
		return pricelists.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchasable_type").
			WithDetails(map[string]any{"field": "purchasable_type"})
	}
	input := pricelists.CreateInput{
		StoreID:         storeID,
		Name:            validators.SanitizeString(req.Name, 255),
		PurchasableType: typ,
		Weight:          req.Weight,
		EndDate:         req.EndDate,
		TargetRole:      req.TargetRole,
		Published:       req.Published,
	}
	if req.StartDate != nil {
		input.StartDate = *req.StartDate
	}
	if req.TargetUserID != nil {
		id, err := uuid.Parse(*req.TargetUserID)
		if err != nil {
			return pricelists.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "target_user_id must be a uuid")
		}
		input.TargetUserID = &id
	}
	for _, item := range req.Items {
		id, err := uuid.Parse(item.PurchasableID)
		if err != nil {
			return pricelists.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "purchasable_id must be a uuid")
		}
		input.Items = append(input.Items, pricelists.ItemInput{
			PurchasableID: id,
			Quantity:      item.Quantity,
			Price:         item.Price,
			ListPrice:     item.ListPrice,
		})
	}
	return input, nil
}

func PriceListCreate(svc PriceListService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createPriceListRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput(storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, presentDetail(detail))
	}
}

func PriceListIndex(svc PriceListService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListByStore(r.Context(), storeID, pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]priceListDTO, 0, len(page.Lists))
		for _, list := range page.Lists {
			out = append(out, presentList(list))
		}
		responses.WriteSuccess(w, priceListPage{Lists: out, NextCursor: page.NextCursor})
	}
}

func PriceListDetail(svc PriceListService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := ownedPriceList(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, presentDetail(detail))
	}
}

func PriceListDelete(svc PriceListService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := ownedPriceList(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), detail.List.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func activeStoreID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.StoreIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	return id, nil
}

// ownedPriceList loads the {priceListId} list. Lists owned by another store are
// reported as missing.
func ownedPriceList(r *http.Request, svc PriceListService) (*pricelists.Detail, error) {
	storeID, err := activeStoreID(r)
	if err != nil {
		return nil, err
	}
	id, err := validators.ParsePathUUID(chi.URLParam(r, "priceListId"), "priceListId")
	if err != nil {
		return nil, err
	}
	detail, err := svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if detail.List.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price list not found")
	}
	return detail, nil
}
