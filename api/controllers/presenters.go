package controllers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricelist-backend/internal/pricelists"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

type priceListItemDTO struct {
	ID          string               `json:"id"`
	Purchasable types.PurchasableRef `json:"purchasable"`
	Quantity    decimal.Decimal      `json:"quantity"`
	Price       types.Price          `json:"price"`
	ListPrice   *types.Price         `json:"list_price"`
	Published   bool                 `json:"published"`
}

type priceListDTO struct {
	ID              string                `json:"id"`
	StoreID         string                `json:"store_id"`
	Name            string                `json:"name"`
	PurchasableType enums.PurchasableType `json:"purchasable_type"`
	Weight          int                   `json:"weight"`
	StartDate       types.Date            `json:"start_date"`
	EndDate         *types.Date           `json:"end_date"`
	TargetUserID    *string               `json:"target_user_id"`
	TargetRole      *string               `json:"target_role"`
	Published       bool                  `json:"published"`
	CreatedAt       time.Time             `json:"created_at"`
	Items           []priceListItemDTO    `json:"items,omitempty"`
}

type priceListPage struct {
	Lists      []priceListDTO `json:"lists"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func presentItem(item models.PriceListItem) priceListItemDTO {
	return priceListItemDTO{
		ID:          item.ID.String(),
		Purchasable: types.PurchasableRef{Type: item.PurchasableType, ID: item.PurchasableID},
		Quantity:    item.Quantity,
		Price:       item.Price(),
		ListPrice:   item.ListPrice(),
		Published:   item.Published,
	}
}

func presentItems(items []models.PriceListItem) []priceListItemDTO {
	out := make([]priceListItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, presentItem(item))
	}
	return out
}

func presentList(list models.PriceList) priceListDTO {
	dto := priceListDTO{
		ID:              list.ID.String(),
		StoreID:         list.StoreID.String(),
		Name:            list.Name,
		PurchasableType: list.PurchasableType,
		Weight:          list.Weight,
		StartDate:       list.StartDate,
		EndDate:         list.EndDate,
		TargetRole:      list.TargetRole,
		Published:       list.Published,
		CreatedAt:       list.CreatedAt,
	}
	if list.TargetUserID != nil {
		id := list.TargetUserID.String()
		dto.TargetUserID = &id
	}
	return dto
}

func presentDetail(detail *pricelists.Detail) priceListDTO {
	dto := presentList(detail.List)
	dto.Items = presentItems(detail.Items)
	return dto
}
