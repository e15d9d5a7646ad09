package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/internal/repo"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// Purchasable is the catalog view of a priceable entity, independent of its kind.
type Purchasable struct {
	Ref       types.PurchasableRef `json:"ref"`
	Label     string               `json:"label"`
	SKU       string               `json:"sku"`
	ListPrice types.Price          `json:"list_price"`
}

// variant describes how one purchasable kind is stored and which columns back each identifier field.
type variant struct {
	table       string
	labelColumn string
	skuColumn   string
}

var variants = map[enums.PurchasableType]variant{
	enums.PurchasableProductVariation: {table: "product_variations", labelColumn: "title", skuColumn: "sku"},
	enums.PurchasableWidget:           {table: "widgets", labelColumn: "name", skuColumn: "code"},
}

func variantFor(typ enums.PurchasableType) (variant, error) {
	v, ok := variants[typ]
	if !ok {
		return variant{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported purchasable type %q", typ))
	}
	return v, nil
}

// column maps an identifier field to the backing column. Ids are UUIDs, so uuid and id share one.
func (v variant) column(field enums.IdentifierField) (string, error) {
	switch field {
	case enums.IdentifierID, enums.IdentifierUUID:
		return "id", nil
	case enums.IdentifierLabel:
		return v.labelColumn, nil
	case enums.IdentifierSKU:
		return v.skuColumn, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported identifier field %q", field))
	}
}

// IdentifierFields lists the identifier fields an import may match the given kind on.
func IdentifierFields(typ enums.PurchasableType) []enums.IdentifierField {
	if _, ok := variants[typ]; !ok {
		return nil
	}
	return []enums.IdentifierField{enums.IdentifierID, enums.IdentifierUUID, enums.IdentifierLabel, enums.IdentifierSKU}
}

type purchasableRow struct {
	ID                uuid.UUID       `gorm:"column:id"`
	Label             string          `gorm:"column:label"`
	SKU               string          `gorm:"column:sku"`
	ListPriceAmount   decimal.Decimal `gorm:"column:list_price_amount"`
	ListPriceCurrency enums.Currency  `gorm:"column:list_price_currency_code"`
}

// Repository resolves purchasables across every supported kind.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

func (r *Repository) query(ctx context.Context, v variant) *gorm.DB {
	return r.DB(ctx).
		Table(v.table).
		Select(fmt.Sprintf("id, %s AS label, %s AS sku, list_price_amount, list_price_currency_code", v.labelColumn, v.skuColumn))
}

// FindByIdentifier looks a purchasable up by the configured identifier field.
// A value that cannot match (blank, or a malformed uuid) is reported as not found.
func (r *Repository) FindByIdentifier(ctx context.Context, typ enums.PurchasableType, field enums.IdentifierField, value string) (*Purchasable, error) {
	v, err := variantFor(typ)
	if err != nil {
		return nil, err
	}
	col, err := v.column(field)
	if err != nil {
		return nil, err
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchasable identifier is empty")
	}
	var arg any = value
	if col == "id" {
		id, parseErr := uuid.Parse(value)
		if parseErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, parseErr, "purchasable not found")
		}
		arg = id
	}

	var row purchasableRow
	if err := r.query(ctx, v).Where(col+" = ?", arg).Order("id").Take(&row).Error; err != nil {
		return nil, repo.MapError(err, "purchasable not found", "load purchasable")
	}
	return row.toPurchasable(typ), nil
}

// Get loads a purchasable by reference.
func (r *Repository) Get(ctx context.Context, ref types.PurchasableRef) (*Purchasable, error) {
	v, err := variantFor(ref.Type)
	if err != nil {
		return nil, err
	}
	var row purchasableRow
	if err := r.query(ctx, v).Where("id = ?", ref.ID).Take(&row).Error; err != nil {
		return nil, repo.MapError(err, "purchasable not found", "load purchasable")
	}
	return row.toPurchasable(ref.Type), nil
}

func (row purchasableRow) toPurchasable(typ enums.PurchasableType) *Purchasable {
	return &Purchasable{
		Ref:       types.PurchasableRef{Type: typ, ID: row.ID},
		Label:     row.Label,
		SKU:       row.SKU,
		ListPrice: types.NewPrice(row.ListPriceAmount, row.ListPriceCurrency),
	}
}

// CreateInput describes a new purchasable of either kind.
type CreateInput struct {
	Type      enums.PurchasableType
	SKU       string
	Label     string
	ListPrice types.Price
}

// Create inserts a purchasable of the requested kind.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Purchasable, error) {
	sku := strings.TrimSpace(input.SKU)
	label := strings.TrimSpace(input.Label)
	if sku == "" || label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and label are required")
	}
	if !input.ListPrice.CurrencyCode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "list price currency is invalid")
	}

	var (
		record any
		id     func() uuid.UUID
	)
	switch input.Type {
	case enums.PurchasableProductVariation:
		m := &models.ProductVariation{SKU: sku, Title: label, ListPriceAmount: input.ListPrice.Amount, ListPriceCurrency: input.ListPrice.CurrencyCode, Active: true}
		record, id = m, func() uuid.UUID { return m.ID }
	case enums.PurchasableWidget:
		m := &models.Widget{Code: sku, Name: label, ListPriceAmount: input.ListPrice.Amount, ListPriceCurrency: input.ListPrice.CurrencyCode}
		record, id = m, func() uuid.UUID { return m.ID }
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported purchasable type %q", input.Type))
	}

	if err := r.DB(ctx).Create(record).Error; err != nil {
		return nil, repo.MapWriteError(err, "sku already exists", "create purchasable")
	}
	return &Purchasable{
		Ref:       types.PurchasableRef{Type: input.Type, ID: id()},
		Label:     label,
		SKU:       sku,
		ListPrice: input.ListPrice,
	}, nil
}
