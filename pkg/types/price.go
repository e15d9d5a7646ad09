package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
)

// Price is a decimal amount in a single currency.
type Price struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode enums.Currency  `json:"currency_code"`
}

// NewPrice builds a Price from its parts.
func NewPrice(amount decimal.Decimal, currency enums.Currency) Price {
	return Price{Amount: amount, CurrencyCode: currency}
}

// ParsePrice parses a decimal amount such as "19.99" in the given currency.
// Thousands separators and a leading currency symbol are not accepted.
func ParsePrice(raw string, currency enums.Currency) (Price, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Price{}, fmt.Errorf("invalid price amount %q: %w", raw, err)
	}
	if amount.IsNegative() {
		return Price{}, fmt.Errorf("price amount %q must not be negative", raw)
	}
	return NewPrice(amount, currency), nil
}

func (p Price) Equal(other Price) bool {
	return p.CurrencyCode == other.CurrencyCode && p.Amount.Equal(other.Amount)
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.Amount.StringFixed(p.CurrencyCode.MinorUnits()), p.CurrencyCode)
}

// PurchasableRef points at a priceable entity by kind and id.
type PurchasableRef struct {
	Type enums.PurchasableType `json:"type"`
	ID   uuid.UUID             `json:"id"`
}

func (r PurchasableRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}
