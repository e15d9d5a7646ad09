package enums

import "fmt"

// PurchasableType names the closed set of entity kinds a price list can price.
type PurchasableType string

const (
	PurchasableProductVariation PurchasableType = "product_variation"
	PurchasableWidget           PurchasableType = "widget"
)

var validPurchasableTypes = []PurchasableType{
	PurchasableProductVariation,
	PurchasableWidget,
}

// String implements fmt.Stringer.
func (p PurchasableType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchasableType.
func (p PurchasableType) IsValid() bool {
	for _, candidate := range validPurchasableTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePurchasableType converts raw input into a PurchasableType.
func ParsePurchasableType(value string) (PurchasableType, error) {
	for _, candidate := range validPurchasableTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchasable type %q", value)
}

// IdentifierField selects which attribute of a purchasable an import row is matched on.
type IdentifierField string

const (
	IdentifierID    IdentifierField = "id"
	IdentifierUUID  IdentifierField = "uuid"
	IdentifierLabel IdentifierField = "label"
	IdentifierSKU   IdentifierField = "sku"
)

// DefaultIdentifierField is used when a mapping leaves the field blank.
const DefaultIdentifierField = IdentifierSKU

var validIdentifierFields = []IdentifierField{
	IdentifierID,
	IdentifierUUID,
	IdentifierLabel,
	IdentifierSKU,
}

// String implements fmt.Stringer.
func (f IdentifierField) String() string {
	return string(f)
}

// IsValid reports whether the value is a known IdentifierField.
func (f IdentifierField) IsValid() bool {
	for _, candidate := range validIdentifierFields {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseIdentifierField converts raw input into an IdentifierField. Empty input yields the default.
func ParseIdentifierField(value string) (IdentifierField, error) {
	if value == "" {
		return DefaultIdentifierField, nil
	}
	for _, candidate := range validIdentifierFields {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid identifier field %q", value)
}
