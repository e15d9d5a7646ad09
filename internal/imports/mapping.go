package imports

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/pricelist-backend/internal/catalog"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

// Mapping names the source columns feeding each item field.
type Mapping struct {
	IdentifierColumn string `json:"identifier_column" yaml:"identifier_column"`
	PriceColumn      string `json:"price_column" yaml:"price_column"`
	ListPriceColumn  string `json:"list_price_column,omitempty" yaml:"list_price_column"`
	QuantityColumn   string `json:"quantity_column,omitempty" yaml:"quantity_column"`
}

// Options configures one import job.
type Options struct {
	Mapping         Mapping               `json:"mapping" yaml:"mapping"`
	IdentifierField enums.IdentifierField `json:"identifier_field" yaml:"identifier_field"`
	Strategy        enums.ImportStrategy  `json:"strategy" yaml:"strategy"`
	Purge           bool                  `json:"purge" yaml:"purge"`
}

func (o *Options) applyDefaults() {
	o.Mapping.IdentifierColumn = strings.TrimSpace(o.Mapping.IdentifierColumn)
	o.Mapping.PriceColumn = strings.TrimSpace(o.Mapping.PriceColumn)
	o.Mapping.ListPriceColumn = strings.TrimSpace(o.Mapping.ListPriceColumn)
	o.Mapping.QuantityColumn = strings.TrimSpace(o.Mapping.QuantityColumn)
	if o.IdentifierField == "" {
		o.IdentifierField = enums.DefaultIdentifierField
	}
	if o.Strategy == "" {
		o.Strategy = enums.DefaultImportStrategy
	}
}

// Validate checks the options against the price list's purchasable type and the source header.
// Every problem is reported in the error details keyed by field.
func (o *Options) Validate(purchasableType enums.PurchasableType, header []string) error {
	o.applyDefaults()
	problems := map[string]string{}

	if !o.Strategy.IsValid() {
		problems["strategy"] = fmt.Sprintf("unsupported strategy %q", o.Strategy)
	}
	if !slices.Contains(catalog.IdentifierFields(purchasableType), o.IdentifierField) {
		problems["identifier_field"] = fmt.Sprintf("%q cannot identify %s purchasables", o.IdentifierField, purchasableType)
	}

	required := map[string]string{
		"identifier_column": o.Mapping.IdentifierColumn,
		"price_column":      o.Mapping.PriceColumn,
	}
	for field, column := range required {
		if column == "" {
			problems[field] = "column is required"
		} else if !slices.Contains(header, column) {
			problems[field] = fmt.Sprintf("column %q not found in header", column)
		}
	}
	optional := map[string]string{
		"list_price_column": o.Mapping.ListPriceColumn,
		"quantity_column":   o.Mapping.QuantityColumn,
	}
	for field, column := range optional {
		if column != "" && !slices.Contains(header, column) {
			problems[field] = fmt.Sprintf("column %q not found in header", column)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid import mapping").WithDetails(problems)
}

// Profile is a reusable mapping stored as YAML.
type Profile struct {
	Name    string  `yaml:"name"`
	Options Options `yaml:",inline"`
}

// ParseProfile decodes a YAML mapping profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mapping profile")
	}
	p.Options.applyDefaults()
	if _, err := enums.ParseImportStrategy(string(p.Options.Strategy)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mapping profile")
	}
	if _, err := enums.ParseIdentifierField(string(p.Options.IdentifierField)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mapping profile")
	}
	return &p, nil
}

// LoadProfile reads a YAML mapping profile from disk.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping profile: %w", err)
	}
	return ParseProfile(data)
}
