package enums

import (
	"fmt"
	"slices"
	"strings"
)

// Currency is an ISO 4217 code accepted as a store default currency.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
	CurrencyMXN Currency = "MXN"
	CurrencyJPY Currency = "JPY"
)

// minorUnits is the number of decimal places each currency is quoted in.
var minorUnits = map[Currency]int32{
	CurrencyUSD: 2,
	CurrencyEUR: 2,
	CurrencyGBP: 2,
	CurrencyCAD: 2,
	CurrencyMXN: 2,
	CurrencyJPY: 0,
}

func (c Currency) String() string {
	return string(c)
}

func (c Currency) IsValid() bool {
	_, ok := minorUnits[c]
	return ok
}

// MinorUnits returns the decimal places of c, 2 for unknown codes.
func (c Currency) MinorUnits() int32 {
	if places, ok := minorUnits[c]; ok {
		return places
	}
	return 2
}

// Currencies lists the supported codes in alphabetical order.
func Currencies() []Currency {
	out := make([]Currency, 0, len(minorUnits))
	for c := range minorUnits {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// ParseCurrency accepts a code in any case, surrounded by whitespace or not.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}
