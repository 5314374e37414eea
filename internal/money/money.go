// Package money provides integer-safe conversion between decimal currency
// amounts and minor units (cents). All monetary arithmetic in the application
// happens on minor-unit integers; decimals only appear at system boundaries
// (catalog payloads, display).
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// minorUnitExponent is the number of fractional digits carried by the minor
// unit. All supported currencies here use two (e.g. BRL centavos, USD cents).
const minorUnitExponent = 2

// MinorUnits converts a decimal amount to its minor-unit integer
// representation. The conversion is exact for every amount with at most two
// fractional digits; amounts with more precision are rounded half away from
// zero, matching provider behavior.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(minorUnitExponent).Round(0).IntPart()
}

// FromMinorUnits converts a minor-unit integer back to its decimal amount.
// MinorUnits(FromMinorUnits(n)) == n for all n.
func FromMinorUnits(n int64) decimal.Decimal {
	return decimal.NewFromInt(n).Shift(-minorUnitExponent)
}

// ParseAmount parses a decimal amount from its string form. Catalog payloads
// deliver prices both as JSON numbers and as strings; both funnel through
// here after boundary normalization.
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// ValidCurrency reports whether code is a well-formed ISO 4217 currency code
// (case-insensitive).
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(strings.TrimSpace(code))
	return err == nil
}
