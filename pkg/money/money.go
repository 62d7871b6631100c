// Package money holds the decimal arithmetic used for prices, order totals and
// processor amounts. Amounts never pass through float64.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a checkout does not name one.
const DefaultCurrency = "usd"

// zeroDecimalCurrencies are charged in whole units by card processors.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// NormalizeCurrency lower-cases a currency code, defaulting to usd.
func NormalizeCurrency(currency string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

// Exponent returns the number of minor-unit digits for currency.
func Exponent(currency string) int32 {
	if zeroDecimalCurrencies[NormalizeCurrency(currency)] {
		return 0
	}
	return 2
}

// LineTotal is quantity × unit price.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ToMinorUnits converts amount to an integer count of currency minor units.
// Fractions of a minor unit round half away from zero, so 10.005 usd is 1001 cents.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	exp := Exponent(currency)
	scaled := amount.Shift(exp).Round(0)
	if !scaled.IsInteger() || scaled.GreaterThan(decimal.NewFromInt(1<<62)) || scaled.LessThan(decimal.NewFromInt(-(1 << 62))) {
		return 0, fmt.Errorf("amount %s out of range for %s", amount, currency)
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -Exponent(currency))
}
