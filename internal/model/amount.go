package model

import "github.com/shopspring/decimal"

var half = decimal.RequireFromString("0.5")

// FormatAmount renders d with the given number of decimal places, rounding
// half up (toward positive infinity) so -2.25 becomes -2.2 at one place.
func FormatAmount(d decimal.Decimal, places int32) string {
	if places < 0 {
		places = 0
	}
	return d.Shift(places).Add(half).Floor().Shift(-places).StringFixed(places)
}
