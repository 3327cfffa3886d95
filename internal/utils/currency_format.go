package utils

import (
	"github.com/shopspring/decimal"
)

const (
	// AmountDisplayPrecision bounds the fractional digits shown for amounts.
	AmountDisplayPrecision = 8
	// RateDisplayPrecision bounds the fractional digits shown for rates.
	RateDisplayPrecision = 10
)

// FormatAmount formats an asset amount for display.
// Example: 0.66666666666666667 returns "0.66666667"
func FormatAmount(amount decimal.Decimal) string {
	return FormatWithPrecision(amount, AmountDisplayPrecision)
}

// FormatRate formats a conversion rate for display.
// Example: 0.006666666666666667 returns "0.0066666667"
func FormatRate(rate decimal.Decimal) string {
	return FormatWithPrecision(rate, RateDisplayPrecision)
}

// FormatWithPrecision formats an amount with the given precision
// This is a convenience function when you only have the precision value
func FormatWithPrecision(amount decimal.Decimal, precision int) string {
	return amount.Round(int32(precision)).String()
}
