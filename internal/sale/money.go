package sale

import "github.com/shopspring/decimal"

// Round2 rounds a monetary value to two decimal places, half away from zero
// (0.125 -> 0.13, -0.125 -> -0.13). Every amount stored on the aggregate goes
// through this helper so item and sale totals never drift apart.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
