package accounting

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ApplyRate multiplies an integer minor-unit amount by a fractional rate and
// rounds half-up back to minor units. Used for platform commission and
// delivery margin computation; all downstream arithmetic stays in int64 so
// batches can be summed exactly.
func ApplyRate(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}

// ValidateRate checks that a fractional rate is within [0, 1).
func ValidateRate(name string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be in [0, 1), got %s", name, rate.String())
	}
	return nil
}

// FormatMinorUnits renders a minor-unit amount as a major-unit decimal string
// with two fraction digits, for exports and operator-facing output.
func FormatMinorUnits(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
