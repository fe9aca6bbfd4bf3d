package intake

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	oneHundred          = decimal.NewFromInt(100)
	percentageTolerance = decimal.RequireFromString("0.01")
)

// ValidateDistribution checks that values partition the population: they
// must sum to 100 (within 0.01) for percentage, or exactly to
// eligibleEmployees for absolute headcounts.
func ValidateDistribution(kind DistributionType, values []decimal.Decimal, eligibleEmployees int64) error {
	total := decimal.Sum(decimal.Zero, values...)

	switch kind {
	case DistributionPercentage:
		if total.Sub(oneHundred).Abs().GreaterThan(percentageTolerance) {
			return &DistributionMismatchError{Type: kind, Total: total, Expected: oneHundred}
		}
	case DistributionAbsolute:
		expected := decimal.NewFromInt(eligibleEmployees)
		if !total.Equal(expected) {
			return &DistributionMismatchError{Type: kind, Total: total, Expected: expected}
		}
	default:
		return fmt.Errorf("unknown distribution type %q", kind)
	}

	return nil
}
