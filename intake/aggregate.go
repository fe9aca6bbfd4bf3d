package intake

import (
	"github.com/shopspring/decimal"

	"github.com/liamcoop/prospects/internal/logger"
)

// BlendedOOPFamily returns the family out-of-pocket maximum across plans,
// weighted by each plan's population share. It is for display only.
//
// Plans with a missing or non-positive OOP family value are skipped. A
// percentage share weighs distributionValue/100 and the weighted sum is
// returned as is; a headcount share weighs the raw value and the sum is
// divided by the total weight. The unit of the first plan decides which.
// The partition is not re-validated, so historical rows whose percentages
// don't sum to 100 produce a scaled result. Returns null when there are no
// plans or the total weight is zero.
func BlendedOOPFamily(plans []HealthPlan) decimal.NullDecimal {
	if len(plans) == 0 {
		return decimal.NullDecimal{}
	}

	totalWeight := decimal.Zero
	weightedSum := decimal.Zero

	for i, plan := range plans {
		if !plan.OOPFamily.Valid || !plan.OOPFamily.Decimal.IsPositive() {
			logger.Warn("skipping health plan without oop family", "index", i, "plan", plan.Name)
			continue
		}

		weight := decimal.Zero
		if plan.DistributionValue.Valid {
			weight = plan.DistributionValue.Decimal
		}
		if plan.DistributionType == DistributionPercentage {
			weight = weight.Div(oneHundred)
		}

		totalWeight = totalWeight.Add(weight)
		weightedSum = weightedSum.Add(plan.OOPFamily.Decimal.Mul(weight))
	}

	if totalWeight.IsZero() {
		return decimal.NullDecimal{}
	}

	if plans[0].DistributionType == DistributionPercentage {
		return decimal.NewNullDecimal(weightedSum)
	}
	return decimal.NewNullDecimal(weightedSum.Div(totalWeight))
}
