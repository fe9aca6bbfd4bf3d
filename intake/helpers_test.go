package intake

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/prospects/policy"
)

// monday is a fixed Monday used as "today" across tests.
var monday = time.Date(2024, time.January, 1, 10, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func planPayload(name, oopFamily, distribution string) HealthPlanPayload {
	return HealthPlanPayload{
		HealthPlanName:        name,
		DeductibleIndividual:  "1500",
		DeductibleFamily:      "3000",
		DeductibleType:        "embedded",
		OOPIndividual:         "4000",
		OOPFamily:             FlexString(oopFamily),
		OOPType:               "embedded",
		CoinsuranceIndividual: "20",
		CoinsuranceFamily:     "20",
		EmployeeDistribution:  FlexString(distribution),
		HasCopays:             "no",
	}
}

// validPayload is a complete percentage submission with a 70/30 split.
func validPayload() SubmissionPayload {
	return SubmissionPayload{
		ProspectName:          "Acme Corp",
		ProspectIndustry:      "Manufacturing",
		EligibleEmployees:     "100",
		EligibleMembers:       "250",
		HealthplanPartnership: "Aetna",
		FertilityPEPM:         "150.00",
		ImplementationFee:     "$1,250.50",
		Notes:                 "",
		DistributionType:      "percentage",
		HealthPlans: []HealthPlanPayload{
			planPayload("PPO", "8000", "70"),
			planPayload("HDHP", "10000", "30"),
		},
	}
}

func mustCandidate(t *testing.T, p SubmissionPayload) Candidate {
	t.Helper()
	c, err := NewCandidate(p)
	require.NoError(t, err)
	return c
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	engine, err := policy.NewDefaultEngine()
	require.NoError(t, err)
	return NewValidator(engine, WithClock(func() time.Time { return monday }))
}
