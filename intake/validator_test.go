package intake

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/prospects/policy"
)

func TestValidatorAcceptsValidPayload(t *testing.T) {
	v := newTestValidator(t)
	assert.NoError(t, v.Validate(mustCandidate(t, validPayload())))
}

func TestValidatorFirstFailureWins(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(p *SubmissionPayload)
		field   string
		message string
	}{
		{
			"Missing name",
			func(p *SubmissionPayload) { p.ProspectName = "  "; p.ProspectIndustry = "" },
			"prospectName", "Prospect name is required",
		},
		{
			"Missing industry",
			func(p *SubmissionPayload) { p.ProspectIndustry = ""; p.EligibleEmployees = "" },
			"prospectIndustry", "Prospect industry is required",
		},
		{
			"Zero employees",
			func(p *SubmissionPayload) { p.EligibleEmployees = "0" },
			"eligibleEmployees", "Valid number of eligible employees is required",
		},
		{
			"Negative employees",
			func(p *SubmissionPayload) { p.EligibleEmployees = "-100" },
			"eligibleEmployees", "Valid number of eligible employees is required",
		},
		{
			"Negative members",
			func(p *SubmissionPayload) { p.EligibleMembers = "-$250" },
			"eligibleMembers", "Valid number of eligible members is required",
		},
		{
			"Missing members",
			func(p *SubmissionPayload) { p.EligibleMembers = "" },
			"eligibleMembers", "Valid number of eligible members is required",
		},
		{
			"Cigna without slides answer",
			func(p *SubmissionPayload) { p.HealthplanPartnership = "Cigna"; p.HealthPlans[0].EmployeeDistribution = "10" },
			policy.CignaSlidesRuleID, "Please specify if Cigna branded slides are needed",
		},
		{
			"Plan name",
			func(p *SubmissionPayload) { p.HealthPlans[1].HealthPlanName = ""; p.HealthPlans[1].OOPFamily = "" },
			"healthPlans[1].healthPlanName", "Health plan 2: Name is required",
		},
		{
			"Plan family OOP",
			func(p *SubmissionPayload) { p.HealthPlans[0].OOPFamily = "n/a" },
			"healthPlans[0].oopFamily", "Health plan 1: Family OOP is required",
		},
		{
			"Plan coinsurance",
			func(p *SubmissionPayload) { p.HealthPlans[0].CoinsuranceFamily = "" },
			"healthPlans[0].coinsuranceFamily", "Health plan 1: Family coinsurance is required",
		},
		{
			"Negative deductible",
			func(p *SubmissionPayload) { p.HealthPlans[0].DeductibleIndividual = "-1,500" },
			"healthPlans[0].deductibleIndividual", "Health plan 1: Individual deductible cannot be negative",
		},
		{
			"Negative distribution offset by another plan",
			func(p *SubmissionPayload) {
				p.HealthPlans[0].EmployeeDistribution = "130"
				p.HealthPlans[1].EmployeeDistribution = "-30"
			},
			"healthPlans[1].employeeDistribution", "Health plan 2: Employee distribution cannot be negative",
		},
		{
			"Copay type when copays enabled",
			func(p *SubmissionPayload) { p.HealthPlans[1].HasCopays = "yes" },
			"healthPlans[1].copayType", "Health plan 2: Copay type is required when copays are enabled",
		},
		{
			"Moved due date without reason",
			func(p *SubmissionPayload) { p.DueDate = "2024-01-03" },
			"rushReason", "Rush reason is required when the due date differs from the standard 5-day SLA",
		},
	}

	v := newTestValidator(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payload := validPayload()
			tc.mutate(&payload)

			err := v.Validate(mustCandidate(t, payload))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, tc.message, verr.Message)
		})
	}
}

func TestValidatorDistributionBeforeHealthPlans(t *testing.T) {
	payload := validPayload()
	payload.HealthPlans[0].EmployeeDistribution = "60"
	payload.HealthPlans[1].HealthPlanName = ""

	err := newTestValidator(t).Validate(mustCandidate(t, payload))
	var mismatch *DistributionMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, "90", mismatch.Total.String())
}

func TestValidatorAbsoluteDistribution(t *testing.T) {
	payload := validPayload()
	payload.DistributionType = "number"
	payload.HealthPlans[0].EmployeeDistribution = "70"
	payload.HealthPlans[1].EmployeeDistribution = "30"

	v := newTestValidator(t)
	assert.NoError(t, v.Validate(mustCandidate(t, payload)))

	payload.HealthPlans[1].EmployeeDistribution = "31"
	var mismatch *DistributionMismatchError
	require.True(t, errors.As(v.Validate(mustCandidate(t, payload)), &mismatch))
}

func TestValidatorEmptyHealthPlans(t *testing.T) {
	payload := validPayload()
	payload.HealthPlans = nil

	err := newTestValidator(t).Validate(mustCandidate(t, payload))
	var mismatch *DistributionMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.True(t, mismatch.Total.IsZero())
}

func TestValidatorDueDate(t *testing.T) {
	v := newTestValidator(t)
	assert.Equal(t, date(2024, 1, 8), v.DefaultDueDate())

	payload := validPayload()
	payload.DueDate = "2024-01-08"
	assert.NoError(t, v.Validate(mustCandidate(t, payload)), "default due date needs no reason")

	payload.DueDate = "2024-01-03"
	payload.RushReason = "renewal meeting moved up"
	assert.NoError(t, v.Validate(mustCandidate(t, payload)))
}

func TestValidatorLocation(t *testing.T) {
	// 02:00 UTC Friday is still Thursday in New York
	loc := time.FixedZone("EST", -5*60*60)
	now := time.Date(2024, 1, 5, 2, 0, 0, 0, time.UTC)

	v := NewValidator(nil, WithClock(func() time.Time { return now }), WithLocation(loc), WithDueDays(1))
	assert.Equal(t, date(2024, 1, 5), v.DefaultDueDate())

	utc := NewValidator(nil, WithClock(func() time.Time { return now }), WithDueDays(1))
	assert.Equal(t, date(2024, 1, 8), utc.DefaultDueDate())
}

func TestValidatorExtraPolicyRule(t *testing.T) {
	engine, err := policy.NewDefaultEngine(&policy.Rule{
		ID:         "scenarios_limit",
		Expression: `prospect.scenariosCount != null && prospect.scenariosCount > 5`,
		Message:    "At most 5 scenarios can be modeled",
		Active:     true,
	})
	require.NoError(t, err)
	v := NewValidator(engine, WithClock(func() time.Time { return monday }))

	payload := validPayload()
	payload.ScenariosCount = "6"
	err = v.Validate(mustCandidate(t, payload))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "At most 5 scenarios can be modeled", verr.Message)

	payload.ScenariosCount = ""
	assert.NoError(t, v.Validate(mustCandidate(t, payload)))
}
