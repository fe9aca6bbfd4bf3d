package intake

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storedCopy simulates the record as read back from the database: numbers
// come back in their canonical numeric form.
func storedCopy(t *testing.T, p SubmissionPayload) *Prospect {
	t.Helper()
	rec := mustCandidate(t, p).Record()
	rec.ID = "stored-1"
	rec.FertilityPEPM = dec("150")
	return rec
}

func TestEquivalentNumericForms(t *testing.T) {
	candidate := mustCandidate(t, validPayload()).Record()
	stored := storedCopy(t, validPayload())

	assert.Equal(t, "", Mismatch(candidate, stored))
	assert.True(t, Equivalent(candidate, stored))
}

func TestEquivalentEmptyStringIsNull(t *testing.T) {
	payload := validPayload()
	payload.NeedsCignaSlides = ""
	candidate := mustCandidate(t, payload).Record()

	stored := storedCopy(t, validPayload())
	stored.NeedsCignaSlides = sql.NullBool{}

	assert.True(t, Equivalent(candidate, stored))

	stored.NeedsCignaSlides = sql.NullBool{Bool: false, Valid: true}
	assert.Equal(t, "needs_cigna_slides", Mismatch(candidate, stored))
}

func TestMismatchSwappedHealthPlans(t *testing.T) {
	// Line items are compared by position: the same plans in a different
	// order are not a duplicate.
	swapped := validPayload()
	swapped.HealthPlans[0], swapped.HealthPlans[1] = swapped.HealthPlans[1], swapped.HealthPlans[0]
	candidate := mustCandidate(t, swapped).Record()
	stored := storedCopy(t, validPayload())

	assert.False(t, Equivalent(candidate, stored))
	assert.Equal(t, "health_plans[0].health_plan_name", Mismatch(candidate, stored))
}

func TestMismatchHealthPlanCount(t *testing.T) {
	payload := validPayload()
	payload.HealthPlans = payload.HealthPlans[:1]
	candidate := mustCandidate(t, payload).Record()

	assert.Equal(t, "health_plans.count", Mismatch(candidate, storedCopy(t, validPayload())))
}

func TestMismatchFields(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *SubmissionPayload)
		field  string
	}{
		{"Name", func(p *SubmissionPayload) { p.ProspectName = "Acme Inc" }, "prospect_name"},
		{"Eligible employees", func(p *SubmissionPayload) { p.EligibleEmployees = "101" }, "eligible_employees"},
		{"Fertility PEPM", func(p *SubmissionPayload) { p.FertilityPEPM = "150.01" }, "fertility_pepm"},
		{"Notes", func(p *SubmissionPayload) { p.Notes = "call back" }, "notes"},
		{"Due date", func(p *SubmissionPayload) { p.DueDate = "2024-01-08" }, "due_date"},
		{"Plan OOP", func(p *SubmissionPayload) { p.HealthPlans[1].OOPFamily = "10001" }, "health_plans[1].oop_family"},
		{"Plan copays", func(p *SubmissionPayload) { p.HealthPlans[0].HasCopays = "yes" }, "health_plans[0].has_copays"},
		{"Distribution unit", func(p *SubmissionPayload) {
			p.DistributionType = "number"
		}, "health_plans[0].employee_distribution_type"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payload := validPayload()
			tc.mutate(&payload)
			candidate := mustCandidate(t, payload).Record()

			assert.Equal(t, tc.field, Mismatch(candidate, storedCopy(t, validPayload())))
		})
	}
}

func TestMismatchIgnoresUncomparedFields(t *testing.T) {
	payload := validPayload()
	payload.RushReason = "board meeting"
	payload.CompetingAgainst = []string{"Progyny"}
	candidate := mustCandidate(t, payload).Record()

	require.True(t, candidate.RushReason.Valid)
	assert.True(t, Equivalent(candidate, storedCopy(t, validPayload())))
}
