package intake

import (
	"database/sql"
	"strconv"

	"github.com/shopspring/decimal"
)

// fieldCheck is one named equality test between a candidate and a stored
// record. The name only feeds debug logs.
type fieldCheck struct {
	name  string
	equal bool
}

func textEq(a, b sql.NullString) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.String == b.String
}

func flagEq(a, b sql.NullBool) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Bool == b.Bool
}

func intEq(a, b sql.NullInt64) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Int64 == b.Int64
}

// decimalEq is exact numeric equality: 150.00 equals 150.
func decimalEq(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func dateEq(a, b sql.NullTime) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || DateOf(a.Time).Equal(DateOf(b.Time))
}

// prospectChecks lists the scalar fields that take part in duplicate
// detection. Name and industry are the lookup key and are compared too.
func prospectChecks(c, s *Prospect) []fieldCheck {
	return []fieldCheck{
		{"prospect_name", c.Name == s.Name},
		{"prospect_industry", c.Industry == s.Industry},
		{"union_type", textEq(c.UnionType, s.UnionType)},
		{"eligible_employees", intEq(c.EligibleEmployees, s.EligibleEmployees)},
		{"eligible_members", intEq(c.EligibleMembers, s.EligibleMembers)},
		{"consultant", textEq(c.Consultant, s.Consultant)},
		{"channel_partnership", textEq(c.ChannelPartnership, s.ChannelPartnership)},
		{"healthplan_partnership", textEq(c.HealthplanPartnership, s.HealthplanPartnership)},
		{"needs_cigna_slides", flagEq(c.NeedsCignaSlides, s.NeedsCignaSlides)},
		{"scenarios_count", intEq(c.ScenariosCount, s.ScenariosCount)},
		{"smart_cycles_option_1", textEq(c.SmartCyclesOption1, s.SmartCyclesOption1)},
		{"smart_cycles_option_2", textEq(c.SmartCyclesOption2, s.SmartCyclesOption2)},
		{"rx_coverage_type", textEq(c.RxCoverageType, s.RxCoverageType)},
		{"egg_freezing_coverage", textEq(c.EggFreezingCoverage, s.EggFreezingCoverage)},
		{"fertility_pepm", decimalEq(c.FertilityPEPM, s.FertilityPEPM)},
		{"fertility_case_rate", decimalEq(c.FertilityCaseRate, s.FertilityCaseRate)},
		{"implementation_fee", decimalEq(c.ImplementationFee, s.ImplementationFee)},
		{"current_fertility_benefit", textEq(c.CurrentFertilityBenefit, s.CurrentFertilityBenefit)},
		{"fertility_administrator", textEq(c.FertilityAdministrator, s.FertilityAdministrator)},
		{"combined_medical_rx_benefit", flagEq(c.CombinedMedicalRxBenefit, s.CombinedMedicalRxBenefit)},
		{"notes", textEq(c.Notes, s.Notes)},
		{"due_date", dateEq(c.DueDate, s.DueDate)},
	}
}

func healthPlanChecks(c, s *HealthPlan) []fieldCheck {
	return []fieldCheck{
		{"health_plan_name", c.Name == s.Name},
		{"deductible_individual", decimalEq(c.DeductibleIndividual, s.DeductibleIndividual)},
		{"deductible_family", decimalEq(c.DeductibleFamily, s.DeductibleFamily)},
		{"deductible_type", c.DeductibleType == s.DeductibleType},
		{"oop_individual", decimalEq(c.OOPIndividual, s.OOPIndividual)},
		{"oop_family", decimalEq(c.OOPFamily, s.OOPFamily)},
		{"oop_type", c.OOPType == s.OOPType},
		{"coinsurance_individual", decimalEq(c.CoinsuranceIndividual, s.CoinsuranceIndividual)},
		{"coinsurance_family", decimalEq(c.CoinsuranceFamily, s.CoinsuranceFamily)},
		{"employee_distribution_type", c.DistributionType == s.DistributionType},
		{"employee_distribution", decimalEq(c.DistributionValue, s.DistributionValue)},
		{"has_copays", c.HasCopays == s.HasCopays},
		{"copay_type", textEq(c.CopayType, s.CopayType)},
	}
}

func firstFailed(checks []fieldCheck) string {
	for _, fc := range checks {
		if !fc.equal {
			return fc.name
		}
	}
	return ""
}

// Mismatch returns the first field on which candidate and stored differ, or
// "" when they are semantically identical. Health plans are compared by
// position, so the same plans in a different order are a mismatch.
func Mismatch(candidate, stored *Prospect) string {
	if len(candidate.HealthPlans) != len(stored.HealthPlans) {
		return "health_plans.count"
	}

	if field := firstFailed(prospectChecks(candidate, stored)); field != "" {
		return field
	}

	for i := range candidate.HealthPlans {
		if field := firstFailed(healthPlanChecks(&candidate.HealthPlans[i], &stored.HealthPlans[i])); field != "" {
			return "health_plans[" + strconv.Itoa(i) + "]." + field
		}
	}

	return ""
}

// Equivalent reports whether candidate and stored are the same submission
// after normalization.
func Equivalent(candidate, stored *Prospect) bool {
	return Mismatch(candidate, stored) == ""
}
