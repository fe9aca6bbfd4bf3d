package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamcoop/prospects/policy"
)

// Validator checks a candidate in form order and stops at the first
// failure.
type Validator struct {
	rules    *policy.Engine
	location *time.Location
	dueDays  int
	now      func() time.Time
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithClock overrides the clock used for the default due date.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// WithLocation sets the business location "today" is computed in.
func WithLocation(loc *time.Location) ValidatorOption {
	return func(v *Validator) { v.location = loc }
}

// WithDueDays sets how many business days out the default due date is.
func WithDueDays(n int) ValidatorOption {
	return func(v *Validator) { v.dueDays = n }
}

// NewValidator creates a validator. A nil rules engine skips policy rules.
func NewValidator(rules *policy.Engine, opts ...ValidatorOption) *Validator {
	v := &Validator{
		rules:    rules,
		location: time.UTC,
		dueDays:  DefaultDueDateBusinessDays,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// DefaultDueDate is the due date proposed to submitters: the configured
// number of business days after today.
func (v *Validator) DefaultDueDate() time.Time {
	return AddBusinessDays(v.now().In(v.location), v.dueDays)
}

// Validate returns a *ValidationError or *DistributionMismatchError for the
// first problem found, or nil.
func (v *Validator) Validate(c Candidate) error {
	p := c.record

	if strings.TrimSpace(p.Name) == "" {
		return newValidationError("prospectName", "Prospect name is required")
	}
	if strings.TrimSpace(p.Industry) == "" {
		return newValidationError("prospectIndustry", "Prospect industry is required")
	}
	if !p.EligibleEmployees.Valid || p.EligibleEmployees.Int64 <= 0 {
		return newValidationError("eligibleEmployees", "Valid number of eligible employees is required")
	}
	if !p.EligibleMembers.Valid || p.EligibleMembers.Int64 <= 0 {
		return newValidationError("eligibleMembers", "Valid number of eligible members is required")
	}

	if v.rules != nil {
		if violation := v.rules.FirstViolation(c.Facts()); violation != nil {
			return newValidationError(violation.RuleID, violation.Message)
		}
	}

	if err := ValidateDistribution(p.DistributionType, p.DistributionValues(), p.EligibleEmployees.Int64); err != nil {
		return err
	}

	for i := range p.HealthPlans {
		if err := validateHealthPlan(i, &p.HealthPlans[i]); err != nil {
			return err
		}
	}

	if len(p.HealthPlans) == 0 {
		return newValidationError("healthPlans", "At least one health plan is required")
	}

	if p.DueDate.Valid && !p.RushReason.Valid && !DateOf(p.DueDate.Time).Equal(v.DefaultDueDate()) {
		return newValidationError("rushReason", fmt.Sprintf("Rush reason is required when the due date differs from the standard %d-day SLA", v.dueDays))
	}

	return nil
}

func validateHealthPlan(i int, hp *HealthPlan) error {
	required := func(field, label string) error {
		return newValidationError(fmt.Sprintf("healthPlans[%d].%s", i, field), fmt.Sprintf("Health plan %d: %s", i+1, label))
	}

	switch {
	case strings.TrimSpace(hp.Name) == "":
		return required("healthPlanName", "Name is required")
	case !hp.DeductibleIndividual.Valid:
		return required("deductibleIndividual", "Individual deductible is required")
	case !hp.DeductibleFamily.Valid:
		return required("deductibleFamily", "Family deductible is required")
	case !hp.OOPIndividual.Valid:
		return required("oopIndividual", "Individual OOP is required")
	case !hp.OOPFamily.Valid:
		return required("oopFamily", "Family OOP is required")
	case !hp.CoinsuranceIndividual.Valid:
		return required("coinsuranceIndividual", "Individual coinsurance is required")
	case !hp.CoinsuranceFamily.Valid:
		return required("coinsuranceFamily", "Family coinsurance is required")
	case !hp.DistributionValue.Valid:
		return required("employeeDistribution", "Employee distribution is required")
	case hp.HasCopays && !hp.CopayType.Valid:
		return required("copayType", "Copay type is required when copays are enabled")
	}

	amounts := []struct {
		field, label string
		value        decimal.NullDecimal
	}{
		{"deductibleIndividual", "Individual deductible", hp.DeductibleIndividual},
		{"deductibleFamily", "Family deductible", hp.DeductibleFamily},
		{"oopIndividual", "Individual OOP", hp.OOPIndividual},
		{"oopFamily", "Family OOP", hp.OOPFamily},
		{"coinsuranceIndividual", "Individual coinsurance", hp.CoinsuranceIndividual},
		{"coinsuranceFamily", "Family coinsurance", hp.CoinsuranceFamily},
		{"employeeDistribution", "Employee distribution", hp.DistributionValue},
	}
	for _, a := range amounts {
		if a.value.Decimal.IsNegative() {
			return required(a.field, a.label+" cannot be negative")
		}
	}
	return nil
}
