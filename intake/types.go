package intake

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DistributionType is the unit of every line item's distribution value
// within one prospect.
type DistributionType string

const (
	DistributionPercentage DistributionType = "percentage"
	DistributionAbsolute   DistributionType = "absolute"
)

// ParseDistributionType accepts "percentage", "absolute" and the legacy
// form value "number" (headcount).
func ParseDistributionType(s string) (DistributionType, error) {
	switch s {
	case "percentage":
		return DistributionPercentage, nil
	case "absolute", "number":
		return DistributionAbsolute, nil
	default:
		return "", fmt.Errorf("unknown distribution type %q", s)
	}
}

// Unit returns the display suffix for a distribution value.
func (d DistributionType) Unit() string {
	if d == DistributionPercentage {
		return "%"
	}
	return " emp"
}

// CostShareType tags a deductible or out-of-pocket pair.
type CostShareType string

const (
	CostShareEmbedded  CostShareType = "embedded"
	CostShareAggregate CostShareType = "aggregate"
)

// Prospect is one submitted benefits-design request. Records read back from
// a Repository carry ID, CreatedAt and HashKey; candidates do not.
type Prospect struct {
	ID        string
	HashKey   string
	CreatedAt time.Time

	Name     string
	Industry string

	UnionType                    sql.NullString
	EligibleEmployees            sql.NullInt64
	EligibleMembers              sql.NullInt64
	Consultant                   sql.NullString
	ChannelPartnership           sql.NullString
	HealthplanPartnership        sql.NullString
	NeedsCignaSlides             sql.NullBool
	ScenariosCount               sql.NullInt64
	SmartCyclesOption1           sql.NullString
	SmartCyclesOption2           sql.NullString
	RxCoverageType               sql.NullString
	EggFreezingCoverage          sql.NullString
	FertilityPEPM                decimal.NullDecimal
	FertilityCaseRate            decimal.NullDecimal
	ImplementationFee            decimal.NullDecimal
	CurrentFertilityBenefit      sql.NullString
	FertilityAdministrator       sql.NullString
	CombinedMedicalRxBenefit     sql.NullBool
	CurrentFertilityMedicalLimit decimal.NullDecimal
	MedicalLTMType               sql.NullString
	CurrentFertilityRxLimit      decimal.NullDecimal
	RxLTMType                    sql.NullString
	MedicalBenefitDetails        sql.NullString
	RxBenefitDetails             sql.NullString
	CurrentElectiveEggFreezing   sql.NullString
	LiveBirths12mo               sql.NullInt64
	CurrentBenefitPEPM           decimal.NullDecimal
	CurrentBenefitCaseFee        decimal.NullDecimal
	IncludeNoBenefitColumn       sql.NullBool
	DollarMaxColumn              sql.NullBool
	CompetingAgainst             []string
	AdoptionSurrogacyEstimates   sql.NullBool
	AdoptionCoverage             decimal.NullDecimal
	AdoptionFrequency            sql.NullString
	SurrogacyCoverage            decimal.NullDecimal
	SurrogacyFrequency           sql.NullString
	FemaleEmployees4060          sql.NullInt64
	LiveBirths12moExpanded       sql.NullInt64
	SubscribersDependentsUnder12 sql.NullInt64
	Notes                        sql.NullString
	DueDate                      sql.NullTime
	RushReason                   sql.NullString

	DistributionType DistributionType
	HealthPlans      []HealthPlan
}

// HealthPlan is one ordered line item of a Prospect.
type HealthPlan struct {
	ID         string
	ProspectID string
	HashKey    string
	Position   int

	Name                  string
	DeductibleIndividual  decimal.NullDecimal
	DeductibleFamily      decimal.NullDecimal
	DeductibleType        CostShareType
	OOPIndividual         decimal.NullDecimal
	OOPFamily             decimal.NullDecimal
	OOPType               CostShareType
	CoinsuranceIndividual decimal.NullDecimal
	CoinsuranceFamily     decimal.NullDecimal
	DistributionValue     decimal.NullDecimal
	DistributionType      DistributionType
	HasCopays             bool
	CopayType             sql.NullString
}

// Clone returns a deep copy so callers can't mutate shared line items.
func (p *Prospect) Clone() *Prospect {
	if p == nil {
		return nil
	}
	c := *p
	if p.CompetingAgainst != nil {
		c.CompetingAgainst = append([]string(nil), p.CompetingAgainst...)
	}
	if p.HealthPlans != nil {
		c.HealthPlans = append([]HealthPlan(nil), p.HealthPlans...)
	}
	return &c
}

// DistributionValues returns the line items' distribution values in order;
// absent values count as zero.
func (p *Prospect) DistributionValues() []decimal.Decimal {
	values := make([]decimal.Decimal, len(p.HealthPlans))
	for i, hp := range p.HealthPlans {
		if hp.DistributionValue.Valid {
			values[i] = hp.DistributionValue.Decimal
		}
	}
	return values
}
