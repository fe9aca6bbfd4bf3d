package intake

import (
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"
)

// SubmissionPayload is the form as submitted. Scalar values may arrive as
// JSON strings, numbers, booleans or null.
type SubmissionPayload struct {
	ProspectName                 string     `json:"prospectName"`
	ProspectIndustry             string     `json:"prospectIndustry"`
	UnionType                    FlexString `json:"unionType"`
	EligibleEmployees            FlexString `json:"eligibleEmployees"`
	EligibleMembers              FlexString `json:"eligibleMembers"`
	Consultant                   FlexString `json:"consultant"`
	ChannelPartnership           FlexString `json:"channelPartnership"`
	HealthplanPartnership        FlexString `json:"healthplanPartnership"`
	NeedsCignaSlides             FlexString `json:"needsCignaSlides"`
	ScenariosCount               FlexString `json:"scenariosCount"`
	SmartCyclesOption1           FlexString `json:"smartCyclesOption1"`
	SmartCyclesOption2           FlexString `json:"smartCyclesOption2"`
	RxCoverageType               FlexString `json:"rxCoverageType"`
	EggFreezingCoverage          FlexString `json:"eggFreezingCoverage"`
	FertilityPEPM                FlexString `json:"fertilityPepm"`
	FertilityCaseRate            FlexString `json:"fertilityCaseRate"`
	ImplementationFee            FlexString `json:"implementationFee"`
	CurrentFertilityBenefit      FlexString `json:"currentFertilityBenefit"`
	FertilityAdministrator       FlexString `json:"fertilityAdministrator"`
	CombinedMedicalRxBenefit     FlexString `json:"combinedMedicalRxBenefit"`
	CurrentFertilityMedicalLimit FlexString `json:"currentFertilityMedicalLimit"`
	MedicalLTMType               FlexString `json:"medicalLtmType"`
	CurrentFertilityRxLimit      FlexString `json:"currentFertilityRxLimit"`
	RxLTMType                    FlexString `json:"rxLtmType"`
	MedicalBenefitDetails        FlexString `json:"medicalBenefitDetails"`
	RxBenefitDetails             FlexString `json:"rxBenefitDetails"`
	CurrentElectiveEggFreezing   FlexString `json:"currentElectiveEggFreezing"`
	LiveBirths12mo               FlexString `json:"liveBirths12mo"`
	CurrentBenefitPEPM           FlexString `json:"currentBenefitPepm"`
	CurrentBenefitCaseFee        FlexString `json:"currentBenefitCaseFee"`
	IncludeNoBenefitColumn       FlexString `json:"includeNoBenefitColumn"`
	DollarMaxColumn              FlexString `json:"dollarMaxColumn"`
	CompetingAgainst             []string   `json:"competingAgainst"`
	AdoptionSurrogacyEstimates   FlexString `json:"adoptionSurrogacyEstimates"`
	AdoptionCoverage             FlexString `json:"adoptionCoverage"`
	AdoptionFrequency            FlexString `json:"adoptionFrequency"`
	SurrogacyCoverage            FlexString `json:"surrogacyCoverage"`
	SurrogacyFrequency           FlexString `json:"surrogacyFrequency"`
	FemaleEmployees4060          FlexString `json:"femaleEmployees4060"`
	LiveBirths12moExpanded       FlexString `json:"liveBirths12moExpanded"`
	SubscribersDependentsUnder12 FlexString `json:"subscribersDependentsUnder12"`
	Notes                        FlexString `json:"notes"`
	DueDate                      FlexString `json:"dueDate"`
	RushReason                   FlexString `json:"rushReason"`
	DistributionType             string     `json:"distributionType"`

	HealthPlans []HealthPlanPayload `json:"healthPlans"`
}

// HealthPlanPayload is one health plan row of the form.
type HealthPlanPayload struct {
	HealthPlanName        string     `json:"healthPlanName"`
	DeductibleIndividual  FlexString `json:"deductibleIndividual"`
	DeductibleFamily      FlexString `json:"deductibleFamily"`
	DeductibleType        string     `json:"deductibleType"`
	OOPIndividual         FlexString `json:"oopIndividual"`
	OOPFamily             FlexString `json:"oopFamily"`
	OOPType               string     `json:"oopType"`
	CoinsuranceIndividual FlexString `json:"coinsuranceIndividual"`
	CoinsuranceFamily     FlexString `json:"coinsuranceFamily"`
	EmployeeDistribution  FlexString `json:"employeeDistribution"`
	HasCopays             FlexString `json:"hasCopays"`
	CopayType             FlexString `json:"copayType"`
}

// Candidate is a normalized submission. It is built once by NewCandidate
// and never changes; Record hands out copies.
type Candidate struct {
	record *Prospect
}

// NewCandidate normalizes a payload. Only an unknown distribution type or
// an unparseable due date fail here; everything else is left to Validator.
func NewCandidate(p SubmissionPayload) (Candidate, error) {
	kind := DistributionPercentage
	if p.DistributionType != "" {
		parsed, err := ParseDistributionType(p.DistributionType)
		if err != nil {
			return Candidate{}, newValidationError("distributionType", "Employee distribution type must be percentage or number")
		}
		kind = parsed
	}

	due, err := NormalizeDate(p.DueDate.String())
	if err != nil {
		return Candidate{}, newValidationError("dueDate", "Due date must be a calendar date (YYYY-MM-DD)")
	}

	rec := &Prospect{
		Name:                         p.ProspectName,
		Industry:                     p.ProspectIndustry,
		UnionType:                    NormalizeText(p.UnionType.String()),
		EligibleEmployees:            NormalizeInt(p.EligibleEmployees.String()),
		EligibleMembers:              NormalizeInt(p.EligibleMembers.String()),
		Consultant:                   NormalizeText(p.Consultant.String()),
		ChannelPartnership:           NormalizeText(p.ChannelPartnership.String()),
		HealthplanPartnership:        NormalizeText(p.HealthplanPartnership.String()),
		NeedsCignaSlides:             NormalizeFlag(p.NeedsCignaSlides.String()),
		ScenariosCount:               NormalizeInt(p.ScenariosCount.String()),
		SmartCyclesOption1:           NormalizeText(p.SmartCyclesOption1.String()),
		SmartCyclesOption2:           NormalizeText(p.SmartCyclesOption2.String()),
		RxCoverageType:               NormalizeText(p.RxCoverageType.String()),
		EggFreezingCoverage:          NormalizeText(p.EggFreezingCoverage.String()),
		FertilityPEPM:                NormalizeDecimal(p.FertilityPEPM.String()),
		FertilityCaseRate:            NormalizeDecimal(p.FertilityCaseRate.String()),
		ImplementationFee:            NormalizeDecimal(p.ImplementationFee.String()),
		CurrentFertilityBenefit:      NormalizeText(p.CurrentFertilityBenefit.String()),
		FertilityAdministrator:       NormalizeText(p.FertilityAdministrator.String()),
		CombinedMedicalRxBenefit:     NormalizeFlag(p.CombinedMedicalRxBenefit.String()),
		CurrentFertilityMedicalLimit: NormalizeDecimal(p.CurrentFertilityMedicalLimit.String()),
		MedicalLTMType:               NormalizeText(p.MedicalLTMType.String()),
		CurrentFertilityRxLimit:      NormalizeDecimal(p.CurrentFertilityRxLimit.String()),
		RxLTMType:                    NormalizeText(p.RxLTMType.String()),
		MedicalBenefitDetails:        NormalizeText(p.MedicalBenefitDetails.String()),
		RxBenefitDetails:             NormalizeText(p.RxBenefitDetails.String()),
		CurrentElectiveEggFreezing:   NormalizeText(p.CurrentElectiveEggFreezing.String()),
		LiveBirths12mo:               NormalizeInt(p.LiveBirths12mo.String()),
		CurrentBenefitPEPM:           NormalizeDecimal(p.CurrentBenefitPEPM.String()),
		CurrentBenefitCaseFee:        NormalizeDecimal(p.CurrentBenefitCaseFee.String()),
		IncludeNoBenefitColumn:       NormalizeFlag(p.IncludeNoBenefitColumn.String()),
		DollarMaxColumn:              NormalizeFlag(p.DollarMaxColumn.String()),
		AdoptionSurrogacyEstimates:   NormalizeFlag(p.AdoptionSurrogacyEstimates.String()),
		AdoptionCoverage:             NormalizeDecimal(p.AdoptionCoverage.String()),
		AdoptionFrequency:            NormalizeText(p.AdoptionFrequency.String()),
		SurrogacyCoverage:            NormalizeDecimal(p.SurrogacyCoverage.String()),
		SurrogacyFrequency:           NormalizeText(p.SurrogacyFrequency.String()),
		FemaleEmployees4060:          NormalizeInt(p.FemaleEmployees4060.String()),
		LiveBirths12moExpanded:       NormalizeInt(p.LiveBirths12moExpanded.String()),
		SubscribersDependentsUnder12: NormalizeInt(p.SubscribersDependentsUnder12.String()),
		Notes:                        NormalizeText(p.Notes.String()),
		DueDate:                      due,
		RushReason:                   NormalizeText(p.RushReason.String()),
		DistributionType:             kind,
	}

	if len(p.CompetingAgainst) > 0 {
		rec.CompetingAgainst = append([]string(nil), p.CompetingAgainst...)
	}

	rec.HealthPlans = make([]HealthPlan, len(p.HealthPlans))
	for i, hp := range p.HealthPlans {
		rec.HealthPlans[i] = HealthPlan{
			Position:              i,
			Name:                  hp.HealthPlanName,
			DeductibleIndividual:  NormalizeDecimal(hp.DeductibleIndividual.String()),
			DeductibleFamily:      NormalizeDecimal(hp.DeductibleFamily.String()),
			DeductibleType:        costShareType(hp.DeductibleType),
			OOPIndividual:         NormalizeDecimal(hp.OOPIndividual.String()),
			OOPFamily:             NormalizeDecimal(hp.OOPFamily.String()),
			OOPType:               costShareType(hp.OOPType),
			CoinsuranceIndividual: NormalizeDecimal(hp.CoinsuranceIndividual.String()),
			CoinsuranceFamily:     NormalizeDecimal(hp.CoinsuranceFamily.String()),
			DistributionValue:     NormalizeDecimal(hp.EmployeeDistribution.String()),
			DistributionType:      kind,
			HasCopays:             hp.HasCopays.String() == "yes" || hp.HasCopays.String() == "true",
			CopayType:             NormalizeText(hp.CopayType.String()),
		}
	}

	return Candidate{record: rec}, nil
}

func costShareType(raw string) CostShareType {
	if strings.EqualFold(raw, string(CostShareAggregate)) {
		return CostShareAggregate
	}
	return CostShareEmbedded
}

func textFact(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

func flagFact(v sql.NullBool) any {
	if !v.Valid {
		return nil
	}
	return v.Bool
}

func intFact(v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func decimalFact(v decimal.NullDecimal) any {
	if !v.Valid {
		return nil
	}
	return v.Decimal.InexactFloat64()
}

// Record returns a copy of the normalized prospect.
func (c Candidate) Record() *Prospect {
	return c.record.Clone()
}

// Name and Industry form the duplicate lookup key.
func (c Candidate) Name() string     { return c.record.Name }
func (c Candidate) Industry() string { return c.record.Industry }

// Facts exposes the normalized values to policy expressions. Absent values
// are nil, decimals are float64.
func (c Candidate) Facts() map[string]any {
	r := c.record

	plans := make([]any, len(r.HealthPlans))
	for i, hp := range r.HealthPlans {
		plans[i] = map[string]any{
			"healthPlanName":        hp.Name,
			"deductibleIndividual":  decimalFact(hp.DeductibleIndividual),
			"deductibleFamily":      decimalFact(hp.DeductibleFamily),
			"deductibleType":        string(hp.DeductibleType),
			"oopIndividual":         decimalFact(hp.OOPIndividual),
			"oopFamily":             decimalFact(hp.OOPFamily),
			"oopType":               string(hp.OOPType),
			"coinsuranceIndividual": decimalFact(hp.CoinsuranceIndividual),
			"coinsuranceFamily":     decimalFact(hp.CoinsuranceFamily),
			"employeeDistribution":  decimalFact(hp.DistributionValue),
			"hasCopays":             hp.HasCopays,
			"copayType":             textFact(hp.CopayType),
		}
	}

	competing := make([]any, len(r.CompetingAgainst))
	for i, s := range r.CompetingAgainst {
		competing[i] = s
	}

	return map[string]any{
		"prospectName":               r.Name,
		"prospectIndustry":           r.Industry,
		"unionType":                  textFact(r.UnionType),
		"eligibleEmployees":          intFact(r.EligibleEmployees),
		"eligibleMembers":            intFact(r.EligibleMembers),
		"consultant":                 textFact(r.Consultant),
		"channelPartnership":         textFact(r.ChannelPartnership),
		"healthplanPartnership":      textFact(r.HealthplanPartnership),
		"needsCignaSlides":           flagFact(r.NeedsCignaSlides),
		"scenariosCount":             intFact(r.ScenariosCount),
		"rxCoverageType":             textFact(r.RxCoverageType),
		"eggFreezingCoverage":        textFact(r.EggFreezingCoverage),
		"fertilityPepm":              decimalFact(r.FertilityPEPM),
		"fertilityCaseRate":          decimalFact(r.FertilityCaseRate),
		"implementationFee":          decimalFact(r.ImplementationFee),
		"combinedMedicalRxBenefit":   flagFact(r.CombinedMedicalRxBenefit),
		"includeNoBenefitColumn":     flagFact(r.IncludeNoBenefitColumn),
		"dollarMaxColumn":            flagFact(r.DollarMaxColumn),
		"adoptionSurrogacyEstimates": flagFact(r.AdoptionSurrogacyEstimates),
		"adoptionCoverage":           decimalFact(r.AdoptionCoverage),
		"surrogacyCoverage":          decimalFact(r.SurrogacyCoverage),
		"competingAgainst":           competing,
		"notes":                      textFact(r.Notes),
		"rushReason":                 textFact(r.RushReason),
		"distributionType":           string(r.DistributionType),
		"healthPlans":                plans,
	}
}
