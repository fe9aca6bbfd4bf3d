package main

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamcoop/prospects/intake"
)

// API response models

// HealthPlanResponse is one stored line item.
type HealthPlanResponse struct {
	ID                    string           `json:"id"`
	HashKey               string           `json:"hashKey"`
	Position              int              `json:"position"`
	HealthPlanName        string           `json:"healthPlanName"`
	DeductibleIndividual  *decimal.Decimal `json:"deductibleIndividual"`
	DeductibleFamily      *decimal.Decimal `json:"deductibleFamily"`
	DeductibleType        string           `json:"deductibleType"`
	OOPIndividual         *decimal.Decimal `json:"oopIndividual"`
	OOPFamily             *decimal.Decimal `json:"oopFamily"`
	OOPType               string           `json:"oopType"`
	CoinsuranceIndividual *decimal.Decimal `json:"coinsuranceIndividual"`
	CoinsuranceFamily     *decimal.Decimal `json:"coinsuranceFamily"`
	EmployeeDistribution  *decimal.Decimal `json:"employeeDistribution"`
	DistributionType      string           `json:"distributionType"`
	HasCopays             bool             `json:"hasCopays"`
	CopayType             *string          `json:"copayType"`
}

// ProspectResponse is a stored prospect plus its derived display values.
type ProspectResponse struct {
	ID        string    `json:"id"`
	HashKey   string    `json:"hashKey"`
	CreatedAt time.Time `json:"createdAt"`

	ProspectName                 string           `json:"prospectName"`
	ProspectIndustry             string           `json:"prospectIndustry"`
	UnionType                    *string          `json:"unionType"`
	EligibleEmployees            *int64           `json:"eligibleEmployees"`
	EligibleMembers              *int64           `json:"eligibleMembers"`
	Consultant                   *string          `json:"consultant"`
	ChannelPartnership           *string          `json:"channelPartnership"`
	HealthplanPartnership        *string          `json:"healthplanPartnership"`
	NeedsCignaSlides             *bool            `json:"needsCignaSlides"`
	ScenariosCount               *int64           `json:"scenariosCount"`
	SmartCyclesOption1           *string          `json:"smartCyclesOption1"`
	SmartCyclesOption2           *string          `json:"smartCyclesOption2"`
	RxCoverageType               *string          `json:"rxCoverageType"`
	EggFreezingCoverage          *string          `json:"eggFreezingCoverage"`
	FertilityPEPM                *decimal.Decimal `json:"fertilityPepm"`
	FertilityCaseRate            *decimal.Decimal `json:"fertilityCaseRate"`
	ImplementationFee            *decimal.Decimal `json:"implementationFee"`
	CurrentFertilityBenefit      *string          `json:"currentFertilityBenefit"`
	FertilityAdministrator       *string          `json:"fertilityAdministrator"`
	CombinedMedicalRxBenefit     *bool            `json:"combinedMedicalRxBenefit"`
	CurrentFertilityMedicalLimit *decimal.Decimal `json:"currentFertilityMedicalLimit"`
	MedicalLTMType               *string          `json:"medicalLtmType"`
	CurrentFertilityRxLimit      *decimal.Decimal `json:"currentFertilityRxLimit"`
	RxLTMType                    *string          `json:"rxLtmType"`
	MedicalBenefitDetails        *string          `json:"medicalBenefitDetails"`
	RxBenefitDetails             *string          `json:"rxBenefitDetails"`
	CurrentElectiveEggFreezing   *string          `json:"currentElectiveEggFreezing"`
	LiveBirths12mo               *int64           `json:"liveBirths12mo"`
	CurrentBenefitPEPM           *decimal.Decimal `json:"currentBenefitPepm"`
	CurrentBenefitCaseFee        *decimal.Decimal `json:"currentBenefitCaseFee"`
	IncludeNoBenefitColumn       *bool            `json:"includeNoBenefitColumn"`
	DollarMaxColumn              *bool            `json:"dollarMaxColumn"`
	CompetingAgainst             []string         `json:"competingAgainst"`
	AdoptionSurrogacyEstimates   *bool            `json:"adoptionSurrogacyEstimates"`
	AdoptionCoverage             *decimal.Decimal `json:"adoptionCoverage"`
	AdoptionFrequency            *string          `json:"adoptionFrequency"`
	SurrogacyCoverage            *decimal.Decimal `json:"surrogacyCoverage"`
	SurrogacyFrequency           *string          `json:"surrogacyFrequency"`
	FemaleEmployees4060          *int64           `json:"femaleEmployees4060"`
	LiveBirths12moExpanded       *int64           `json:"liveBirths12moExpanded"`
	SubscribersDependentsUnder12 *int64           `json:"subscribersDependentsUnder12"`
	Notes                        *string          `json:"notes"`
	DueDate                      *string          `json:"dueDate"`
	RushReason                   *string          `json:"rushReason"`
	DistributionType             string           `json:"distributionType"`

	HealthPlans []HealthPlanResponse `json:"healthPlans"`

	Rush             bool             `json:"rush"`
	BlendedOOPFamily *decimal.Decimal `json:"blendedOopFamily"`
}

// ProspectsListResponse is the response for listing prospects.
type ProspectsListResponse struct {
	Prospects []ProspectResponse `json:"prospects"`
}

// DuplicateCheckResponse reports whether an identical prospect is stored.
type DuplicateCheckResponse struct {
	Duplicate bool   `json:"duplicate"`
	MatchID   string `json:"matchId,omitempty"`
}

// DueDateResponse is the default due date for a submission made today.
type DueDateResponse struct {
	DueDate string `json:"dueDate"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	MatchID string `json:"matchId,omitempty"`
	Details string `json:"details,omitempty"`
}

const dateLayout = "2006-01-02"

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}

func nullDecimal(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	return &v.Decimal
}

func nullDate(v sql.NullTime) *string {
	if !v.Valid {
		return nil
	}
	s := v.Time.Format(dateLayout)
	return &s
}

func newHealthPlanResponse(hp intake.HealthPlan) HealthPlanResponse {
	return HealthPlanResponse{
		ID:                    hp.ID,
		HashKey:               hp.HashKey,
		Position:              hp.Position,
		HealthPlanName:        hp.Name,
		DeductibleIndividual:  nullDecimal(hp.DeductibleIndividual),
		DeductibleFamily:      nullDecimal(hp.DeductibleFamily),
		DeductibleType:        string(hp.DeductibleType),
		OOPIndividual:         nullDecimal(hp.OOPIndividual),
		OOPFamily:             nullDecimal(hp.OOPFamily),
		OOPType:               string(hp.OOPType),
		CoinsuranceIndividual: nullDecimal(hp.CoinsuranceIndividual),
		CoinsuranceFamily:     nullDecimal(hp.CoinsuranceFamily),
		EmployeeDistribution:  nullDecimal(hp.DistributionValue),
		DistributionType:      string(hp.DistributionType),
		HasCopays:             hp.HasCopays,
		CopayType:             nullString(hp.CopayType),
	}
}

func newProspectResponse(s intake.Summary) ProspectResponse {
	p := s.Record

	plans := make([]HealthPlanResponse, 0, len(p.HealthPlans))
	for _, hp := range p.HealthPlans {
		plans = append(plans, newHealthPlanResponse(hp))
	}

	competing := p.CompetingAgainst
	if competing == nil {
		competing = []string{}
	}

	return ProspectResponse{
		ID:                           p.ID,
		HashKey:                      p.HashKey,
		CreatedAt:                    p.CreatedAt,
		ProspectName:                 p.Name,
		ProspectIndustry:             p.Industry,
		UnionType:                    nullString(p.UnionType),
		EligibleEmployees:            nullInt(p.EligibleEmployees),
		EligibleMembers:              nullInt(p.EligibleMembers),
		Consultant:                   nullString(p.Consultant),
		ChannelPartnership:           nullString(p.ChannelPartnership),
		HealthplanPartnership:        nullString(p.HealthplanPartnership),
		NeedsCignaSlides:             nullBool(p.NeedsCignaSlides),
		ScenariosCount:               nullInt(p.ScenariosCount),
		SmartCyclesOption1:           nullString(p.SmartCyclesOption1),
		SmartCyclesOption2:           nullString(p.SmartCyclesOption2),
		RxCoverageType:               nullString(p.RxCoverageType),
		EggFreezingCoverage:          nullString(p.EggFreezingCoverage),
		FertilityPEPM:                nullDecimal(p.FertilityPEPM),
		FertilityCaseRate:            nullDecimal(p.FertilityCaseRate),
		ImplementationFee:            nullDecimal(p.ImplementationFee),
		CurrentFertilityBenefit:      nullString(p.CurrentFertilityBenefit),
		FertilityAdministrator:       nullString(p.FertilityAdministrator),
		CombinedMedicalRxBenefit:     nullBool(p.CombinedMedicalRxBenefit),
		CurrentFertilityMedicalLimit: nullDecimal(p.CurrentFertilityMedicalLimit),
		MedicalLTMType:               nullString(p.MedicalLTMType),
		CurrentFertilityRxLimit:      nullDecimal(p.CurrentFertilityRxLimit),
		RxLTMType:                    nullString(p.RxLTMType),
		MedicalBenefitDetails:        nullString(p.MedicalBenefitDetails),
		RxBenefitDetails:             nullString(p.RxBenefitDetails),
		CurrentElectiveEggFreezing:   nullString(p.CurrentElectiveEggFreezing),
		LiveBirths12mo:               nullInt(p.LiveBirths12mo),
		CurrentBenefitPEPM:           nullDecimal(p.CurrentBenefitPEPM),
		CurrentBenefitCaseFee:        nullDecimal(p.CurrentBenefitCaseFee),
		IncludeNoBenefitColumn:       nullBool(p.IncludeNoBenefitColumn),
		DollarMaxColumn:              nullBool(p.DollarMaxColumn),
		CompetingAgainst:             competing,
		AdoptionSurrogacyEstimates:   nullBool(p.AdoptionSurrogacyEstimates),
		AdoptionCoverage:             nullDecimal(p.AdoptionCoverage),
		AdoptionFrequency:            nullString(p.AdoptionFrequency),
		SurrogacyCoverage:            nullDecimal(p.SurrogacyCoverage),
		SurrogacyFrequency:           nullString(p.SurrogacyFrequency),
		FemaleEmployees4060:          nullInt(p.FemaleEmployees4060),
		LiveBirths12moExpanded:       nullInt(p.LiveBirths12moExpanded),
		SubscribersDependentsUnder12: nullInt(p.SubscribersDependentsUnder12),
		Notes:                        nullString(p.Notes),
		DueDate:                      nullDate(p.DueDate),
		RushReason:                   nullString(p.RushReason),
		DistributionType:             string(p.DistributionType),
		HealthPlans:                  plans,
		Rush:                         s.Rush,
		BlendedOOPFamily:             nullDecimal(s.BlendedOOPFamily),
	}
}
