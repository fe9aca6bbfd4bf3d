package intake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const prospectColumns = `id, hash_key, created_at, prospect_name, prospect_industry,
	union_type, eligible_employees, eligible_members, consultant,
	channel_partnership, healthplan_partnership, needs_cigna_slides,
	scenarios_count, smart_cycles_option_1, smart_cycles_option_2,
	rx_coverage_type, egg_freezing_coverage, fertility_pepm,
	fertility_case_rate, implementation_fee, current_fertility_benefit,
	fertility_administrator, combined_medical_rx_benefit,
	current_fertility_medical_limit, medical_ltm_type,
	current_fertility_rx_limit, rx_ltm_type, medical_benefit_details,
	rx_benefit_details, current_elective_egg_freezing, live_births_12mo,
	current_benefit_pepm, current_benefit_case_fee, include_no_benefit_column,
	dollar_max_column, competing_against, adoption_surrogacy_estimates,
	adoption_coverage, adoption_frequency, surrogacy_coverage,
	surrogacy_frequency, female_employees_40_60, live_births_12mo_expanded,
	subscribers_dependents_under_12, notes, due_date, rush_reason,
	employee_distribution_type`

const healthPlanColumns = `id, prospect_id, hash_key, position, health_plan_name,
	deductible_individual, deductible_family, deductible_type,
	oop_individual, oop_family, oop_type, coinsurance_individual,
	coinsurance_family, employee_distribution, employee_distribution_type,
	has_copays, copay_type`

// prospectFields returns pointers in prospectColumns order. database/sql
// dereferences them on insert and fills them on scan.
func prospectFields(p *Prospect) []any {
	return []any{
		&p.ID, &p.HashKey, &p.CreatedAt, &p.Name, &p.Industry,
		&p.UnionType, &p.EligibleEmployees, &p.EligibleMembers, &p.Consultant,
		&p.ChannelPartnership, &p.HealthplanPartnership, &p.NeedsCignaSlides,
		&p.ScenariosCount, &p.SmartCyclesOption1, &p.SmartCyclesOption2,
		&p.RxCoverageType, &p.EggFreezingCoverage, &p.FertilityPEPM,
		&p.FertilityCaseRate, &p.ImplementationFee, &p.CurrentFertilityBenefit,
		&p.FertilityAdministrator, &p.CombinedMedicalRxBenefit,
		&p.CurrentFertilityMedicalLimit, &p.MedicalLTMType,
		&p.CurrentFertilityRxLimit, &p.RxLTMType, &p.MedicalBenefitDetails,
		&p.RxBenefitDetails, &p.CurrentElectiveEggFreezing, &p.LiveBirths12mo,
		&p.CurrentBenefitPEPM, &p.CurrentBenefitCaseFee, &p.IncludeNoBenefitColumn,
		&p.DollarMaxColumn, pq.Array(&p.CompetingAgainst), &p.AdoptionSurrogacyEstimates,
		&p.AdoptionCoverage, &p.AdoptionFrequency, &p.SurrogacyCoverage,
		&p.SurrogacyFrequency, &p.FemaleEmployees4060, &p.LiveBirths12moExpanded,
		&p.SubscribersDependentsUnder12, &p.Notes, &p.DueDate, &p.RushReason,
		&p.DistributionType,
	}
}

func healthPlanFields(hp *HealthPlan) []any {
	return []any{
		&hp.ID, &hp.ProspectID, &hp.HashKey, &hp.Position, &hp.Name,
		&hp.DeductibleIndividual, &hp.DeductibleFamily, &hp.DeductibleType,
		&hp.OOPIndividual, &hp.OOPFamily, &hp.OOPType, &hp.CoinsuranceIndividual,
		&hp.CoinsuranceFamily, &hp.DistributionValue, &hp.DistributionType,
		&hp.HasCopays, &hp.CopayType,
	}
}

func placeholders(start, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ps, ", ")
}

var (
	insertProspectSQL = fmt.Sprintf(`INSERT INTO prospects (%s) VALUES (%s) RETURNING created_at`,
		prospectColumns, placeholders(1, len(prospectFields(&Prospect{}))))
	insertHealthPlanSQL = fmt.Sprintf(`INSERT INTO health_plans (%s) VALUES (%s)`,
		healthPlanColumns, placeholders(1, len(healthPlanFields(&HealthPlan{}))))
)

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresRepository creates a repository over an open database handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		now: time.Now,
	}
}

// Create inserts the prospect row on its own, then every health plan in a
// single transaction. If the plans fail after the prospect was written the
// error is *InconsistentWriteError and the prospect row stays.
func (s *PostgresRepository) Create(ctx context.Context, p *Prospect) (*Prospect, error) {
	rec := p.Clone()
	assignIdentity(rec, s.now().UTC())

	if err := s.db.QueryRowContext(ctx, insertProspectSQL, prospectFields(rec)...).Scan(&rec.CreatedAt); err != nil {
		return nil, &RepositoryWriteError{Op: "insert_prospect", Err: err}
	}

	if err := s.insertHealthPlans(ctx, rec.HealthPlans); err != nil {
		return nil, &InconsistentWriteError{ProspectID: rec.ID, HashKey: rec.HashKey, Err: err}
	}

	return rec, nil
}

func (s *PostgresRepository) insertHealthPlans(ctx context.Context, plans []HealthPlan) error {
	if len(plans) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertHealthPlanSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare health plan insert: %w", err)
	}
	defer stmt.Close()

	for i := range plans {
		if _, err := stmt.ExecContext(ctx, healthPlanFields(&plans[i])...); err != nil {
			return fmt.Errorf("failed to insert health plan %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit health plans: %w", err)
	}
	return nil
}

func (s *PostgresRepository) FindByNameAndIndustry(ctx context.Context, name, industry string) ([]*Prospect, error) {
	return s.query(ctx, "find_by_name_and_industry", `
		SELECT `+prospectColumns+`
		FROM prospects
		WHERE prospect_name = $1 AND prospect_industry = $2
		ORDER BY created_at DESC
	`, name, industry)
}

func (s *PostgresRepository) Get(ctx context.Context, id string) (*Prospect, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	found, err := s.query(ctx, "get", `
		SELECT `+prospectColumns+`
		FROM prospects
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

func (s *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Prospect, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.Name != "" {
		add("prospect_name = $%d", filter.Name)
	}
	if filter.Industry != "" {
		add("prospect_industry = $%d", filter.Industry)
	}
	if !filter.CreatedFrom.IsZero() {
		add("created_at >= $%d", filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		add("created_at <= $%d", filter.CreatedTo)
	}

	query := `SELECT ` + prospectColumns + ` FROM prospects`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	return s.query(ctx, "list", query, args...)
}

func (s *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM prospects WHERE id = $1`, id)
	if err != nil {
		return &RepositoryWriteError{Op: "delete", Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &RepositoryWriteError{Op: "delete", Err: fmt.Errorf("failed to get rows affected: %w", err)}
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// query loads prospects and attaches their health plans in position order.
func (s *PostgresRepository) query(ctx context.Context, op, query string, args ...any) ([]*Prospect, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &RepositoryReadError{Op: op, Err: err}
	}
	defer rows.Close()

	var (
		prospects []*Prospect
		ids       []string
		byID      = make(map[string]*Prospect)
	)
	for rows.Next() {
		p := &Prospect{}
		if err := rows.Scan(prospectFields(p)...); err != nil {
			return nil, &RepositoryReadError{Op: op, Err: fmt.Errorf("failed to scan prospect: %w", err)}
		}
		if p.DueDate.Valid {
			p.DueDate.Time = DateOf(p.DueDate.Time)
		}
		prospects = append(prospects, p)
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, &RepositoryReadError{Op: op, Err: fmt.Errorf("error iterating prospects: %w", err)}
	}

	if len(ids) == 0 {
		return prospects, nil
	}

	planRows, err := s.db.QueryContext(ctx, `
		SELECT `+healthPlanColumns+`
		FROM health_plans
		WHERE prospect_id = ANY($1::uuid[])
		ORDER BY prospect_id, position
	`, pq.Array(ids))
	if err != nil {
		return nil, &RepositoryReadError{Op: op, Err: err}
	}
	defer planRows.Close()

	for planRows.Next() {
		var hp HealthPlan
		if err := planRows.Scan(healthPlanFields(&hp)...); err != nil {
			return nil, &RepositoryReadError{Op: op, Err: fmt.Errorf("failed to scan health plan: %w", err)}
		}
		if p, ok := byID[hp.ProspectID]; ok {
			p.HealthPlans = append(p.HealthPlans, hp)
		}
	}
	if err := planRows.Err(); err != nil {
		return nil, &RepositoryReadError{Op: op, Err: fmt.Errorf("error iterating health plans: %w", err)}
	}

	return prospects, nil
}
