package intake

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamcoop/prospects/internal/logger"
)

// Summary is a stored prospect with its display-only derived values.
type Summary struct {
	Record           *Prospect
	Rush             bool
	BlendedOOPFamily decimal.NullDecimal
}

// Service runs submissions through normalization, validation, duplicate
// detection and persistence.
type Service struct {
	repo      Repository
	validator *Validator
	detector  *DuplicateDetector
	locker    Locker
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLocker serializes the duplicate check and write per name and
// industry. The default NoopLocker doesn't.
func WithLocker(l Locker) ServiceOption {
	return func(s *Service) { s.locker = l }
}

func NewService(repo Repository, validator *Validator, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		validator: validator,
		detector:  NewDuplicateDetector(repo),
		locker:    NoopLocker{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and stores a payload. Unless override is set, an
// identical stored prospect returns *DuplicateDetectedError and nothing is
// written.
func (s *Service) Submit(ctx context.Context, payload SubmissionPayload, override bool) (*Prospect, error) {
	candidate, err := NewCandidate(payload)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(candidate); err != nil {
		return nil, err
	}

	var stored *Prospect
	err = s.locker.WithLock(ctx, LockKey(candidate.Name(), candidate.Industry()), func(ctx context.Context) error {
		record := candidate.Record()

		if !override {
			match, err := s.detector.Find(ctx, record)
			if err != nil {
				return err
			}
			if match != nil {
				logger.Info("duplicate submission detected", "prospect", record.Name, "match_id", match.ID)
				return &DuplicateDetectedError{MatchID: match.ID}
			}
		}

		created, err := s.repo.Create(ctx, record)
		if err != nil {
			return err
		}
		stored = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("prospect submitted", "id", stored.ID, "hash_key", stored.HashKey, "override", override, "health_plans", len(stored.HealthPlans))
	return stored, nil
}

// CheckDuplicate normalizes payload and returns the stored prospect it
// duplicates, or nil. The payload is not validated.
func (s *Service) CheckDuplicate(ctx context.Context, payload SubmissionPayload) (*Prospect, error) {
	candidate, err := NewCandidate(payload)
	if err != nil {
		return nil, err
	}
	return s.detector.Find(ctx, candidate.Record())
}

func (s *Service) Get(ctx context.Context, id string) (*Prospect, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Prospect, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("prospect deleted", "id", id)
	return nil
}

// Summarize derives the rush flag and blended family OOP of a stored
// prospect. Creation time is read in the business location.
func (s *Service) Summarize(p *Prospect) Summary {
	var due *time.Time
	if p.DueDate.Valid {
		d := p.DueDate.Time
		due = &d
	}
	return Summary{
		Record:           p,
		Rush:             IsRush(p.CreatedAt.In(s.validator.location), due),
		BlendedOOPFamily: BlendedOOPFamily(p.HealthPlans),
	}
}

// DefaultDueDate is the due date proposed for a submission made now.
func (s *Service) DefaultDueDate() time.Time {
	return s.validator.DefaultDueDate()
}
