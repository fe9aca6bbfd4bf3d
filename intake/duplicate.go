package intake

import (
	"context"
	"errors"

	"github.com/liamcoop/prospects/internal/logger"
)

// DuplicateDetector looks for a stored prospect identical to a candidate.
// It only reports; callers decide whether to proceed.
type DuplicateDetector struct {
	repo Repository
}

func NewDuplicateDetector(repo Repository) *DuplicateDetector {
	return &DuplicateDetector{repo: repo}
}

// Find returns the first stored prospect equivalent to candidate, or nil.
// Repository failures are returned as *RepositoryReadError and never as a
// nil match.
func (d *DuplicateDetector) Find(ctx context.Context, candidate *Prospect) (*Prospect, error) {
	stored, err := d.repo.FindByNameAndIndustry(ctx, candidate.Name, candidate.Industry)
	if err != nil {
		var readErr *RepositoryReadError
		if errors.As(err, &readErr) {
			return nil, err
		}
		return nil, &RepositoryReadError{Op: "find_by_name_and_industry", Err: err}
	}

	for _, s := range stored {
		if s.DistributionType != candidate.DistributionType {
			logger.Debug("duplicate check skipped stored prospect", "id", s.ID, "reason", "distribution_type")
			continue
		}
		if field := Mismatch(candidate, s); field != "" {
			logger.Debug("duplicate check mismatch", "id", s.ID, "field", field)
			continue
		}
		return s, nil
	}

	return nil, nil
}

// IsDuplicate reports whether an equivalent prospect is already stored.
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, candidate *Prospect) (bool, error) {
	match, err := d.Find(ctx, candidate)
	if err != nil {
		return false, err
	}
	return match != nil, nil
}
