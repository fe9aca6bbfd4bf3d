package intake

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a prospect id does not exist.
	ErrNotFound = errors.New("prospect not found")
	// ErrLockUnavailable is returned when the submission lock can't be taken.
	ErrLockUnavailable = errors.New("submission lock unavailable")
)

// ValidationError is a missing or out-of-range field. Its message is shown
// to the submitter verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// DistributionMismatchError means the line items don't partition the
// population.
type DistributionMismatchError struct {
	Type     DistributionType
	Total    decimal.Decimal
	Expected decimal.Decimal
}

func (e *DistributionMismatchError) Error() string {
	if e.Type == DistributionPercentage {
		return fmt.Sprintf("Employee distribution must add up to 100%% (current total: %s%%)", e.Total.StringFixed(2))
	}
	return fmt.Sprintf("Employee distribution must add up to %s employees (current total: %s)", e.Expected, e.Total)
}

// DuplicateDetectedError is advisory: an identical submission already
// exists. Resubmitting with override proceeds anyway.
type DuplicateDetectedError struct {
	MatchID string
}

func (e *DuplicateDetectedError) Error() string {
	return "an identical submission already exists"
}

// RepositoryReadError wraps a failed repository read. It is never the same
// as "no duplicate found".
type RepositoryReadError struct {
	Op  string
	Err error
}

func (e *RepositoryReadError) Error() string {
	return fmt.Sprintf("repository read %s: %v", e.Op, e.Err)
}

func (e *RepositoryReadError) Unwrap() error { return e.Err }

// RepositoryWriteError wraps a failed write where nothing was persisted.
type RepositoryWriteError struct {
	Op  string
	Err error
}

func (e *RepositoryWriteError) Error() string {
	return fmt.Sprintf("repository write %s: %v", e.Op, e.Err)
}

func (e *RepositoryWriteError) Unwrap() error { return e.Err }

// InconsistentWriteError means the prospect row was written but its health
// plans were not. Nothing is rolled back; operators reconcile by hash key.
type InconsistentWriteError struct {
	ProspectID string
	HashKey    string
	Err        error
}

func (e *InconsistentWriteError) Error() string {
	return fmt.Sprintf("prospect %s (hash %s) written without health plans: %v", e.ProspectID, e.HashKey, e.Err)
}

func (e *InconsistentWriteError) Unwrap() error { return e.Err }
