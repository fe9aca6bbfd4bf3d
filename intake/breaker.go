package intake

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/liamcoop/prospects/internal/logger"
)

// ErrStorageUnavailable is the cause attached to repository errors while the
// breaker is rejecting calls.
var ErrStorageUnavailable = errors.New("storage unavailable (circuit open)")

// BreakerConfig configures BreakerRepository.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a trial request.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of trial requests allowed while half-open.
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns settings tuned for the prospect database.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// BreakerRepository fails fast once the wrapped Repository keeps erroring.
// Rejected reads surface as *RepositoryReadError and rejected writes as
// *RepositoryWriteError, both wrapping ErrStorageUnavailable.
type BreakerRepository struct {
	repo Repository
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerRepository(repo Repository, config BreakerConfig) *BreakerRepository {
	if config.ConsecutiveFailures == 0 {
		config.ConsecutiveFailures = 1
	}
	settings := gobreaker.Settings{
		Name:        "prospect-repository",
		MaxRequests: config.HalfOpenRequests,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Error("circuit breaker opened", "breaker", name, "from", from.String())
				return
			}
			logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// missing rows and abandoned requests say nothing about storage health
			return err == nil || errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
	}
	return &BreakerRepository{repo: repo, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state, e.g. "closed" or "open".
func (r *BreakerRepository) State() string {
	return r.cb.State().String()
}

func (r *BreakerRepository) execute(op string, write bool, fn func() (any, error)) (any, error) {
	result, err := r.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logger.Warn("repository call rejected by circuit breaker", "op", op, "state", r.State())
		if write {
			return nil, &RepositoryWriteError{Op: op, Err: ErrStorageUnavailable}
		}
		return nil, &RepositoryReadError{Op: op, Err: ErrStorageUnavailable}
	}
	return result, err
}

func (r *BreakerRepository) FindByNameAndIndustry(ctx context.Context, name, industry string) ([]*Prospect, error) {
	result, err := r.execute("find_by_name_and_industry", false, func() (any, error) {
		return r.repo.FindByNameAndIndustry(ctx, name, industry)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*Prospect), nil
}

func (r *BreakerRepository) Create(ctx context.Context, p *Prospect) (*Prospect, error) {
	result, err := r.execute("create", true, func() (any, error) {
		return r.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Prospect), nil
}

func (r *BreakerRepository) Get(ctx context.Context, id string) (*Prospect, error) {
	result, err := r.execute("get", false, func() (any, error) {
		return r.repo.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Prospect), nil
}

func (r *BreakerRepository) List(ctx context.Context, filter ListFilter) ([]*Prospect, error) {
	result, err := r.execute("list", false, func() (any, error) {
		return r.repo.List(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*Prospect), nil
}

func (r *BreakerRepository) Delete(ctx context.Context, id string) error {
	_, err := r.execute("delete", true, func() (any, error) {
		return nil, r.repo.Delete(ctx, id)
	})
	return err
}
