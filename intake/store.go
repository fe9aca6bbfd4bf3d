package intake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows Repository.List. Zero values don't filter.
type ListFilter struct {
	Name        string
	Industry    string
	CreatedFrom time.Time
	CreatedTo   time.Time
}

func (f ListFilter) matches(p *Prospect) bool {
	if f.Name != "" && p.Name != f.Name {
		return false
	}
	if f.Industry != "" && p.Industry != f.Industry {
		return false
	}
	if !f.CreatedFrom.IsZero() && p.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && p.CreatedAt.After(f.CreatedTo) {
		return false
	}
	return true
}

// Repository persists prospects together with their health plans.
type Repository interface {
	// FindByNameAndIndustry returns every stored prospect with exactly this
	// name and industry, health plans attached in position order.
	FindByNameAndIndustry(ctx context.Context, name, industry string) ([]*Prospect, error)

	// Create assigns ID, HashKey and CreatedAt and stores the prospect and
	// all of its health plans.
	Create(ctx context.Context, p *Prospect) (*Prospect, error)

	// Get returns one prospect or ErrNotFound.
	Get(ctx context.Context, id string) (*Prospect, error)

	// List returns prospects newest first.
	List(ctx context.Context, filter ListFilter) ([]*Prospect, error)

	// Delete removes a prospect and its health plans or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// assignIdentity stamps a new record and its plans before the first write.
func assignIdentity(p *Prospect, now time.Time) {
	p.ID = uuid.NewString()
	p.HashKey = uuid.NewString()
	p.CreatedAt = now
	for i := range p.HealthPlans {
		p.HealthPlans[i].ID = uuid.NewString()
		p.HealthPlans[i].ProspectID = p.ID
		p.HealthPlans[i].HashKey = p.HashKey
		p.HealthPlans[i].Position = i
	}
}

// InMemoryRepository implements Repository with a map. Thread-safe.
type InMemoryRepository struct {
	prospects map[string]*Prospect
	now       func() time.Time
	mu        sync.RWMutex
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		prospects: make(map[string]*Prospect),
		now:       time.Now,
	}
}

func (s *InMemoryRepository) FindByNameAndIndustry(ctx context.Context, name, industry string) ([]*Prospect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.List(ctx, ListFilter{Name: name, Industry: industry})
}

func (s *InMemoryRepository) Create(ctx context.Context, p *Prospect) (*Prospect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := p.Clone()
	assignIdentity(rec, s.now().UTC())

	s.mu.Lock()
	s.prospects[rec.ID] = rec
	s.mu.Unlock()

	return rec.Clone(), nil
}

func (s *InMemoryRepository) Get(ctx context.Context, id string) (*Prospect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.prospects[id]
	if !exists {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Prospect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []*Prospect
	for _, rec := range s.prospects {
		if filter.matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.prospects[id]; !exists {
		return ErrNotFound
	}
	delete(s.prospects, id)
	return nil
}
