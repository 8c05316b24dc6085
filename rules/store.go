package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrDiscountNotFound is returned when no discount has the requested ID
	ErrDiscountNotFound = errors.New("discount not found")
	// ErrDiscountExists is returned when adding a discount whose ID is taken
	ErrDiscountExists = errors.New("discount already exists")
)

// DiscountStore manages discount persistence and retrieval
type DiscountStore interface {
	// Add a new discount
	Add(d *Discount) error

	// Get a discount by ID
	Get(id string) (*Discount, error)

	// List all discounts, active or not
	List() ([]*Discount, error)

	// ListActive lists active discounts
	ListActive() ([]*Discount, error)

	// Update an existing discount
	Update(d *Discount) error

	// Delete a discount
	Delete(id string) error
}

// InMemoryDiscountStore implements DiscountStore using an in-memory map.
// Safe for concurrent use.
type InMemoryDiscountStore struct {
	discounts map[string]*Discount
	mu        sync.RWMutex
}

// NewInMemoryDiscountStore creates an empty in-memory discount store
func NewInMemoryDiscountStore() *InMemoryDiscountStore {
	return &InMemoryDiscountStore{
		discounts: make(map[string]*Discount),
	}
}

// Add stores d and stamps CreatedAt and UpdatedAt
func (s *InMemoryDiscountStore) Add(d *Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.discounts[d.ID]; exists {
		return fmt.Errorf("discount %s: %w", d.ID, ErrDiscountExists)
	}

	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	s.discounts[d.ID] = d
	return nil
}

// Get retrieves a discount by ID
func (s *InMemoryDiscountStore) Get(id string) (*Discount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.discounts[id]
	if !exists {
		return nil, fmt.Errorf("discount %s: %w", id, ErrDiscountNotFound)
	}
	return d, nil
}

// List returns every discount ordered by creation time
func (s *InMemoryDiscountStore) List() ([]*Discount, error) {
	return s.list(false), nil
}

// ListActive returns the active discounts ordered by creation time
func (s *InMemoryDiscountStore) ListActive() ([]*Discount, error) {
	return s.list(true), nil
}

func (s *InMemoryDiscountStore) list(activeOnly bool) []*Discount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Discount, 0, len(s.discounts))
	for _, d := range s.discounts {
		if activeOnly && !d.Active {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Update replaces an existing discount, keeping its CreatedAt
func (s *InMemoryDiscountStore) Update(d *Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.discounts[d.ID]
	if !exists {
		return fmt.Errorf("discount %s: %w", d.ID, ErrDiscountNotFound)
	}

	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now()
	s.discounts[d.ID] = d
	return nil
}

// Delete removes a discount
func (s *InMemoryDiscountStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.discounts[id]; !exists {
		return fmt.Errorf("discount %s: %w", id, ErrDiscountNotFound)
	}

	delete(s.discounts, id)
	return nil
}
