package rules

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLDiscountStore implements DiscountStore on a Postgres or SQLite database,
// scoped to one commercetools project
type SQLDiscountStore struct {
	db         *sqlx.DB
	q          *queries
	projectKey string
}

// NewSQLDiscountStore creates a discount store for projectKey
func NewSQLDiscountStore(db *sqlx.DB, projectKey string) (*SQLDiscountStore, error) {
	q, err := newQueries(db)
	if err != nil {
		return nil, err
	}
	return &SQLDiscountStore{db: db, q: q, projectKey: projectKey}, nil
}

// Add inserts a new discount
func (s *SQLDiscountStore) Add(d *Discount) error {
	var count int
	if err := s.q.get("discount-exists", &count, s.projectKey, d.ID); err != nil {
		return fmt.Errorf("failed to check discount existence: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("discount %s: %w", d.ID, ErrDiscountExists)
	}

	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.q.exec(s.db, "insert-discount",
		d.ID, s.projectKey, d.Key, d.Name, d.Predicate, d.SortOrder,
		d.RequiresDiscountCode, d.Active, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert discount: %w", err)
	}
	return nil
}

// Get retrieves a discount by ID
func (s *SQLDiscountStore) Get(id string) (*Discount, error) {
	var d Discount
	err := s.q.get("get-discount", &d, s.projectKey, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("discount %s: %w", id, ErrDiscountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get discount: %w", err)
	}
	return &d, nil
}

// List returns every discount of the project ordered by creation time
func (s *SQLDiscountStore) List() ([]*Discount, error) {
	var out []*Discount
	if err := s.q.selectAll("list-discounts", &out, s.projectKey); err != nil {
		return nil, fmt.Errorf("failed to list discounts: %w", err)
	}
	return out, nil
}

// ListActive returns the active discounts of the project ordered by creation time
func (s *SQLDiscountStore) ListActive() ([]*Discount, error) {
	var out []*Discount
	if err := s.q.selectAll("list-active-discounts", &out, s.projectKey, true); err != nil {
		return nil, fmt.Errorf("failed to list active discounts: %w", err)
	}
	return out, nil
}

// Update modifies an existing discount
func (s *SQLDiscountStore) Update(d *Discount) error {
	existing, err := s.Get(d.ID)
	if err != nil {
		return err
	}

	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now().UTC()

	result, err := s.q.exec(s.db, "update-discount",
		d.Key, d.Name, d.Predicate, d.SortOrder, d.RequiresDiscountCode, d.Active,
		d.UpdatedAt, s.projectKey, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update discount: %w", err)
	}
	return requireRow(result, d.ID)
}

// Delete removes a discount
func (s *SQLDiscountStore) Delete(id string) error {
	result, err := s.q.exec(s.db, "delete-discount", s.projectKey, id)
	if err != nil {
		return fmt.Errorf("failed to delete discount: %w", err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("discount %s: %w", id, ErrDiscountNotFound)
	}
	return nil
}
