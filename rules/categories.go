package rules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/liamcoop/cartrules/evaluator"
	"github.com/liamcoop/cartrules/internal/logger"
)

// CategoryStore holds the display names of a project's categories
type CategoryStore interface {
	// Name returns the category name, or "" when the id is unknown
	Name(ctx context.Context, id string) (string, error)

	// List returns all categories ordered by id
	List() ([]Category, error)

	// Replace swaps the whole category set
	Replace(categories []Category) error
}

// CategoryResolver adapts store to the evaluator. Lookup errors are logged
// and resolve to no name.
func CategoryResolver(store CategoryStore) evaluator.CategoryResolver {
	if store == nil {
		return nil
	}
	return func(ctx context.Context, id string) string {
		name, err := store.Name(ctx, id)
		if err != nil {
			logger.Warn("category lookup failed", "category_id", id, "error", err)
			return ""
		}
		return name
	}
}

// InMemoryCategoryStore implements CategoryStore with a map
type InMemoryCategoryStore struct {
	names map[string]string
	mu    sync.RWMutex
}

// NewInMemoryCategoryStore creates a store holding names, keyed by category id
func NewInMemoryCategoryStore(names map[string]string) *InMemoryCategoryStore {
	s := &InMemoryCategoryStore{names: make(map[string]string, len(names))}
	for id, name := range names {
		s.names[id] = name
	}
	return s
}

func (s *InMemoryCategoryStore) Name(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names[id], nil
}

func (s *InMemoryCategoryStore) List() ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Category, 0, len(s.names))
	for id, name := range s.names {
		out = append(out, Category{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryCategoryStore) Replace(categories []Category) error {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	s.mu.Lock()
	s.names = names
	s.mu.Unlock()
	return nil
}

// SQLCategoryStore implements CategoryStore on the categories table of one project
type SQLCategoryStore struct {
	db         *sqlx.DB
	q          *queries
	projectKey string
}

// NewSQLCategoryStore creates a category store for projectKey
func NewSQLCategoryStore(db *sqlx.DB, projectKey string) (*SQLCategoryStore, error) {
	q, err := newQueries(db)
	if err != nil {
		return nil, err
	}
	return &SQLCategoryStore{db: db, q: q, projectKey: projectKey}, nil
}

func (s *SQLCategoryStore) Name(ctx context.Context, id string) (string, error) {
	var name string
	err := s.q.getContext(ctx, "get-category-name", &name, s.projectKey, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get category %s: %w", id, err)
	}
	return name, nil
}

func (s *SQLCategoryStore) List() ([]Category, error) {
	var out []Category
	if err := s.q.selectAll("list-categories", &out, s.projectKey); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return out, nil
}

// Replace deletes the project's categories and inserts the new set in one transaction
func (s *SQLCategoryStore) Replace(categories []Category) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := s.q.exec(tx, "delete-categories", s.projectKey); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear categories: %w", err)
	}
	for _, c := range categories {
		if _, err := s.q.exec(tx, "insert-category", s.projectKey, c.ID, c.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert category %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit categories: %w", err)
	}
	return nil
}
