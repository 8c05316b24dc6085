package projectengine

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/liamcoop/cartrules/internal/logger"
	"github.com/liamcoop/cartrules/rules"
)

var (
	// ErrProjectNotFound is returned for a project key the manager does not know
	ErrProjectNotFound = errors.New("project not found")
	// ErrProjectExists is returned when creating a project whose key is taken
	ErrProjectExists = errors.New("project already exists")
)

// Project is a commercetools project whose cart discounts are previewed
type Project struct {
	Key       string    `json:"key" db:"project_key"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ProjectEngine wraps a rules.Engine with its project metadata
type ProjectEngine struct {
	Project Project
	Engine  *rules.Engine
}

// Manager manages one discount engine per project.
// With a nil database every project lives in memory.
type Manager struct {
	engines map[string]*ProjectEngine
	db      *sqlx.DB
	opts    []rules.Option
	mu      sync.RWMutex
}

// NewManager creates a manager; opts are applied to every engine it builds
func NewManager(db *sqlx.DB, opts ...rules.Option) *Manager {
	return &Manager{
		engines: make(map[string]*ProjectEngine),
		db:      db,
		opts:    opts,
	}
}

// LoadAllProjects loads every project from the database and builds its engine
func (m *Manager) LoadAllProjects() error {
	if m.db == nil {
		return nil
	}

	var projects []Project
	err := m.db.Select(&projects, `SELECT project_key, name, created_at, updated_at FROM projects ORDER BY project_key`)
	if err != nil {
		return fmt.Errorf("failed to fetch projects: %w", err)
	}

	for _, p := range projects {
		pe, err := m.newProjectEngine(p, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize project %s: %w", p.Key, err)
		}

		m.mu.Lock()
		m.engines[p.Key] = pe
		m.mu.Unlock()
	}

	logger.Info("projects loaded", "count", len(projects))
	return nil
}

// CreateProject validates key, stores the project and builds an engine for it
func (m *Manager) CreateProject(key, name string) (*Project, error) {
	if err := ValidateProjectKey(key); err != nil {
		return nil, err
	}
	if name == "" {
		name = key
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.engines[key]; exists {
		return nil, fmt.Errorf("project %s: %w", key, ErrProjectExists)
	}

	now := time.Now().UTC()
	p := Project{Key: key, Name: name, CreatedAt: now, UpdatedAt: now}

	if m.db != nil {
		_, err := m.db.Exec(m.db.Rebind(`
			INSERT INTO projects (project_key, name, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`), p.Key, p.Name, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create project %s: %w", key, err)
		}
	}

	pe, err := m.newProjectEngine(p, nil)
	if err != nil {
		return nil, err
	}
	m.engines[key] = pe

	return &p, nil
}

// newProjectEngine builds the stores and engine of one project.
// categories seeds an in-memory category store and is ignored with a database.
func (m *Manager) newProjectEngine(p Project, categories map[string]string) (*ProjectEngine, error) {
	var (
		discounts rules.DiscountStore
		names     rules.CategoryStore
		err       error
	)

	if m.db != nil {
		discounts, err = rules.NewSQLDiscountStore(m.db, p.Key)
		if err != nil {
			return nil, err
		}
		names, err = rules.NewSQLCategoryStore(m.db, p.Key)
		if err != nil {
			return nil, err
		}
	} else {
		// an engine swap keeps the discounts of the in-memory project
		if existing, ok := m.engines[p.Key]; ok {
			discounts = existing.Engine.Store()
		} else {
			discounts = rules.NewInMemoryDiscountStore()
		}
		names = rules.NewInMemoryCategoryStore(categories)
	}

	opts := append([]rules.Option{rules.WithProjectKey(p.Key)}, m.opts...)
	if existing, ok := m.engines[p.Key]; ok {
		// writes through a replaced engine still reach the new one
		opts = append(opts, rules.WithDiscountsCache(existing.Engine.DiscountsCache()))
	}
	engine, err := rules.NewEngine(discounts, names, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return &ProjectEngine{Project: p, Engine: engine}, nil
}

// GetEngine retrieves the engine of a project
func (m *Manager) GetEngine(key string) (*rules.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pe, exists := m.engines[key]
	if !exists {
		return nil, fmt.Errorf("project %s: %w", key, ErrProjectNotFound)
	}
	return pe.Engine, nil
}

// GetProject returns the metadata of a project
func (m *Manager) GetProject(key string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pe, exists := m.engines[key]
	if !exists {
		return nil, fmt.Errorf("project %s: %w", key, ErrProjectNotFound)
	}
	p := pe.Project
	return &p, nil
}

// ReplaceCategories replaces the category names of a project.
// A new engine is built and swapped in, so evaluations already running keep
// a consistent view of the old engine.
func (m *Manager) ReplaceCategories(key string, categories map[string]string) error {
	if err := ValidateCategories(categories); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.engines[key]
	if !exists {
		return fmt.Errorf("project %s: %w", key, ErrProjectNotFound)
	}

	p := existing.Project
	p.UpdatedAt = time.Now().UTC()

	if m.db != nil {
		store, err := rules.NewSQLCategoryStore(m.db, key)
		if err != nil {
			return err
		}
		if err := store.Replace(categoryList(categories)); err != nil {
			return fmt.Errorf("failed to save categories: %w", err)
		}
		if _, err := m.db.Exec(m.db.Rebind(`UPDATE projects SET updated_at = ? WHERE project_key = ?`), p.UpdatedAt, key); err != nil {
			return fmt.Errorf("failed to touch project %s: %w", key, err)
		}
	}

	pe, err := m.newProjectEngine(p, categories)
	if err != nil {
		return fmt.Errorf("failed to create new engine: %w", err)
	}

	m.engines[key] = pe
	logger.Info("project categories replaced", "project_key", key, "categories", len(categories))
	return nil
}

// Categories returns the category names of a project, sorted by ID
func (m *Manager) Categories(key string) ([]rules.Category, error) {
	engine, err := m.GetEngine(key)
	if err != nil {
		return nil, err
	}
	if engine.Categories() == nil {
		return []rules.Category{}, nil
	}
	return engine.Categories().List()
}

// ListProjects returns all loaded projects ordered by key
func (m *Manager) ListProjects() []Project {
	m.mu.RLock()
	defer m.mu.RUnlock()

	projects := make([]Project, 0, len(m.engines))
	for _, pe := range m.engines {
		projects = append(projects, pe.Project)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Key < projects[j].Key })
	return projects
}

// DeleteProject removes a project together with its discounts and categories
func (m *Manager) DeleteProject(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.engines[key]; !exists {
		return fmt.Errorf("project %s: %w", key, ErrProjectNotFound)
	}

	if m.db != nil {
		res, err := m.db.Exec(m.db.Rebind(`DELETE FROM projects WHERE project_key = ?`), key)
		if err != nil {
			return fmt.Errorf("failed to delete project %s: %w", key, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			logger.Warn("project missing from database", "project_key", key)
		}
	}

	delete(m.engines, key)
	return nil
}

// IsNotFound reports whether err means a missing project or discount
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound) || errors.Is(err, rules.ErrDiscountNotFound) || errors.Is(err, sql.ErrNoRows)
}

func categoryList(categories map[string]string) []rules.Category {
	list := make([]rules.Category, 0, len(categories))
	for id, name := range categories {
		list = append(list, rules.Category{ID: id, Name: name})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
