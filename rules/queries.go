package rules

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/qustavo/dotsql"
)

//go:embed queries/*.sql
var queriesFS embed.FS

var (
	namedQueries     *dotsql.DotSql
	namedQueriesOnce sync.Once
	namedQueriesErr  error
)

// loadNamedQueries parses the embedded .sql files once per process
func loadNamedQueries() (*dotsql.DotSql, error) {
	namedQueriesOnce.Do(func() {
		var combined string
		namedQueriesErr = fs.WalkDir(queriesFS, "queries", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".sql" {
				return nil
			}
			content, err := queriesFS.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			combined += string(content) + "\n"
			return nil
		})
		if namedQueriesErr != nil {
			namedQueriesErr = fmt.Errorf("failed to load query files: %w", namedQueriesErr)
			return
		}
		namedQueries, namedQueriesErr = dotsql.LoadFromString(combined)
		if namedQueriesErr != nil {
			namedQueriesErr = fmt.Errorf("failed to parse queries: %w", namedQueriesErr)
		}
	})
	return namedQueries, namedQueriesErr
}

// queries runs named queries with ? placeholders rebound for the driver
type queries struct {
	dot *dotsql.DotSql
	db  *sqlx.DB
}

func newQueries(db *sqlx.DB) (*queries, error) {
	dot, err := loadNamedQueries()
	if err != nil {
		return nil, err
	}
	return &queries{dot: dot, db: db}, nil
}

func (q *queries) raw(name string) (string, error) {
	query, err := q.dot.Raw(name)
	if err != nil {
		return "", fmt.Errorf("query not found: %s", name)
	}
	return q.db.Rebind(query), nil
}

func (q *queries) exec(ext sqlx.Execer, name string, args ...any) (sql.Result, error) {
	query, err := q.raw(name)
	if err != nil {
		return nil, err
	}
	return ext.Exec(query, args...)
}

func (q *queries) get(name string, dest any, args ...any) error {
	query, err := q.raw(name)
	if err != nil {
		return err
	}
	return q.db.Get(dest, query, args...)
}

func (q *queries) selectAll(name string, dest any, args ...any) error {
	query, err := q.raw(name)
	if err != nil {
		return err
	}
	return q.db.Select(dest, query, args...)
}

func (q *queries) getContext(ctx context.Context, name string, dest any, args ...any) error {
	query, err := q.raw(name)
	if err != nil {
		return err
	}
	return q.db.GetContext(ctx, dest, query, args...)
}
