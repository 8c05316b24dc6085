package rules

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/liamcoop/cartrules/internal/db"
	"github.com/liamcoop/cartrules/migrations"
)

// openTestDB opens a migrated SQLite database holding one project
func openTestDB(t *testing.T, projectKeys ...string) *sqlx.DB {
	t.Helper()

	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "cartrules.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := migrations.Up(conn); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	for _, key := range projectKeys {
		if _, err := conn.Exec(`INSERT INTO projects (project_key, name) VALUES (?, ?)`, key, key); err != nil {
			t.Fatalf("failed to create project %s: %v", key, err)
		}
	}
	return conn
}

func TestSQLDiscountStore(t *testing.T) {
	var _ DiscountStore = (*SQLDiscountStore)(nil)

	runDiscountStoreTests(t, func(t *testing.T) DiscountStore {
		store, err := NewSQLDiscountStore(openTestDB(t, "shop"), "shop")
		if err != nil {
			t.Fatalf("NewSQLDiscountStore() failed: %v", err)
		}
		return store
	})
}

func TestSQLDiscountStoreProjectIsolation(t *testing.T) {
	conn := openTestDB(t, "shop-a", "shop-b")
	a, _ := NewSQLDiscountStore(conn, "shop-a")
	b, _ := NewSQLDiscountStore(conn, "shop-b")

	if err := a.Add(&Discount{ID: "shared-id", Name: "A", Active: true}); err != nil {
		t.Fatalf("Add() to project a failed: %v", err)
	}
	if _, err := b.Get("shared-id"); !errors.Is(err, ErrDiscountNotFound) {
		t.Fatalf("project b sees project a's discount, err = %v", err)
	}
	if err := b.Add(&Discount{ID: "shared-id", Name: "B", Active: true}); err != nil {
		t.Fatalf("same ID in another project should be allowed: %v", err)
	}

	got, _ := a.Get("shared-id")
	if got.Name != "A" {
		t.Errorf("project a discount Name = %s, want A", got.Name)
	}
	if err := b.Delete("shared-id"); err != nil {
		t.Fatalf("Delete() in project b failed: %v", err)
	}
	if _, err := a.Get("shared-id"); err != nil {
		t.Errorf("Delete() in project b removed project a's discount: %v", err)
	}
}

func TestCategoryStores(t *testing.T) {
	stores := map[string]func(t *testing.T) CategoryStore{
		"in memory": func(*testing.T) CategoryStore {
			return NewInMemoryCategoryStore(nil)
		},
		"sql": func(t *testing.T) CategoryStore {
			store, err := NewSQLCategoryStore(openTestDB(t, "shop"), "shop")
			if err != nil {
				t.Fatalf("NewSQLCategoryStore() failed: %v", err)
			}
			return store
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			ctx := context.Background()

			if got, err := store.Name(ctx, "c-1"); err != nil || got != "" {
				t.Fatalf("Name() on empty store = %q, %v, want empty", got, err)
			}

			if err := store.Replace([]Category{{ID: "c-2", Name: "Socks"}, {ID: "c-1", Name: "Shoes"}}); err != nil {
				t.Fatalf("Replace() failed: %v", err)
			}
			if got, _ := store.Name(ctx, "c-1"); got != "Shoes" {
				t.Errorf("Name(c-1) = %q, want Shoes", got)
			}

			list, err := store.List()
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			if len(list) != 2 || list[0].ID != "c-1" || list[1].ID != "c-2" {
				t.Errorf("List() = %+v, want c-1, c-2", list)
			}

			if err := store.Replace([]Category{{ID: "c-3", Name: "Hats"}}); err != nil {
				t.Fatalf("second Replace() failed: %v", err)
			}
			if got, _ := store.Name(ctx, "c-1"); got != "" {
				t.Errorf("Replace() kept old category c-1 = %q", got)
			}
			if got, _ := store.Name(ctx, "c-3"); got != "Hats" {
				t.Errorf("Name(c-3) = %q, want Hats", got)
			}
		})
	}
}

func TestCategoryResolver(t *testing.T) {
	if CategoryResolver(nil) != nil {
		t.Error("CategoryResolver(nil) should be nil")
	}

	resolve := CategoryResolver(NewInMemoryCategoryStore(map[string]string{"c-1": "Shoes"}))
	if got := resolve(context.Background(), "c-1"); got != "Shoes" {
		t.Errorf("resolve(c-1) = %q, want Shoes", got)
	}
	if got := resolve(context.Background(), "c-9"); got != "" {
		t.Errorf("resolve(c-9) = %q, want empty", got)
	}
}
