package projectengine

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/liamcoop/cartrules/rules"
)

func TestValidateProjectKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"my-shop", false},
		{"shop_eu_01", false},
		{"ab", false},
		{"a", true},
		{"", true},
		{"My-Shop", true},
		{"shop.eu", true},
		{"shop eu", true},
		{strings.Repeat("a", 36), false},
		{strings.Repeat("a", 37), true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateProjectKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProjectKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDiscount(t *testing.T) {
	valid := func() *rules.Discount {
		return &rules.Discount{
			ID:        "d-1",
			Key:       "summer-sale",
			Name:      "Summer sale",
			Predicate: `lineItemTotal(categories.id contains "c1") >= "50.00 EUR"`,
			SortOrder: "0.5",
			Active:    true,
		}
	}

	tests := []struct {
		name    string
		mutate  func(d *rules.Discount)
		wantErr string
	}{
		{"valid", func(*rules.Discount) {}, ""},
		{"blank predicate", func(d *rules.Discount) { d.Predicate = "  " }, ""},
		{"no key", func(d *rules.Discount) { d.Key = "" }, ""},
		{"no sort order", func(d *rules.Discount) { d.SortOrder = "" }, ""},
		{"empty id", func(d *rules.Discount) { d.ID = " " }, "id cannot be empty"},
		{"long id", func(d *rules.Discount) { d.ID = strings.Repeat("x", 257) }, "exceeds maximum"},
		{"empty name", func(d *rules.Discount) { d.Name = "" }, "name cannot be empty"},
		{"bad key", func(d *rules.Discount) { d.Key = "summer sale" }, "key"},
		{"sort order one", func(d *rules.Discount) { d.SortOrder = "1" }, "sort order"},
		{"sort order zero", func(d *rules.Discount) { d.SortOrder = "0" }, "sort order"},
		{"sort order trailing zero", func(d *rules.Discount) { d.SortOrder = "0.50" }, "sort order"},
		{"sort order word", func(d *rules.Discount) { d.SortOrder = "high" }, "sort order"},
		{"bad predicate", func(d *rules.Discount) { d.Predicate = `totalPrice >=` }, "invalid cart predicate"},
		{"long predicate", func(d *rules.Discount) { d.Predicate = strings.Repeat("a", maxPredicateLength+1) }, "predicate length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)

			err := ValidateDiscount(d)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateDiscount() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateDiscount() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateDiscount() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDiscountPredicateErrorIsTyped(t *testing.T) {
	err := ValidateDiscount(&rules.Discount{ID: "d", Name: "D", Predicate: `not(`})
	if !errors.Is(err, rules.ErrInvalidPredicate) {
		t.Errorf("ValidateDiscount() error = %v, want ErrInvalidPredicate", err)
	}
	if ValidateDiscount(nil) == nil {
		t.Error("ValidateDiscount(nil) should fail")
	}
}

func TestValidateCategories(t *testing.T) {
	tests := []struct {
		name       string
		categories map[string]string
		wantErr    bool
	}{
		{"nil", nil, false},
		{"valid", map[string]string{"c1": "Shoes", "c2": "Shirts"}, false},
		{"empty id", map[string]string{"": "Shoes"}, true},
		{"padded id", map[string]string{" c1": "Shoes"}, true},
		{"empty name", map[string]string{"c1": " "}, true},
		{"long name", map[string]string{"c1": strings.Repeat("n", 257)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCategories(tt.categories)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCategories() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCategoriesTooMany(t *testing.T) {
	categories := make(map[string]string, maxCategories+1)
	for i := 0; i <= maxCategories; i++ {
		categories[fmt.Sprintf("c%d", i)] = "Category"
	}
	if err := ValidateCategories(categories); err == nil || !strings.Contains(err.Error(), "10000") {
		t.Errorf("ValidateCategories() error = %v, want the maximum to be reported", err)
	}
}
