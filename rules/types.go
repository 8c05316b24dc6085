package rules

import (
	"strconv"
	"time"

	"github.com/liamcoop/cartrules/evaluator"
)

// Discount is a cart discount whose predicate is previewed against carts
type Discount struct {
	ID                   string    `json:"id" db:"id"`
	Key                  string    `json:"key,omitempty" db:"discount_key"`
	Name                 string    `json:"name" db:"name"`
	Predicate            string    `json:"cartPredicate" db:"predicate"`
	SortOrder            string    `json:"sortOrder" db:"sort_order"`
	RequiresDiscountCode bool      `json:"requiresDiscountCode" db:"requires_discount_code"`
	Active               bool      `json:"isActive" db:"active"`
	CreatedAt            time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time `json:"updatedAt" db:"updated_at"`
}

// SortWeight is the numeric sort order; discounts with a higher weight apply first.
// An unparseable sort order weighs 0.
func (d *Discount) SortWeight() float64 {
	w, err := strconv.ParseFloat(d.SortOrder, 64)
	if err != nil {
		return 0
	}
	return w
}

// DiscountResult is the preview of one discount against a cart
type DiscountResult struct {
	DiscountID           string            `json:"discountId"`
	Key                  string            `json:"key,omitempty"`
	Name                 string            `json:"name"`
	SortOrder            string            `json:"sortOrder,omitempty"`
	RequiresDiscountCode bool              `json:"requiresDiscountCode"`
	Predicate            string            `json:"cartPredicate"`
	Result               *evaluator.Result `json:"result"`
}

// Category names a commercetools category for qualification messages
type Category struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
