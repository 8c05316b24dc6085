package projectengine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/liamcoop/cartrules/predicate"
	"github.com/liamcoop/cartrules/rules"
)

const (
	maxPredicateLength = 8192
	maxNameLength      = 256
	maxCategories      = 10000
)

var (
	projectKeyPattern  = regexp.MustCompile(`^[a-z0-9_-]{2,36}$`)
	discountKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{2,256}$`)
	sortOrderPattern   = regexp.MustCompile(`^0\.\d*[1-9]$`)
)

// ValidateProjectKey checks a commercetools project key: 2-36 lowercase letters, digits, '-' or '_'
func ValidateProjectKey(key string) error {
	if !projectKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid project key %q: must be 2-36 characters of a-z, 0-9, '-' or '_'", key)
	}
	return nil
}

// ValidateDiscount checks a discount definition before it is stored.
// The predicate must parse; a blank predicate matches every cart.
func ValidateDiscount(d *rules.Discount) error {
	if d == nil {
		return fmt.Errorf("discount cannot be nil")
	}

	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("discount id cannot be empty")
	}
	if len(d.ID) > maxNameLength {
		return fmt.Errorf("discount id length %d exceeds maximum of %d characters", len(d.ID), maxNameLength)
	}

	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("discount %s: name cannot be empty", d.ID)
	}
	if len(d.Name) > maxNameLength {
		return fmt.Errorf("discount %s: name length %d exceeds maximum of %d characters", d.ID, len(d.Name), maxNameLength)
	}

	if d.Key != "" && !discountKeyPattern.MatchString(d.Key) {
		return fmt.Errorf("discount %s: key %q must be 2-256 characters of A-Z, a-z, 0-9, '-' or '_'", d.ID, d.Key)
	}

	// commercetools sort orders are decimals strictly between 0 and 1 without trailing zeros
	if d.SortOrder != "" && !sortOrderPattern.MatchString(d.SortOrder) {
		return fmt.Errorf("discount %s: sort order %q must be a decimal between 0 and 1 such as \"0.5\"", d.ID, d.SortOrder)
	}

	if len(d.Predicate) > maxPredicateLength {
		return fmt.Errorf("discount %s: predicate length %d exceeds maximum of %d characters", d.ID, len(d.Predicate), maxPredicateLength)
	}
	if strings.TrimSpace(d.Predicate) != "" {
		if _, err := predicate.Parse(d.Predicate); err != nil {
			return fmt.Errorf("discount %s: %w: %v", d.ID, rules.ErrInvalidPredicate, err)
		}
	}

	return nil
}

// ValidateCategories checks a category id -> name map
func ValidateCategories(categories map[string]string) error {
	if len(categories) > maxCategories {
		return fmt.Errorf("%d categories exceed the maximum of %d", len(categories), maxCategories)
	}

	for id, name := range categories {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("category id cannot be empty")
		}
		if strings.TrimSpace(id) != id {
			return fmt.Errorf("category id %q has leading or trailing whitespace", id)
		}
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("category %s: name cannot be empty", id)
		}
		if len(name) > maxNameLength {
			return fmt.Errorf("category %s: name length %d exceeds maximum of %d characters", id, len(name), maxNameLength)
		}
	}

	return nil
}
