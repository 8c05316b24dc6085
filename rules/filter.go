package rules

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// ErrInvalidFilter is returned for a discount filter that does not compile to a boolean CEL expression
var ErrInvalidFilter = errors.New("invalid discount filter")

// filterCostLimit bounds the runtime cost of one filter evaluation
const filterCostLimit = 100000

var (
	filterEnv     *cel.Env
	filterEnvOnce sync.Once
	filterEnvErr  error
)

// getFilterEnv declares the single `discount` variable filters are written against
func getFilterEnv() (*cel.Env, error) {
	filterEnvOnce.Do(func() {
		filterEnv, filterEnvErr = cel.NewEnv(
			cel.Variable("discount", cel.MapType(cel.StringType, cel.DynType)),
		)
		if filterEnvErr != nil {
			filterEnvErr = fmt.Errorf("failed to create CEL environment: %w", filterEnvErr)
		}
	})
	return filterEnv, filterEnvErr
}

// DiscountFilter selects discounts by their metadata, for example
//
//	!discount.requiresDiscountCode && discount.sortOrder > 0.5
//
// The discount map exposes id, key, name, sortOrder (a number), requiresDiscountCode,
// isActive and cartPredicate.
type DiscountFilter struct {
	source string
	prog   cel.Program
}

// CompileFilter compiles expression. The result must be a bool; dyn results are checked per discount.
func CompileFilter(expression string) (*DiscountFilter, error) {
	env, err := getFilterEnv()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: expression returns %s, want bool", ErrInvalidFilter, out)
	}

	prog, err := env.Program(ast, cel.CostLimit(filterCostLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	return &DiscountFilter{source: expression, prog: prog}, nil
}

// String returns the filter expression
func (f *DiscountFilter) String() string {
	return f.source
}

// Match reports whether d passes the filter. A filter that fails at runtime
// (missing key, cost limit) returns the error.
func (f *DiscountFilter) Match(d *Discount) (bool, error) {
	out, _, err := f.prog.Eval(map[string]any{"discount": filterActivation(d)})
	if err != nil {
		return false, fmt.Errorf("filter %q on discount %s: %w", f.source, d.ID, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q on discount %s: %w: result is %s", f.source, d.ID, ErrInvalidFilter, out.Type().TypeName())
	}
	return matched, nil
}

// Apply returns the discounts matching the filter, in order
func (f *DiscountFilter) Apply(discounts []*Discount) ([]*Discount, error) {
	out := make([]*Discount, 0, len(discounts))
	for _, d := range discounts {
		ok, err := f.Match(d)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func filterActivation(d *Discount) map[string]any {
	return map[string]any{
		"id":                   d.ID,
		"key":                  d.Key,
		"name":                 d.Name,
		"sortOrder":            d.SortWeight(),
		"requiresDiscountCode": d.RequiresDiscountCode,
		"isActive":             d.Active,
		"cartPredicate":        d.Predicate,
	}
}
