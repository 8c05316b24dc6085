package evaluator

import (
	"fmt"
	"strings"

	"github.com/liamcoop/cartrules/internal/logger"
)

/*
 * Comparison operators.
 *
 * Values reaching CompareValues come from three places: the typed cart model
 * (Money, strings, []any of category ids), generic JSON navigation
 * (map[string]any, []any, float64, bool) and predicate literals
 * (string, float64, bool, []any).
 *
 * Equality is strict: a string never equals a number. Money equals a money
 * literal when cent amount and currency agree. Two lists are equal when they
 * have the same length and every expected element is present.
 *
 * Ordering compares cent amounts for money, where a numeric literal is read
 * in main currency units, and otherwise falls back to leading-number parsing
 * with 0 for anything that is not a number.
 */

// CompareValues applies operator to actual and expected.
// An empty operator means strict equality; an unknown one is logged and yields false.
func CompareValues(actual any, operator string, expected any) bool {
	actual = normalize(actual)
	expected = normalize(expected)

	switch operator {
	case "":
		return strictEqual(actual, expected)
	case "=":
		return compareEquality(actual, expected)
	case "!=", "<>":
		return !compareEquality(actual, expected)
	case ">":
		return compareNumeric(actual, expected) > 0
	case ">=":
		return compareNumeric(actual, expected) >= 0
	case "<":
		return compareNumeric(actual, expected) < 0
	case "<=":
		return compareNumeric(actual, expected) <= 0
	case "contains":
		return evaluateContains(actual, expected)
	case "contains any":
		return evaluateContainsAny(actual, expected)
	case "contains all":
		return evaluateContainsAll(actual, expected)
	case "in":
		return evaluateIn(actual, expected)
	case "not in":
		return !evaluateIn(actual, expected)
	case "is defined":
		return actual != nil
	case "is not defined":
		return actual == nil
	case "is empty":
		list, ok := actual.([]any)
		return ok && len(list) == 0
	case "is not empty":
		list, ok := actual.([]any)
		return ok && len(list) > 0
	default:
		logger.WarnUnknownOperator(operator)
		return false
	}
}

// normalize maps Go numeric and slice variants onto the JSON shapes
func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case *Money:
		if val == nil {
			return nil
		}
		return *val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case map[string]any:
		if m, ok := moneyFromMap(val); ok {
			return m
		}
		return val
	default:
		return v
	}
}

// moneyFromMap recognises a decoded JSON money object
func moneyFromMap(m map[string]any) (Money, bool) {
	cents, ok := m["centAmount"].(float64)
	if !ok {
		return Money{}, false
	}
	currency, ok := m["currencyCode"].(string)
	if !ok {
		return Money{}, false
	}
	return Money{CentAmount: int64(cents), CurrencyCode: currency}, true
}

// strictEqual compares scalars by type and value; composite values are never equal
func strictEqual(a, b any) bool {
	switch a.(type) {
	case nil, string, float64, bool:
	default:
		return false
	}
	switch b.(type) {
	case nil, string, float64, bool:
	default:
		return false
	}
	return a == b
}

func compareEquality(actual, expected any) bool {
	if money, ok := actual.(Money); ok {
		if s, ok := expected.(string); ok {
			if parsed, ok := ParseMoneyValue(s); ok {
				return money.CentAmount == parsed.CentAmount && money.CurrencyCode == parsed.CurrencyCode
			}
		}
	}

	if a, ok := actual.([]any); ok {
		if e, ok := expected.([]any); ok {
			if len(a) != len(e) {
				return false
			}
			for _, v := range e {
				if !includes(a, v) {
					return false
				}
			}
			return true
		}
	}

	return strictEqual(actual, expected)
}

// compareNumeric returns actual minus expected
func compareNumeric(actual, expected any) float64 {
	if money, ok := actual.(Money); ok {
		var expectedCents float64
		switch e := expected.(type) {
		case string:
			if parsed, ok := ParseMoneyValue(e); ok {
				expectedCents = float64(parsed.CentAmount)
			}
		case float64:
			expectedCents = e * 100
		}
		return float64(money.CentAmount) - expectedCents
	}

	return toNumber(actual) - toNumber(expected)
}

// toNumber reads a number the lenient way: leading digits of a string, 0 otherwise
func toNumber(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		return parseLeadingFloat(val)
	case nil, bool, map[string]any, Money:
		return 0
	default:
		return parseLeadingFloat(fmt.Sprint(val))
	}
}

func evaluateContains(actual, expected any) bool {
	switch a := actual.(type) {
	case []any:
		return includes(a, expected)
	case string:
		e, ok := expected.(string)
		return ok && strings.Contains(a, e)
	}
	return false
}

func evaluateContainsAny(actual, expected any) bool {
	a, ok := actual.([]any)
	if !ok {
		return false
	}
	e, ok := expected.([]any)
	if !ok {
		return includes(a, expected)
	}
	for _, v := range e {
		if includes(a, v) {
			return true
		}
	}
	return false
}

func evaluateContainsAll(actual, expected any) bool {
	a, ok := actual.([]any)
	if !ok {
		return false
	}
	e, ok := expected.([]any)
	if !ok {
		return includes(a, expected)
	}
	for _, v := range e {
		if !includes(a, v) {
			return false
		}
	}
	return true
}

func evaluateIn(actual, expected any) bool {
	if e, ok := expected.([]any); ok {
		return includes(e, actual)
	}
	return strictEqual(actual, expected)
}

func includes(list []any, v any) bool {
	v = normalize(v)
	for _, item := range list {
		if strictEqual(normalize(item), v) {
			return true
		}
	}
	return false
}
