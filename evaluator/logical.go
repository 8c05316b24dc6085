package evaluator

import (
	"context"
	"strings"

	"github.com/liamcoop/cartrules/predicate"
)

// evaluateLogical evaluates every child in order and merges their statuses.
//
// and: NOT_APPLICABLE if any child is, QUALIFIED if all apply, PENDING otherwise.
// or:  QUALIFIED if any child applies, NOT_APPLICABLE if all children are, PENDING otherwise.
// A group with a single child takes that child's applicability and status.
//
// Negation flips applicability and swaps QUALIFIED with NOT_APPLICABLE.
// PENDING and UNKNOWN are left as they are, so not(pending) stays PENDING
// while reporting itself applicable.
func evaluateLogical(ctx context.Context, node *predicate.Logical, ec *EvaluationContext) *Result {
	results := make([]*Result, 0, len(node.Conditions))
	for _, child := range node.Conditions {
		results = append(results, evaluateNode(ctx, child, ec))
	}

	var (
		applicable bool
		status     Status
	)

	switch {
	case len(results) == 1:
		applicable = results[0].IsApplicable
		status = results[0].QualificationStatus
	case node.Logical == predicate.Or:
		applicable, status = combineOr(results)
	default:
		applicable, status = combineAnd(results)
	}

	if node.IsNegated {
		applicable = !applicable
		switch status {
		case StatusQualified:
			status = StatusNotApplicable
		case StatusNotApplicable:
			status = StatusQualified
		}
	}

	qualified := []string{}
	pending := []string{}
	for _, r := range results {
		if r.IsApplicable {
			qualified = append(qualified, FormatConditionSummary(r))
			continue
		}
		if r.QualificationStatus == StatusPending && r.QualificationMessage != "" {
			pending = append(pending, r.QualificationMessage)
		}
	}

	result := &Result{
		IsApplicable:        applicable,
		Type:                TypeCombined,
		QualificationStatus: status,
		QualifiedConditions: qualified,
		PendingConditions:   pending,
		Conditions:          results,
	}
	if len(pending) > 0 {
		result.QualificationMessage = "Requirements needed: " + strings.Join(pending, " and ")
	}
	return result
}

func combineAnd(results []*Result) (bool, Status) {
	applicable := true
	notApplicable := false
	for _, r := range results {
		applicable = applicable && r.IsApplicable
		if r.QualificationStatus == StatusNotApplicable {
			notApplicable = true
		}
	}

	switch {
	case notApplicable:
		return applicable, StatusNotApplicable
	case applicable:
		return true, StatusQualified
	default:
		return false, StatusPending
	}
}

func combineOr(results []*Result) (bool, Status) {
	allNotApplicable := true
	for _, r := range results {
		if r.IsApplicable {
			return true, StatusQualified
		}
		if r.QualificationStatus != StatusNotApplicable {
			allNotApplicable = false
		}
	}

	if allNotApplicable {
		return false, StatusNotApplicable
	}
	return false, StatusPending
}
