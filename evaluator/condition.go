package evaluator

import (
	"context"
	"strings"

	"github.com/liamcoop/cartrules/predicate"
)

func evaluateCondition(ctx context.Context, node *predicate.Condition, ec *EvaluationContext) *Result {
	switch target := node.Target.(type) {
	case *predicate.FunctionTarget:
		if target != nil {
			return evaluateFunction(ctx, target, node.Operator, node.Value, ec)
		}
	case *predicate.FieldTarget:
		if target != nil {
			return evaluateFieldCondition(target.Name, node.Operator, node.Value, ec)
		}
	case *predicate.ConstantTarget:
		if target != nil {
			var literal any
			if target.Value != nil {
				literal = target.Value.Value
			}
			ok := CompareValues(literal, node.Operator, node.Value)
			// a constant cannot change, so a false comparison is final
			status := StatusNotApplicable
			if ok {
				status = StatusQualified
			}
			return &Result{IsApplicable: ok, Type: TypeConstant, QualificationStatus: status}
		}
	}

	return unknownResult(TypeUnknown, "Unable to evaluate condition")
}

func evaluateFieldCondition(path, operator string, expected any, ec *EvaluationContext) *Result {
	if strings.Contains(path, "customerGroup") {
		return &Result{
			IsApplicable:         false,
			Type:                 TypeCustomerGroup,
			QualificationStatus:  StatusNotApplicable,
			QualificationMessage: FormatQualificationMessage(TypeCustomerGroup, MessageParams{}),
		}
	}

	if path == "totalPrice" && ec.LineItem == nil {
		return evaluateTotalPrice(operator, expected, ec)
	}

	if CompareValues(GetFieldValue(path, ec), operator, expected) {
		return &Result{IsApplicable: true, Type: TypeField, QualificationStatus: StatusQualified}
	}
	return &Result{
		IsApplicable:         false,
		Type:                 TypeField,
		QualificationStatus:  StatusPending,
		QualificationMessage: "Field " + path + " does not match required value",
	}
}

func evaluateTotalPrice(operator string, expected any, ec *EvaluationContext) *Result {
	total := ec.Cart.TotalPrice
	if total == nil {
		return &Result{
			IsApplicable:         false,
			Type:                 TypeTotalPrice,
			QualificationStatus:  StatusPending,
			QualificationMessage: "Cart has no total price",
		}
	}

	s, _ := expected.(string)
	required, ok := ParseMoneyValue(s)
	if !ok {
		return unknownResult(TypeTotalPrice, "Could not parse required price value")
	}

	result := &Result{
		Type:           TypeTotalPrice,
		CurrentAmount:  float64Ptr(centsToUnits(total.CentAmount)),
		RequiredAmount: float64Ptr(centsToUnits(required.CentAmount)),
	}

	if CompareValues(*total, operator, expected) {
		result.IsApplicable = true
		result.QualificationStatus = StatusQualified
		return result
	}

	remaining := centsToUnits(required.CentAmount - total.CentAmount)
	result.QualificationStatus = StatusPending
	result.RemainingAmount = float64Ptr(remaining)
	result.QualificationMessage = FormatQualificationMessage(TypeTotalPrice, MessageParams{
		RemainingAmount: &remaining,
		CurrencyCode:    total.CurrencyCode,
	})
	return result
}
