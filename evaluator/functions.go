package evaluator

import (
	"context"
	"fmt"

	"github.com/liamcoop/cartrules/predicate"
)

// evaluateFunction runs a line item function. Args[0] is the predicate each
// line item is tested against with the item bound in the context.
func evaluateFunction(ctx context.Context, fn *predicate.FunctionTarget, operator string, value any, ec *EvaluationContext) *Result {
	if len(fn.Args) == 0 {
		return unknownResult(TypeFunction, fmt.Sprintf("Function %s has no arguments", fn.Name))
	}
	inner := fn.Args[0]

	switch fn.Name {
	case predicate.FuncLineItemExists:
		return evaluateLineItemExists(ctx, inner, operator, value, ec)
	case predicate.FuncLineItemCount:
		return evaluateLineItemCount(ctx, inner, operator, value, ec)
	case predicate.FuncLineItemTotal, predicate.FuncLineItemGrossTotal:
		return evaluateLineItemTotal(ctx, inner, operator, value, ec, TotalGross, TypeCategoryGrossTotal)
	case predicate.FuncLineItemNetTotal:
		return evaluateLineItemTotal(ctx, inner, operator, value, ec, TotalNet, TypeCategoryNetTotal)
	case predicate.FuncForAllLineItems:
		return evaluateForAllLineItems(ctx, inner, ec)
	}

	if predicate.IsCustomLineItemFunction(fn.Name) {
		return unknownResult(TypeCustomLineItemFunction, "Custom line item functions not fully supported")
	}
	return unknownResult(TypeUnknownFunction, "Unknown function: "+fn.Name)
}

// matchingLineItems returns the line items for which inner applies
func matchingLineItems(ctx context.Context, inner predicate.Node, ec *EvaluationContext) []*LineItem {
	var matches []*LineItem
	for i := range ec.Cart.LineItems {
		li := &ec.Cart.LineItems[i]
		if evaluateNode(ctx, inner, ec.withLineItem(li)).IsApplicable {
			matches = append(matches, li)
		}
	}
	return matches
}

// firstMatchingLineItem stops at the first line item for which inner applies
func firstMatchingLineItem(ctx context.Context, inner predicate.Node, ec *EvaluationContext) *LineItem {
	for i := range ec.Cart.LineItems {
		li := &ec.Cart.LineItems[i]
		if evaluateNode(ctx, inner, ec.withLineItem(li)).IsApplicable {
			return li
		}
	}
	return nil
}

// evaluateLineItemExists compares whether a matching line item exists with the
// expected boolean, so both `= true` and `= false` read naturally. A missing
// value means true.
func evaluateLineItemExists(ctx context.Context, inner predicate.Node, operator string, value any, ec *EvaluationContext) *Result {
	expected := true
	switch v := value.(type) {
	case bool:
		expected = v
	case string:
		expected = v == "true"
	}

	found := firstMatchingLineItem(ctx, inner, ec) != nil
	info := extractPredicateInfo(ctx, inner, ec)

	typ := TypeLineItemExists
	if info.categoryName != "" {
		typ = TypeCategoryExists
	}

	result := &Result{
		Type:          typ,
		CategoryName:  info.categoryName,
		CategoryNames: info.categoryNames,
		CategoryIDs:   info.categoryIDs,
		ProductName:   info.productName,
		SKU:           info.sku,
	}

	if CompareValues(found, operator, expected) {
		result.IsApplicable = true
		result.QualificationStatus = StatusQualified
		if found {
			result.QualificationMessage = "Required product found in cart"
		}
		return result
	}

	result.QualificationStatus = StatusPending
	if found {
		result.QualificationMessage = "Remove excluded product from cart to qualify"
	} else {
		result.QualificationMessage = FormatQualificationMessage(typ, MessageParams{
			CategoryName: firstNonEmpty(info.categoryNames, info.categoryName),
			ProductName:  info.productName,
		})
	}
	return result
}

// evaluateLineItemCount sums the quantity of matching line items
func evaluateLineItemCount(ctx context.Context, inner predicate.Node, operator string, value any, ec *EvaluationContext) *Result {
	current := CountLineItemsQuantity(matchingLineItems(ctx, inner, ec))

	var required float64
	switch v := value.(type) {
	case float64:
		required = v
	case string:
		required = float64(int64(parseLeadingFloat(v)))
	}
	requiredCount := int64(required)

	info := extractPredicateInfo(ctx, inner, ec)
	typ := TypeCategoryCount
	if info.isSKU {
		typ = TypeSKUCount
	}

	result := &Result{
		Type:          typ,
		CurrentCount:  int64Ptr(current),
		RequiredCount: int64Ptr(requiredCount),
		CategoryName:  info.categoryName,
		CategoryNames: info.categoryNames,
		CategoryIDs:   info.categoryIDs,
		ProductName:   info.productName,
		SKU:           info.sku,
	}

	if CompareValues(float64(current), operator, required) {
		result.IsApplicable = true
		result.QualificationStatus = StatusQualified
		return result
	}

	remaining := requiredCount - current
	result.QualificationStatus = StatusPending
	result.RemainingCount = int64Ptr(remaining)
	result.QualificationMessage = FormatQualificationMessage(typ, MessageParams{
		RemainingCount: &remaining,
		CategoryName:   info.categoryName,
		ProductName:    info.productName,
	})
	return result
}

// evaluateLineItemTotal sums the gross or net totals of matching line items in cents
func evaluateLineItemTotal(ctx context.Context, inner predicate.Node, operator string, value any, ec *EvaluationContext, kind TotalKind, typ ResultType) *Result {
	var requiredCents int64
	switch v := value.(type) {
	case string:
		parsed, ok := ParseMoneyValue(v)
		if !ok {
			return unknownResult(typ, "Could not parse required amount "+v)
		}
		requiredCents = parsed.CentAmount
	case float64:
		requiredCents = toCents(v)
	default:
		return unknownResult(typ, "Could not parse required amount")
	}

	current := CalculateLineItemsTotal(matchingLineItems(ctx, inner, ec), kind)
	info := extractPredicateInfo(ctx, inner, ec)

	result := &Result{
		Type:           typ,
		CurrentAmount:  float64Ptr(centsToUnits(current)),
		RequiredAmount: float64Ptr(centsToUnits(requiredCents)),
		CategoryName:   info.categoryName,
		CategoryNames:  info.categoryNames,
		CategoryIDs:    info.categoryIDs,
	}

	if CompareValues(float64(current), operator, float64(requiredCents)) {
		result.IsApplicable = true
		result.QualificationStatus = StatusQualified
		return result
	}

	remaining := centsToUnits(requiredCents - current)
	result.QualificationStatus = StatusPending
	result.RemainingAmount = float64Ptr(remaining)
	result.QualificationMessage = FormatQualificationMessage(typ, MessageParams{
		RemainingAmount: &remaining,
		CurrencyCode:    ec.CurrencyCode,
		CategoryName:    firstNonEmpty(info.categoryNames, info.categoryName),
	})
	return result
}

// evaluateForAllLineItems applies when every line item matches; an empty cart is pending
func evaluateForAllLineItems(ctx context.Context, inner predicate.Node, ec *EvaluationContext) *Result {
	if len(ec.Cart.LineItems) == 0 {
		return &Result{
			Type:                 TypeForAllLineItems,
			QualificationStatus:  StatusPending,
			QualificationMessage: "Cart has no line items",
		}
	}

	for i := range ec.Cart.LineItems {
		if !evaluateNode(ctx, inner, ec.withLineItem(&ec.Cart.LineItems[i])).IsApplicable {
			return &Result{
				Type:                 TypeForAllLineItems,
				QualificationStatus:  StatusPending,
				QualificationMessage: "Not all line items match the required condition",
			}
		}
	}

	return &Result{IsApplicable: true, Type: TypeForAllLineItems, QualificationStatus: StatusQualified}
}
