package evaluator

import (
	"fmt"
)

const unknownRequirements = "Unable to determine qualification requirements"

// MessageParams fills the qualification message templates. Nil progress fields are absent.
type MessageParams struct {
	RemainingAmount *float64
	RemainingCount  *int64
	CurrencyCode    string
	CategoryName    string
	ProductName     string
}

// FormatQualificationMessage describes what is missing for a pending requirement of type typ.
// When the template for typ cannot be filled, the remaining amount or count is described generically.
func FormatQualificationMessage(typ ResultType, p MessageParams) string {
	currency := p.CurrencyCode
	if currency == "" {
		currency = defaultCurrency
	}

	switch typ {
	case TypeTotalPrice:
		if p.RemainingAmount != nil {
			return fmt.Sprintf("Spend %s %.2f more to qualify", currency, *p.RemainingAmount)
		}
	case TypeCategoryGrossTotal:
		if p.RemainingAmount != nil && p.CategoryName != "" {
			return fmt.Sprintf("Spend %s %.2f more on %s products to qualify", currency, *p.RemainingAmount, p.CategoryName)
		}
	case TypeCategoryCount:
		if p.RemainingCount != nil && p.CategoryName != "" {
			return fmt.Sprintf("Add %d more %s from %s to qualify", *p.RemainingCount, plural(*p.RemainingCount, "item", "items"), p.CategoryName)
		}
	case TypeCategoryExists:
		if p.CategoryName != "" {
			return fmt.Sprintf("Add any item from %s category to qualify", p.CategoryName)
		}
	case TypeSKUCount:
		if p.RemainingCount != nil && p.ProductName != "" {
			return fmt.Sprintf("Add %d more %s of %s to qualify", *p.RemainingCount, plural(*p.RemainingCount, "unit", "units"), p.ProductName)
		}
	case TypeLineItemExists:
		return "Add required product to cart to qualify"
	case TypeCustomerGroup:
		return "Customer group specific discount"
	}

	if p.RemainingAmount != nil {
		return fmt.Sprintf("Spend %s %.2f more to qualify", currency, *p.RemainingAmount)
	}
	if p.RemainingCount != nil {
		return fmt.Sprintf("Add %d more items to qualify", *p.RemainingCount)
	}
	return unknownRequirements
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatConditionSummary describes a met requirement, for the qualified list of a combined result
func FormatConditionSummary(r *Result) string {
	switch r.Type {
	case TypeCategoryGrossTotal:
		if r.CurrentAmount != nil && r.RequiredAmount != nil {
			label := firstNonEmpty(r.CategoryNames, r.CategoryName, "category")
			return fmt.Sprintf("Spent %.2f on %s products (required: %.2f)", *r.CurrentAmount, label, *r.RequiredAmount)
		}
	case TypeCategoryCount:
		if r.CurrentCount != nil && r.RequiredCount != nil {
			return fmt.Sprintf("Added %d items from %s (required: %d)", *r.CurrentCount, firstNonEmpty(r.CategoryName, "category"), *r.RequiredCount)
		}
	case TypeSKUCount:
		if r.CurrentCount != nil && r.RequiredCount != nil {
			return fmt.Sprintf("Added %d units of %s (required: %d)", *r.CurrentCount, firstNonEmpty(r.ProductName, "product"), *r.RequiredCount)
		}
	case TypeTotalPrice:
		return "Cart total meets the minimum amount requirement"
	case TypeCategoryExists:
		return fmt.Sprintf("Added items from %s category", firstNonEmpty(r.CategoryName, "required"))
	case TypeLineItemExists:
		if r.ProductName != "" {
			return fmt.Sprintf("Added %s to cart", r.ProductName)
		}
		return "Required product added to cart"
	}
	return "Condition met"
}

var displayNames = map[ResultType]string{
	TypeTotalPrice:         "Cart Total",
	TypeCategoryGrossTotal: "Category Spending",
	TypeCategoryNetTotal:   "Category Net Spending",
	TypeCategoryCount:      "Category Item Count",
	TypeCategoryExists:     "Category Product",
	TypeSKUCount:           "Specific Product Count",
	TypeLineItemExists:     "Product in Cart",
	TypeCustomerGroup:      "Customer Group",
	TypeCombined:           "Multiple Conditions",
	TypeUnknown:            "Unknown Condition",
}

// PredicateTypeDisplayName returns a short label for typ, or typ itself when it has none
func PredicateTypeDisplayName(typ ResultType) string {
	if name, ok := displayNames[typ]; ok {
		return name
	}
	return string(typ)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
