package evaluator

import (
	"strings"
)

/*
 * Field path resolution over cart data.
 *
 * A dotted path is resolved against the line item bound in the context when
 * its first segment names a line item field, and against the cart otherwise.
 * Navigation walks the generic JSON document so that fields the typed model
 * does not know about (custom fields, shipping address, ...) still resolve.
 *
 * Special cases:
 *   - sku reads variant.sku
 *   - categories.id reads the line item categories, then the variant
 *     categories, and is an empty list when neither is populated
 *   - customer.customerGroup.key/id and a bare totalPrice read the typed cart
 *   - typed string fields that are empty resolve to nil, as absent JSON does
 *
 * A nil or non-object intermediate ends navigation with nil.
 */

var lineItemFields = map[string]bool{
	"sku":        true,
	"productId":  true,
	"productKey": true,
	"variant":    true,
	"name":       true,
	"quantity":   true,
	"price":      true,
	"totalPrice": true,
	"custom":     true,
	"categories": true,
}

// GetFieldValue resolves path against the line item or cart in ec.
// It returns nil when the path does not resolve.
func GetFieldValue(path string, ec *EvaluationContext) any {
	normalized := strings.ReplaceAll(path, "`", "")
	parts := strings.Split(normalized, ".")
	first := parts[0]

	if li := ec.LineItem; li != nil && lineItemFields[first] {
		if first == "sku" {
			if li.Variant == nil {
				return nil
			}
			return optional(li.Variant.SKU)
		}
		if normalized == "categories.id" {
			return lineItemCategoryIDs(li)
		}
		return navigate(ec.lineItemDocument(li), parts)
	}

	cart := ec.Cart
	switch {
	case normalized == "customer.customerGroup.key":
		if cart.CustomerGroup == nil {
			return nil
		}
		return optional(cart.CustomerGroup.Key)
	case normalized == "customer.customerGroup.id":
		if cart.CustomerGroup == nil {
			return nil
		}
		return optional(cart.CustomerGroup.ID)
	case normalized == "totalPrice":
		if cart.TotalPrice == nil {
			return nil
		}
		return *cart.TotalPrice
	}

	return navigate(ec.cartDocument(), parts)
}

// optional maps the zero value of a typed string field to nil
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// lineItemCategoryIDs lists the category ids of a line item as []any
func lineItemCategoryIDs(li *LineItem) []any {
	refs := li.Categories
	if refs == nil && li.Variant != nil {
		refs = li.Variant.Categories
	}
	ids := make([]any, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}

// navigate follows parts through nested JSON objects
func navigate(current any, parts []string) any {
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[part]
	}
	return current
}
