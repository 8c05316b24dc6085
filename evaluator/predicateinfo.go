package evaluator

import (
	"context"
	"strings"

	"github.com/liamcoop/cartrules/predicate"
)

// predicateInfo describes what a line item predicate selects, for messages only
type predicateInfo struct {
	categoryName  string
	categoryNames string
	categoryIDs   []string
	productName   string
	sku           string
	isSKU         bool
}

// extractPredicateInfo looks for categories.id and sku conditions in node.
// Later conditions of a logical node override earlier ones. Category names are
// resolved one at a time through the context's resolver.
func extractPredicateInfo(ctx context.Context, node predicate.Node, ec *EvaluationContext) predicateInfo {
	var info predicateInfo

	switch n := node.(type) {
	case *predicate.Condition:
		field, ok := n.Target.(*predicate.FieldTarget)
		if !ok || field == nil {
			return info
		}
		switch strings.ReplaceAll(field.Name, "`", "") {
		case "categories.id":
			info.categoryIDs, info.categoryName, info.categoryNames = resolveCategories(ctx, n.Value, ec)
		case "sku":
			info.isSKU = true
			if sku, ok := n.Value.(string); ok {
				info.sku = sku
				info.productName = productNameForSKU(ec.Cart, sku)
			}
		}

	case *predicate.Logical:
		for _, child := range n.Conditions {
			sub := extractPredicateInfo(ctx, child, ec)
			if sub.categoryName != "" {
				info.categoryName = sub.categoryName
			}
			if sub.categoryNames != "" {
				info.categoryNames = sub.categoryNames
			}
			if sub.categoryIDs != nil {
				info.categoryIDs = sub.categoryIDs
			}
			if sub.productName != "" {
				info.productName = sub.productName
			}
			if sub.sku != "" {
				info.sku = sub.sku
			}
			if sub.isSKU {
				info.isSKU = true
			}
		}
	}

	return info
}

// resolveCategories returns the ids named by value with the first resolved name
// and, for lists, all resolved names joined with " or "
func resolveCategories(ctx context.Context, value any, ec *EvaluationContext) (ids []string, name, names string) {
	switch v := value.(type) {
	case string:
		return []string{v}, ec.resolveCategory(ctx, v), ""

	case []any:
		var resolved []string
		for _, item := range v {
			id, ok := item.(string)
			if !ok {
				continue
			}
			ids = append(ids, id)
			if n := ec.resolveCategory(ctx, id); n != "" {
				resolved = append(resolved, n)
			}
		}
		if len(resolved) > 0 {
			return ids, resolved[0], strings.Join(resolved, " or ")
		}
		return ids, "", ""
	}
	return nil, "", ""
}

// productNameForSKU names the cart line with the SKU, falling back to "SKU: <sku>"
func productNameForSKU(cart *Cart, sku string) string {
	for i := range cart.LineItems {
		li := &cart.LineItems[i]
		if li.SKU() != sku {
			continue
		}
		if name := li.LocalizedName(); name != "" {
			return name
		}
		break
	}
	return "SKU: " + sku
}
