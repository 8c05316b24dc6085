package evaluator

import (
	"context"
	"testing"
)

func usd(cents int64) *Money {
	return &Money{Type: "centPrecision", CentAmount: cents, CurrencyCode: "USD", FractionDigits: 2}
}

func lineItem(id, sku string, quantity, unitCents int64, categoryIDs ...string) LineItem {
	li := LineItem{
		ID:         id,
		ProductID:  "product-" + id,
		Name:       LocalizedString{"en": "Product " + sku},
		Variant:    &Variant{ID: 1, SKU: sku},
		Price:      &Price{Value: *usd(unitCents)},
		Quantity:   quantity,
		TotalPrice: *usd(unitCents * quantity),
		TaxedPrice: &TaxedItemPrice{
			TotalNet:   usd(unitCents * quantity * 100 / 119),
			TotalGross: usd(unitCents * quantity),
		},
	}
	for _, id := range categoryIDs {
		li.Categories = append(li.Categories, Reference{TypeID: "category", ID: id})
	}
	return li
}

func cartWith(totalCents int64, items ...LineItem) *Cart {
	return &Cart{ID: "cart-1", TotalPrice: usd(totalCents), LineItems: items, Country: "DE"}
}

func staticResolver(names map[string]string) CategoryResolver {
	return func(_ context.Context, id string) string {
		return names[id]
	}
}

func mustEvaluate(t *testing.T, input string, cart *Cart, opts *Options) *Result {
	t.Helper()
	result := EvaluatePredicate(context.Background(), input, cart, opts)
	if result.Type == TypeParseError {
		t.Fatalf("EvaluatePredicate(%q) failed to parse: %s", input, result.QualificationMessage)
	}
	return result
}

func floatValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func intValue(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
