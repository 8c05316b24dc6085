package evaluator

import (
	"reflect"
	"testing"
)

const cartJSON = `{
	"id": "cart-1",
	"country": "DE",
	"totalPrice": {"type": "centPrecision", "centAmount": 4250, "currencyCode": "EUR", "fractionDigits": 2},
	"customerGroup": {"typeId": "customer-group", "id": "cg-1", "key": "vip"},
	"shippingAddress": {"country": "AT", "city": "Wien"},
	"custom": {"fields": {"loyalty": "gold"}},
	"lineItems": [
		{
			"id": "li-1",
			"productId": "p-1",
			"name": {"en": "Trail Shoe"},
			"variant": {"id": 1, "sku": "SHOE-1", "categories": [{"typeId": "category", "id": "from-variant"}]},
			"quantity": 2,
			"price": {"value": {"centAmount": 1500, "currencyCode": "EUR"}},
			"totalPrice": {"centAmount": 3000, "currencyCode": "EUR"},
			"custom": {"fields": {"gift-wrap": true}}
		},
		{
			"id": "li-2",
			"productId": "p-2",
			"name": {"en-US": "Sock"},
			"variant": {"id": 2, "sku": "SOCK-1"},
			"quantity": 1,
			"totalPrice": {"centAmount": 1250, "currencyCode": "EUR"},
			"categories": [{"typeId": "category", "id": "c-socks"}]
		}
	]
}`

func TestGetFieldValue(t *testing.T) {
	cart, err := ParseCart([]byte(cartJSON))
	if err != nil {
		t.Fatalf("ParseCart() error = %v", err)
	}

	top := NewEvaluationContext(cart, nil)
	first := top.withLineItem(&cart.LineItems[0])
	second := top.withLineItem(&cart.LineItems[1])

	tests := []struct {
		name string
		path string
		ec   *EvaluationContext
		want any
	}{
		{"cart field", "country", top, "DE"},
		{"unmodelled cart field", "shippingAddress.city", top, "Wien"},
		{"cart custom field", "custom.fields.loyalty", top, "gold"},
		{"customer group key", "customer.customerGroup.key", top, "vip"},
		{"customer group id", "customer.customerGroup.id", top, "cg-1"},
		{"cart total is money", "totalPrice", top, Money{Type: "centPrecision", CentAmount: 4250, CurrencyCode: "EUR", FractionDigits: 2}},
		{"missing intermediate", "billingAddress.country", top, nil},
		{"scalar intermediate", "country.code", top, nil},
		{"line item sku", "sku", first, "SHOE-1"},
		{"line item quantity", "quantity", first, 2.0},
		{"line item name", "name.en", first, "Trail Shoe"},
		{"line item price", "price.value.centAmount", first, 1500.0},
		{"backtick segment", "custom.fields.`gift-wrap`", first, true},
		{"variant categories", "categories.id", first, []any{"from-variant"}},
		{"line item categories", "categories.id", second, []any{"c-socks"}},
		{"non line item field inside a line item", "country", first, "DE"},
		{"line item total", "totalPrice.centAmount", second, 1250.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetFieldValue(tt.path, tt.ec); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GetFieldValue(%q) = %#v, want %#v", tt.path, got, tt.want)
			}
		})
	}
}

func TestGetFieldValueTypedCart(t *testing.T) {
	item := lineItem("li-1", "ABC", 1, 100)
	item.Variant = nil
	cart := cartWith(100, item)
	ec := NewEvaluationContext(cart, nil).withLineItem(&cart.LineItems[0])

	if got := GetFieldValue("sku", ec); got != nil {
		t.Errorf("GetFieldValue(sku) without variant = %#v, want nil", got)
	}
	if got := GetFieldValue("categories.id", ec); !reflect.DeepEqual(got, []any{}) {
		t.Errorf("GetFieldValue(categories.id) without categories = %#v, want empty list", got)
	}
	if got := GetFieldValue("productId", ec); got != "product-li-1" {
		t.Errorf("GetFieldValue(productId) = %#v, want product-li-1", got)
	}
	if got := GetFieldValue("customer.customerGroup.key", NewEvaluationContext(cart, nil)); got != nil {
		t.Errorf("GetFieldValue(customer group) without group = %#v, want nil", got)
	}
}

func TestGetFieldValueEmptyStringsAreAbsent(t *testing.T) {
	cart, err := ParseCart([]byte(`{
		"customerGroup": {"typeId": "customer-group"},
		"lineItems": [{"id": "li-1", "variant": {"id": 1}, "quantity": 1}]
	}`))
	if err != nil {
		t.Fatalf("ParseCart() error = %v", err)
	}
	top := NewEvaluationContext(cart, nil)
	item := top.withLineItem(&cart.LineItems[0])

	tests := []struct {
		name string
		path string
		ec   *EvaluationContext
	}{
		{"variant without sku", "sku", item},
		{"customer group without key", "customer.customerGroup.key", top},
		{"customer group without id", "customer.customerGroup.id", top},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetFieldValue(tt.path, tt.ec); got != nil {
				t.Errorf("GetFieldValue(%q) = %#v, want nil", tt.path, got)
			}
		})
	}
}

func TestCartCurrencyCode(t *testing.T) {
	cart, err := ParseCart([]byte(cartJSON))
	if err != nil {
		t.Fatalf("ParseCart() error = %v", err)
	}
	if got := NewEvaluationContext(cart, nil).CurrencyCode; got != "EUR" {
		t.Errorf("CurrencyCode = %q, want EUR", got)
	}
	if got := NewEvaluationContext(&Cart{}, nil).CurrencyCode; got != "USD" {
		t.Errorf("CurrencyCode without total = %q, want USD", got)
	}
	if got := cart.LineItems[1].LocalizedName(); got != "Sock" {
		t.Errorf("LocalizedName() = %q, want Sock", got)
	}
}

func TestLineItemTotals(t *testing.T) {
	a := lineItem("a", "A", 2, 1190)
	b := lineItem("b", "B", 1, 500)
	b.TaxedPrice = nil
	items := []*LineItem{&a, &b}

	if got := CalculateLineItemsTotal(items, TotalGross); got != 2380+500 {
		t.Errorf("gross total = %d, want %d", got, 2380+500)
	}
	if got := CalculateLineItemsTotal(items, TotalNet); got != 2000+500 {
		t.Errorf("net total = %d, want %d", got, 2000+500)
	}
	if got := CalculateLineItemsTotal(items, TotalPlain); got != 2380+500 {
		t.Errorf("total = %d, want %d", got, 2380+500)
	}
	if got := CountLineItemsQuantity(items); got != 3 {
		t.Errorf("quantity = %d, want 3", got)
	}
}
