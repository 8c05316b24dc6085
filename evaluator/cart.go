package evaluator

import (
	"encoding/json"
	"fmt"
)

// Money is a commercetools money value in minor units
type Money struct {
	Type           string `json:"type,omitempty"`
	CentAmount     int64  `json:"centAmount"`
	CurrencyCode   string `json:"currencyCode"`
	FractionDigits int    `json:"fractionDigits,omitempty"`
}

// Reference points at another commercetools resource
type Reference struct {
	TypeID string `json:"typeId,omitempty"`
	ID     string `json:"id"`
	Key    string `json:"key,omitempty"`
}

// LocalizedString maps locales to text
type LocalizedString map[string]string

// CustomFields holds the custom type and field values of a resource
type CustomFields struct {
	Type   *Reference     `json:"type,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Variant is the product variant bought by a line item
type Variant struct {
	ID         int64       `json:"id"`
	SKU        string      `json:"sku,omitempty"`
	Key        string      `json:"key,omitempty"`
	Categories []Reference `json:"categories,omitempty"`
}

// Price is the unit price of a line item
type Price struct {
	ID    string `json:"id,omitempty"`
	Value Money  `json:"value"`
}

// TaxedItemPrice holds the taxed totals of a line item
type TaxedItemPrice struct {
	TotalNet   *Money `json:"totalNet,omitempty"`
	TotalGross *Money `json:"totalGross,omitempty"`
}

// LineItem is a product line of a cart
type LineItem struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId,omitempty"`
	ProductKey string          `json:"productKey,omitempty"`
	Name       LocalizedString `json:"name,omitempty"`
	Variant    *Variant        `json:"variant,omitempty"`
	Price      *Price          `json:"price,omitempty"`
	Quantity   int64           `json:"quantity"`
	TotalPrice Money           `json:"totalPrice"`
	TaxedPrice *TaxedItemPrice `json:"taxedPrice,omitempty"`
	Categories []Reference     `json:"categories,omitempty"`
	Custom     *CustomFields   `json:"custom,omitempty"`

	// Raw is the decoded JSON document, including fields not modelled above
	Raw map[string]any `json:"-"`
}

// Cart is a read-only snapshot of a commercetools cart
type Cart struct {
	ID            string        `json:"id"`
	TotalPrice    *Money        `json:"totalPrice,omitempty"`
	LineItems     []LineItem    `json:"lineItems"`
	CustomerGroup *Reference    `json:"customerGroup,omitempty"`
	Country       string        `json:"country,omitempty"`
	Custom        *CustomFields `json:"custom,omitempty"`

	// Raw is the decoded JSON document, including fields not modelled above
	Raw map[string]any `json:"-"`
}

// UnmarshalJSON decodes the typed fields and keeps the full document in Raw
func (c *Cart) UnmarshalJSON(data []byte) error {
	type plain Cart
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &p.Raw); err != nil {
		return err
	}
	*c = Cart(p)
	return nil
}

// UnmarshalJSON decodes the typed fields and keeps the full document in Raw
func (li *LineItem) UnmarshalJSON(data []byte) error {
	type plain LineItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &p.Raw); err != nil {
		return err
	}
	*li = LineItem(p)
	return nil
}

// ParseCart decodes a cart snapshot
func ParseCart(data []byte) (*Cart, error) {
	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return &cart, nil
}

// CurrencyCode returns the currency of the cart total, defaulting to USD
func (c *Cart) CurrencyCode() string {
	if c != nil && c.TotalPrice != nil && c.TotalPrice.CurrencyCode != "" {
		return c.TotalPrice.CurrencyCode
	}
	return "USD"
}

// LocalizedName returns the English name of a line item, if it has one
func (li *LineItem) LocalizedName() string {
	for _, locale := range []string{"en", "en-US"} {
		if name := li.Name[locale]; name != "" {
			return name
		}
	}
	return ""
}

// SKU returns the variant SKU, or "" when the variant is absent
func (li *LineItem) SKU() string {
	if li.Variant == nil {
		return ""
	}
	return li.Variant.SKU
}

// document returns v as a generic JSON object for path navigation
func document(raw map[string]any, v any) map[string]any {
	if raw != nil {
		return raw
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return doc
}
