package evaluator

// TotalKind selects which line item total is summed
type TotalKind string

const (
	TotalGross TotalKind = "gross"
	TotalNet   TotalKind = "net"
	TotalPlain TotalKind = "total"
)

// CalculateLineItemsTotal sums the chosen total of items in cents.
// Items without a taxed price contribute their totalPrice.
func CalculateLineItemsTotal(items []*LineItem, kind TotalKind) int64 {
	var sum int64
	for _, item := range items {
		switch {
		case kind == TotalGross && item.TaxedPrice != nil && item.TaxedPrice.TotalGross != nil:
			sum += item.TaxedPrice.TotalGross.CentAmount
		case kind == TotalNet && item.TaxedPrice != nil && item.TaxedPrice.TotalNet != nil:
			sum += item.TaxedPrice.TotalNet.CentAmount
		default:
			sum += item.TotalPrice.CentAmount
		}
	}
	return sum
}

// CountLineItemsQuantity sums the quantity of items
func CountLineItemsQuantity(items []*LineItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.Quantity
	}
	return sum
}
