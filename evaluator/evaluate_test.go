package evaluator

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/liamcoop/cartrules/internal/logger"
	"github.com/liamcoop/cartrules/predicate"
)

func TestEvaluatePredicateScenarios(t *testing.T) {
	t.Run("total price qualifies", func(t *testing.T) {
		result := mustEvaluate(t, `totalPrice >= "50.00 USD"`, cartWith(6000), nil)

		if !result.IsApplicable || result.QualificationStatus != StatusQualified {
			t.Errorf("result = %v/%v, want applicable/QUALIFIED", result.IsApplicable, result.QualificationStatus)
		}
		if result.Type != TypeTotalPrice {
			t.Errorf("Type = %v, want %v", result.Type, TypeTotalPrice)
		}
		if got := floatValue(result.CurrentAmount); got != 60.0 {
			t.Errorf("CurrentAmount = %v, want 60", got)
		}
		if got := floatValue(result.RequiredAmount); got != 50.0 {
			t.Errorf("RequiredAmount = %v, want 50", got)
		}
		if result.RemainingAmount != nil {
			t.Errorf("RemainingAmount = %v, want nil", *result.RemainingAmount)
		}
	})

	t.Run("total price pending", func(t *testing.T) {
		result := mustEvaluate(t, `totalPrice >= "50.00 USD"`, cartWith(3000), nil)

		if result.IsApplicable || result.QualificationStatus != StatusPending {
			t.Errorf("result = %v/%v, want not applicable/PENDING", result.IsApplicable, result.QualificationStatus)
		}
		if got := floatValue(result.RemainingAmount); got != 20.0 {
			t.Errorf("RemainingAmount = %v, want 20", got)
		}
		if want := "Spend USD 20.00 more to qualify"; result.QualificationMessage != want {
			t.Errorf("QualificationMessage = %q, want %q", result.QualificationMessage, want)
		}
	})

	t.Run("line item count sums quantities", func(t *testing.T) {
		cart := cartWith(10000, lineItem("li-1", "ABC", 2, 1000), lineItem("li-2", "ABC", 3, 1000))
		result := mustEvaluate(t, `lineItemCount(sku = "ABC") >= 4`, cart, nil)

		if !result.IsApplicable || result.QualificationStatus != StatusQualified {
			t.Errorf("result = %v/%v, want applicable/QUALIFIED", result.IsApplicable, result.QualificationStatus)
		}
		if got := intValue(result.CurrentCount); got != int64(5) {
			t.Errorf("CurrentCount = %v, want 5", got)
		}
		if result.Type != TypeSKUCount {
			t.Errorf("Type = %v, want %v", result.Type, TypeSKUCount)
		}
		if result.SKU != "ABC" || result.ProductName != "Product ABC" {
			t.Errorf("SKU/ProductName = %q/%q, want ABC/Product ABC", result.SKU, result.ProductName)
		}
	})

	t.Run("and with a customer group condition", func(t *testing.T) {
		result := mustEvaluate(t, `customer.customerGroup.key = "vip" and totalPrice >= "10.00 USD"`, cartWith(6000), nil)

		if result.IsApplicable || result.QualificationStatus != StatusNotApplicable {
			t.Errorf("result = %v/%v, want not applicable/NOT_APPLICABLE", result.IsApplicable, result.QualificationStatus)
		}
		if len(result.Conditions) != 2 || result.Conditions[0].Type != TypeCustomerGroup {
			t.Fatalf("Conditions = %+v, want customer group first", result.Conditions)
		}
		if result.Conditions[1].QualificationStatus != StatusQualified {
			t.Errorf("second condition = %v, want QUALIFIED", result.Conditions[1].QualificationStatus)
		}
	})

	t.Run("empty predicate", func(t *testing.T) {
		for _, input := range []string{"", "  \n"} {
			result := EvaluatePredicate(context.Background(), input, cartWith(0), nil)
			if !result.IsApplicable || result.Type != TypeEmpty || result.QualificationStatus != StatusQualified {
				t.Errorf("EvaluatePredicate(%q) = %+v, want EMPTY/QUALIFIED", input, result)
			}
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		result := EvaluatePredicate(context.Background(), `totalPrice >=`, cartWith(0), nil)

		if result.IsApplicable || result.Type != TypeParseError || result.QualificationStatus != StatusUnknown {
			t.Errorf("result = %+v, want PARSE_ERROR/UNKNOWN", result)
		}
		if !strings.HasPrefix(result.QualificationMessage, "Failed to parse predicate: ") {
			t.Errorf("QualificationMessage = %q", result.QualificationMessage)
		}
	})
}

func TestEvaluatePredicate(t *testing.T) {
	categories := staticResolver(map[string]string{"c1": "Shoes", "c2": "Shirts"})
	shoe := lineItem("li-1", "SHOE", 1, 3000, "c1")
	shirt := lineItem("li-2", "SHIRT", 2, 2500, "c2")
	taxed := lineItem("li-3", "TAXED", 1, 11900)
	noSKU := lineItem("li-4", "", 1, 1000)

	tests := []struct {
		name        string
		input       string
		cart        *Cart
		wantApplies bool
		wantStatus  Status
		wantType    ResultType
		wantMessage string
	}{
		{
			name:        "field matches",
			input:       `country = "DE"`,
			cart:        cartWith(0),
			wantApplies: true,
			wantStatus:  StatusQualified,
			wantType:    TypeField,
		},
		{
			name:        "field does not match",
			input:       `country = "FR"`,
			cart:        cartWith(0),
			wantStatus:  StatusPending,
			wantType:    TypeField,
			wantMessage: "Field country does not match required value",
		},
		{
			name:        "constant true",
			input:       `true = true`,
			cart:        cartWith(0),
			wantApplies: true,
			wantStatus:  StatusQualified,
			wantType:    TypeConstant,
		},
		{
			name:       "constant false is final",
			input:      `1 = 2`,
			cart:       cartWith(0),
			wantStatus: StatusNotApplicable,
			wantType:   TypeConstant,
		},
		{
			name:        "cart without total",
			input:       `totalPrice > "1.00 USD"`,
			cart:        &Cart{},
			wantStatus:  StatusPending,
			wantType:    TypeTotalPrice,
			wantMessage: "Cart has no total price",
		},
		{
			name:        "unparseable required total",
			input:       `totalPrice > "much"`,
			cart:        cartWith(100),
			wantStatus:  StatusUnknown,
			wantType:    TypeTotalPrice,
			wantMessage: "Could not parse required price value",
		},
		{
			name:        "category count pending",
			input:       `lineItemCount(categories.id contains "c1") >= 3`,
			cart:        cartWith(0, shoe, shirt),
			wantStatus:  StatusPending,
			wantType:    TypeCategoryCount,
			wantMessage: "Add 2 more items from Shoes to qualify",
		},
		{
			name:        "single unit pending",
			input:       `lineItemCount(sku = "SHOE") >= 2`,
			cart:        cartWith(0, shoe),
			wantStatus:  StatusPending,
			wantType:    TypeSKUCount,
			wantMessage: "Add 1 more unit of Product SHOE to qualify",
		},
		{
			name:        "gross total over categories",
			input:       `lineItemTotal(categories.id contains any ("c1", "c2")) >= "100.00 USD"`,
			cart:        cartWith(0, shoe, shirt),
			wantStatus:  StatusPending,
			wantType:    TypeCategoryGrossTotal,
			wantMessage: "Spend USD 20.00 more on Shoes or Shirts products to qualify",
		},
		{
			name:        "gross total qualifies",
			input:       `lineItemGrossTotal(categories.id contains "c2") > "40.00 USD"`,
			cart:        cartWith(0, shoe, shirt),
			wantApplies: true,
			wantStatus:  StatusQualified,
			wantType:    TypeCategoryGrossTotal,
		},
		{
			name:        "net total qualifies",
			input:       `lineItemNetTotal(sku = "TAXED") >= "100.00 USD"`,
			cart:        cartWith(0, taxed),
			wantApplies: true,
			wantStatus:  StatusQualified,
			wantType:    TypeCategoryNetTotal,
		},
		{
			name:        "net total pending",
			input:       `lineItemNetTotal(sku = "TAXED") >= "150.00 USD"`,
			cart:        cartWith(11900, taxed),
			wantStatus:  StatusPending,
			wantType:    TypeCategoryNetTotal,
			wantMessage: "Spend USD 50.00 more to qualify",
		},
		{
			name:        "unparseable line item total",
			input:       `lineItemTotal(sku = "SHOE") > "plenty"`,
			cart:        cartWith(0, shoe),
			wantStatus:  StatusUnknown,
			wantType:    TypeCategoryGrossTotal,
			wantMessage: "Could not parse required amount plenty",
		},
		{
			name:        "line item exists",
			input:       `lineItemExists(sku = "SHOE") = true`,
			cart:        cartWith(0, shoe),
			wantApplies: true,
			wantStatus:  StatusQualified,
			wantType:    TypeLineItemExists,
			wantMessage: "Required product found in cart",
		},
		{
			name:        "line item missing",
			input:       `lineItemExists(sku = "SHOE") = true`,
			cart:        cartWith(0, shirt),
			wantStatus:  StatusPending,
			wantType:    TypeLineItemExists,
			wantMessage: "Add required product to cart to qualify",
		},
		{
			name:        "line item absent as required",
			input:       `lineItemExists(sku = "SHOE") = false`,
			cart:        cartWith(0, shirt),
			wantApplies: true,
			wantStatus:  StatusQualified,
			wantType:    TypeLineItemExists,
		},
		{
			name:        "excluded line item present",
			input:       `lineItemExists(sku = "SHOE") = false`,
			cart:        cartWith(0, shoe),
			wantStatus:  StatusPending,
			wantType:    TypeLineItemExists,
			wantMessage: "Remove excluded product from cart to qualify",
		},
		{
			name:        "line item without sku is not defined",
			input:       `lineItemExists(sku is not defined) = true`,
			cart:        cartWith(0, noSKU),
			wantApplies: true,
			wantStatus:  StatusQualified,
			wantType:    TypeLineItemExists,
			wantMessage: "Required product found in cart",
		},
		{
			name:        "line item without sku is not defined as sku",
			input:       `lineItemExists(sku is defined) = true`,
			cart:        cartWith(0, noSKU),
			wantStatus:  StatusPending,
			wantType:    TypeLineItemExists,
			wantMessage: "Add required product to cart to qualify",
		},
		{
			name:        "empty sku does not equal empty string",
			input:       `lineItemExists(sku = "") = true`,
			cart:        cartWith(0, noSKU),
			wantStatus:  StatusPending,
			wantType:    TypeLineItemExists,
			wantMessage: "Add required product to cart to qualify",
		},
		{
			name:        "category exists pending",
			input:       `lineItemExists(categories.id contains "c1") = true`,
			cart:        cartWith(0, shirt),
			wantStatus:  StatusPending,
			wantType:    TypeCategoryExists,
			wantMessage: "Add any item from Shoes category to qualify",
		},
		{
			name:        "for all on empty cart",
			input:       `forAllLineItems(quantity >= 1) = true`,
			cart:        cartWith(0),
			wantStatus:  StatusPending,
			wantType:    TypeForAllLineItems,
			wantMessage: "Cart has no line items",
		},
		{
			name:        "for all matching",
			input:       `forAllLineItems(quantity >= 1) = true`,
			cart:        cartWith(0, shoe, shirt),
			wantApplies: true,
			wantStatus:  StatusQualified,
			wantType:    TypeForAllLineItems,
		},
		{
			name:        "for all with one mismatch",
			input:       `forAllLineItems(quantity >= 2) = true`,
			cart:        cartWith(0, shoe, shirt),
			wantStatus:  StatusPending,
			wantType:    TypeForAllLineItems,
			wantMessage: "Not all line items match the required condition",
		},
		{
			name:        "custom line item function",
			input:       `customLineItemCount(slug = "fee") > 0`,
			cart:        cartWith(0),
			wantStatus:  StatusUnknown,
			wantType:    TypeCustomLineItemFunction,
			wantMessage: "Custom line item functions not fully supported",
		},
		{
			name:        "unknown function",
			input:       `lineItemWeight(sku = "A") > 1`,
			cart:        cartWith(0),
			wantStatus:  StatusUnknown,
			wantType:    TypeUnknownFunction,
			wantMessage: "Unknown function: lineItemWeight",
		},
		{
			name:        "function without arguments",
			input:       `lineItemCount() > 1`,
			cart:        cartWith(0),
			wantStatus:  StatusUnknown,
			wantType:    TypeFunction,
			wantMessage: "Function lineItemCount has no arguments",
		},
		{
			name:        "line item total price inside a function",
			input:       `lineItemExists(totalPrice >= "50.00 USD") = true`,
			cart:        cartWith(100000, shoe, shirt),
			wantApplies: true,
			wantStatus:  StatusQualified,
			wantType:    TypeLineItemExists,
			wantMessage: "Required product found in cart",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mustEvaluate(t, tt.input, tt.cart, &Options{CategoryResolver: categories})

			if result.IsApplicable != tt.wantApplies {
				t.Errorf("IsApplicable = %v, want %v", result.IsApplicable, tt.wantApplies)
			}
			if result.QualificationStatus != tt.wantStatus {
				t.Errorf("QualificationStatus = %v, want %v", result.QualificationStatus, tt.wantStatus)
			}
			if result.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", result.Type, tt.wantType)
			}
			if result.QualificationMessage != tt.wantMessage {
				t.Errorf("QualificationMessage = %q, want %q", result.QualificationMessage, tt.wantMessage)
			}
		})
	}
}

func TestCombinedMessages(t *testing.T) {
	cart := cartWith(3000, lineItem("li-1", "ABC", 1, 3000))

	result := mustEvaluate(t, `totalPrice >= "50.00 USD" and lineItemCount(sku = "ABC") >= 4`, cart, nil)

	if result.Type != TypeCombined || result.QualificationStatus != StatusPending {
		t.Fatalf("result = %v/%v, want COMBINED/PENDING", result.Type, result.QualificationStatus)
	}
	want := "Requirements needed: Spend USD 20.00 more to qualify and Add 3 more units of Product ABC to qualify"
	if result.QualificationMessage != want {
		t.Errorf("QualificationMessage = %q, want %q", result.QualificationMessage, want)
	}
	if len(result.PendingConditions) != 2 || len(result.QualifiedConditions) != 0 {
		t.Errorf("pending/qualified = %v/%v, want 2/0", result.PendingConditions, result.QualifiedConditions)
	}

	result = mustEvaluate(t, `country = "FR" or totalPrice >= "10.00 USD"`, cart, nil)
	if !result.IsApplicable || result.QualificationStatus != StatusQualified {
		t.Fatalf("result = %v/%v, want applicable/QUALIFIED", result.IsApplicable, result.QualificationStatus)
	}
	if len(result.QualifiedConditions) != 1 || result.QualifiedConditions[0] != "Cart total meets the minimum amount requirement" {
		t.Errorf("QualifiedConditions = %v", result.QualifiedConditions)
	}
	if result.QualificationMessage != "Requirements needed: Field country does not match required value" {
		t.Errorf("QualificationMessage = %q", result.QualificationMessage)
	}
}

func TestOrStatuses(t *testing.T) {
	tests := []struct {
		input      string
		wantStatus Status
	}{
		{`customer.customerGroup.key = "a" or 1 = 2`, StatusNotApplicable},
		{`customer.customerGroup.key = "a" or country = "FR"`, StatusPending},
		{`customer.customerGroup.key = "a" or country = "DE"`, StatusQualified},
	}

	for _, tt := range tests {
		result := mustEvaluate(t, tt.input, cartWith(0), nil)
		if result.QualificationStatus != tt.wantStatus {
			t.Errorf("%s: QualificationStatus = %v, want %v", tt.input, result.QualificationStatus, tt.wantStatus)
		}
	}
}

// Negation leaves PENDING and UNKNOWN untouched while still flipping applicability.
func TestNegationKeepsPending(t *testing.T) {
	result := mustEvaluate(t, `not(country = "FR")`, cartWith(0), nil)

	if !result.IsApplicable {
		t.Errorf("IsApplicable = false, want true")
	}
	if result.QualificationStatus != StatusPending {
		t.Errorf("QualificationStatus = %v, want PENDING", result.QualificationStatus)
	}

	result = mustEvaluate(t, `not(lineItemWeight(sku = "A") > 1)`, cartWith(0), nil)
	if !result.IsApplicable || result.QualificationStatus != StatusUnknown {
		t.Errorf("result = %v/%v, want applicable/UNKNOWN", result.IsApplicable, result.QualificationStatus)
	}
}

func TestEvaluateNodeMalformed(t *testing.T) {
	ctx := context.Background()

	result := EvaluateNode(ctx, &predicate.Unknown{RawKind: "mystery"}, cartWith(0), nil)
	if result.Type != TypeUnknown || result.QualificationStatus != StatusUnknown {
		t.Errorf("unknown node = %v/%v, want UNKNOWN/UNKNOWN", result.Type, result.QualificationStatus)
	}

	result = EvaluateNode(ctx, &predicate.Condition{Operator: "="}, cartWith(0), nil)
	if result.QualificationMessage != "Unable to evaluate condition" {
		t.Errorf("missing target message = %q", result.QualificationMessage)
	}

	before := logger.UnknownOperators.Load()
	result = EvaluateNode(ctx, predicate.NewField("country", "like", "D%"), cartWith(0), nil)
	if result.IsApplicable || result.QualificationStatus != StatusPending {
		t.Errorf("unknown operator = %v/%v, want not applicable/PENDING", result.IsApplicable, result.QualificationStatus)
	}
	if logger.UnknownOperators.Load() != before+1 {
		t.Errorf("unknown operator was not counted")
	}

	// sibling evaluation continues past an unevaluable node
	result = EvaluateNode(ctx, predicate.NewLogical(predicate.And,
		&predicate.Unknown{RawKind: "mystery"},
		predicate.NewField("country", "=", "DE"),
	), cartWith(0), nil)
	if len(result.Conditions) != 2 || !result.Conditions[1].IsApplicable {
		t.Errorf("Conditions = %+v, want second condition evaluated", result.Conditions)
	}
}

func TestCustomParser(t *testing.T) {
	calls := 0
	parser := predicate.ParserFunc(func(input string) (predicate.Node, error) {
		calls++
		return predicate.NewConstant(true, "=", true), nil
	})

	result := EvaluatePredicate(context.Background(), "anything", cartWith(0), &Options{Parser: parser})
	if calls != 1 || result.Type != TypeConstant || !result.IsApplicable {
		t.Errorf("calls = %d, result = %+v", calls, result)
	}
}

// leafCases produce every child outcome a logical node can see: QUALIFIED,
// NOT_APPLICABLE (constant and customer group), PENDING, UNKNOWN, and the
// applicable PENDING of a negated pending condition.
var leafCases = []predicate.Node{
	predicate.NewConstant(1.0, "=", 1.0),
	predicate.NewConstant(1.0, "=", 2.0),
	predicate.NewField("customer.customerGroup.id", "=", "g"),
	predicate.NewField("country", "=", "FR"),
	predicate.NewField("country", "=", "DE"),
	predicate.NewFunction("lineItemWeight", predicate.NewField("sku", "=", "A"), ">", 1.0),
	predicate.Not(predicate.NewField("country", "=", "FR")),
	predicate.NewField("totalPrice", ">=", "50.00 USD"),
}

// Property-based test: a single-child group reports its child's outcome
func TestSingleChildGroupProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	cart := cartWith(1000)

	properties.Property("and/or over one child is the identity", prop.ForAll(
		func(leaf int, useOr bool) bool {
			child := leafCases[leaf]
			op := predicate.And
			if useOr {
				op = predicate.Or
			}

			want := EvaluateNode(context.Background(), child, cart, nil)
			got := EvaluateNode(context.Background(), predicate.NewLogical(op, child), cart, nil)
			return got.IsApplicable == want.IsApplicable && got.QualificationStatus == want.QualificationStatus
		},
		gen.IntRange(0, len(leafCases)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property-based test: double negation restores applicability of settled outcomes
func TestDoubleNegationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	cart := cartWith(1000)

	properties.Property("not(not(P)) applies exactly when P applies", prop.ForAll(
		func(leaf int, wrap bool) bool {
			var node predicate.Node = leafCases[leaf]
			if wrap {
				node = predicate.NewLogical(predicate.And, node, predicate.NewConstant(true, "=", true))
			}

			inner := EvaluateNode(context.Background(), node, cart, nil)
			if inner.QualificationStatus == StatusPending || inner.QualificationStatus == StatusUnknown {
				return true
			}

			twice := EvaluateNode(context.Background(), predicate.Not(predicate.Not(node)), cart, nil)
			return twice.IsApplicable == inner.IsApplicable && twice.QualificationStatus == inner.QualificationStatus
		},
		gen.IntRange(0, len(leafCases)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
