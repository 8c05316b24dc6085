// Package predicate models commercetools cart predicates as an abstract syntax
// tree and converts between that tree and the predicate text form.
package predicate

// Kind discriminates the node variants of a predicate tree
type Kind string

const (
	KindLogical   Kind = "logical"
	KindCondition Kind = "condition"
)

// TargetKind discriminates the left-hand operand of a condition
type TargetKind string

const (
	TargetField    TargetKind = "predicateField"
	TargetConstant TargetKind = "predicateConstant"
	TargetFunction TargetKind = "functionApplication"
)

// LogicalOp is the connective of a logical node
type LogicalOp string

const (
	And LogicalOp = "and"
	Or  LogicalOp = "or"
)

// Value types recorded on conditions and constants
const (
	ValueTypeString  = "string"
	ValueTypeNumber  = "number"
	ValueTypeBoolean = "boolean"
)

// Line item function names
const (
	FuncLineItemCount      = "lineItemCount"
	FuncLineItemTotal      = "lineItemTotal"
	FuncLineItemNetTotal   = "lineItemNetTotal"
	FuncLineItemGrossTotal = "lineItemGrossTotal"
	FuncLineItemExists     = "lineItemExists"
	FuncForAllLineItems    = "forAllLineItems"
)

// Custom line item function names
const (
	FuncCustomLineItemExists     = "customLineItemExists"
	FuncCustomLineItemCount      = "customLineItemCount"
	FuncCustomLineItemTotal      = "customLineItemTotal"
	FuncCustomLineItemGrossTotal = "customLineItemGrossTotal"
	FuncCustomLineItemNetTotal   = "customLineItemNetTotal"
)

// LineItemFunctions lists the functions iterating over cart line items
var LineItemFunctions = []string{
	FuncLineItemCount,
	FuncLineItemTotal,
	FuncLineItemNetTotal,
	FuncLineItemGrossTotal,
	FuncLineItemExists,
	FuncForAllLineItems,
}

// CustomLineItemFunctions lists the functions iterating over custom line items
var CustomLineItemFunctions = []string{
	FuncCustomLineItemExists,
	FuncCustomLineItemCount,
	FuncCustomLineItemTotal,
	FuncCustomLineItemGrossTotal,
	FuncCustomLineItemNetTotal,
}

// IsCustomLineItemFunction reports whether name belongs to the custom line item family
func IsCustomLineItemFunction(name string) bool {
	for _, fn := range CustomLineItemFunctions {
		if fn == name {
			return true
		}
	}
	return false
}

// Node is a predicate tree node. The variants are *Logical, *Condition and *Unknown.
type Node interface {
	Kind() Kind
	node()
}

// Logical combines child nodes with and/or, optionally negated
type Logical struct {
	Logical    LogicalOp
	IsNegated  bool
	Conditions []Node
}

// Condition compares a target against a value
type Condition struct {
	Target    Target
	Operator  string // empty when the predicate omitted it
	Value     any    // string, float64, bool, []any of those, or nil
	ValueType string
}

// Unknown stands in for a node whose kind is not recognised.
// It is only produced when decoding trees from JSON.
type Unknown struct {
	RawKind string
}

func (*Logical) Kind() Kind   { return KindLogical }
func (*Condition) Kind() Kind { return KindCondition }
func (u *Unknown) Kind() Kind { return Kind(u.RawKind) }

func (*Logical) node()   {}
func (*Condition) node() {}
func (*Unknown) node()   {}

// Target is the left-hand operand of a condition.
// The variants are *FieldTarget, *ConstantTarget and *FunctionTarget.
type Target interface {
	TargetKind() TargetKind
	target()
}

// FieldTarget names a dotted field path such as `shippingAddress.country`
type FieldTarget struct {
	Name string
}

// ConstantTarget is a literal on the left-hand side, as in `1 = 1`
type ConstantTarget struct {
	Value *ConstantValue
}

// ConstantValue holds a typed literal
type ConstantValue struct {
	Type  string
	Value any
}

// FunctionTarget applies a line item function to its predicate arguments
type FunctionTarget struct {
	Name string
	Args []Node
}

func (*FieldTarget) TargetKind() TargetKind    { return TargetField }
func (*ConstantTarget) TargetKind() TargetKind { return TargetConstant }
func (*FunctionTarget) TargetKind() TargetKind { return TargetFunction }

func (*FieldTarget) target()    {}
func (*ConstantTarget) target() {}
func (*FunctionTarget) target() {}

// NewField builds a condition over a field path
func NewField(name, operator string, value any) *Condition {
	return &Condition{
		Target:    &FieldTarget{Name: name},
		Operator:  operator,
		Value:     value,
		ValueType: valueTypeOf(value),
	}
}

// NewFunction builds a condition applying fn to inner and comparing the outcome with value
func NewFunction(fn string, inner Node, operator string, value any) *Condition {
	return &Condition{
		Target:    &FunctionTarget{Name: fn, Args: []Node{inner}},
		Operator:  operator,
		Value:     value,
		ValueType: valueTypeOf(value),
	}
}

// NewConstant builds a condition with a literal on the left-hand side
func NewConstant(literal any, operator string, value any) *Condition {
	return &Condition{
		Target:    &ConstantTarget{Value: &ConstantValue{Type: valueTypeOf(literal), Value: literal}},
		Operator:  operator,
		Value:     value,
		ValueType: valueTypeOf(value),
	}
}

// NewLogical builds an and/or node
func NewLogical(op LogicalOp, conditions ...Node) *Logical {
	return &Logical{Logical: op, Conditions: conditions}
}

// Not builds a negated group around conditions joined by and
func Not(conditions ...Node) *Logical {
	return &Logical{Logical: And, IsNegated: true, Conditions: conditions}
}

// valueTypeOf derives the value type hint of a literal or list of literals
func valueTypeOf(v any) string {
	switch val := v.(type) {
	case string:
		return ValueTypeString
	case float64, int, int64:
		return ValueTypeNumber
	case bool:
		return ValueTypeBoolean
	case []any:
		if len(val) > 0 {
			return valueTypeOf(val[0])
		}
	}
	return ""
}
