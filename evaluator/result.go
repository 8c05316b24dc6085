package evaluator

// Status classifies how a cart relates to a predicate
type Status string

const (
	// StatusQualified means the predicate holds
	StatusQualified Status = "QUALIFIED"
	// StatusPending means the predicate does not hold yet but the cart can still change to meet it
	StatusPending Status = "PENDING"
	// StatusNotApplicable means the cart can never meet the predicate
	StatusNotApplicable Status = "NOT_APPLICABLE"
	// StatusUnknown means the predicate could not be evaluated
	StatusUnknown Status = "UNKNOWN"
)

// ResultType identifies the kind of requirement a result describes
type ResultType string

const (
	TypeTotalPrice             ResultType = "TOTAL_PRICE"
	TypeCategoryGrossTotal     ResultType = "CATEGORY_GROSS_TOTAL"
	TypeCategoryNetTotal       ResultType = "CATEGORY_NET_TOTAL"
	TypeCategoryCount          ResultType = "CATEGORY_COUNT"
	TypeCategoryExists         ResultType = "CATEGORY_EXISTS"
	TypeSKUCount               ResultType = "SKU_COUNT"
	TypeLineItemExists         ResultType = "LINE_ITEM_EXISTS"
	TypeCustomerGroup          ResultType = "CUSTOMER_GROUP"
	TypeCombined               ResultType = "COMBINED"
	TypeConstant               ResultType = "CONSTANT"
	TypeField                  ResultType = "FIELD"
	TypeForAllLineItems        ResultType = "FOR_ALL_LINE_ITEMS"
	TypeFunction               ResultType = "FUNCTION"
	TypeCustomLineItemFunction ResultType = "CUSTOM_LINE_ITEM_FUNCTION"
	TypeUnknownFunction        ResultType = "UNKNOWN_FUNCTION"
	TypeUnknown                ResultType = "UNKNOWN"
	TypeParseError             ResultType = "PARSE_ERROR"
	TypeEmpty                  ResultType = "EMPTY"
)

// Result is the outcome of evaluating a predicate, or part of one, against a cart.
// Amounts are in main currency units; optional fields are nil or empty when not applicable.
type Result struct {
	IsApplicable         bool       `json:"isApplicable"`
	Type                 ResultType `json:"type"`
	QualificationStatus  Status     `json:"qualificationStatus"`
	QualificationMessage string     `json:"qualificationMessage,omitempty"`

	CurrentAmount   *float64 `json:"currentAmount,omitempty"`
	RequiredAmount  *float64 `json:"requiredAmount,omitempty"`
	RemainingAmount *float64 `json:"remainingAmount,omitempty"`

	CurrentCount   *int64 `json:"currentCount,omitempty"`
	RequiredCount  *int64 `json:"requiredCount,omitempty"`
	RemainingCount *int64 `json:"remainingCount,omitempty"`

	CategoryName  string   `json:"categoryName,omitempty"`
	CategoryNames string   `json:"categoryNames,omitempty"`
	CategoryIDs   []string `json:"categoryIds,omitempty"`

	ProductName string `json:"productName,omitempty"`
	SKU         string `json:"sku,omitempty"`

	QualifiedConditions []string  `json:"qualifiedConditions,omitempty"`
	PendingConditions   []string  `json:"pendingConditions,omitempty"`
	Conditions          []*Result `json:"conditions,omitempty"`
}

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }

// unknownResult reports a node or target that cannot be evaluated
func unknownResult(typ ResultType, message string) *Result {
	return &Result{
		IsApplicable:         false,
		Type:                 typ,
		QualificationStatus:  StatusUnknown,
		QualificationMessage: message,
	}
}
