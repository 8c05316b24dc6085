// Package evaluator previews commercetools cart discount predicates against a cart.
//
// Evaluation walks a predicate tree and classifies the cart as QUALIFIED,
// PENDING, NOT_APPLICABLE or UNKNOWN for each node, attaching progress
// figures and a message describing what is still missing. Only the optional
// category resolver may block; everything else is a pure function of the
// tree and the cart.
package evaluator

import (
	"context"
	"errors"
	"strings"

	"github.com/liamcoop/cartrules/predicate"
)

// CategoryResolver maps a category id to its display name.
// It returns "" when it has no mapping and must not fail.
type CategoryResolver func(ctx context.Context, categoryID string) string

// Options configures EvaluatePredicate
type Options struct {
	CategoryResolver CategoryResolver
	// Parser overrides predicate.DefaultParser
	Parser predicate.Parser
}

// EvaluationContext is the state a node is evaluated in
type EvaluationContext struct {
	Cart             *Cart
	LineItem         *LineItem // bound only while a line item function iterates
	CategoryResolver CategoryResolver
	CurrencyCode     string

	docs *documentCache
}

// documentCache holds generic JSON views of the cart, shared by every
// context derived from one evaluation
type documentCache struct {
	cart      map[string]any
	lineItems map[*LineItem]map[string]any
}

// NewEvaluationContext builds the top-level context for cart
func NewEvaluationContext(cart *Cart, resolver CategoryResolver) *EvaluationContext {
	if cart == nil {
		cart = &Cart{}
	}
	return &EvaluationContext{
		Cart:             cart,
		CategoryResolver: resolver,
		CurrencyCode:     cart.CurrencyCode(),
		docs:             &documentCache{lineItems: make(map[*LineItem]map[string]any)},
	}
}

// withLineItem returns a copy of ec with li bound
func (ec *EvaluationContext) withLineItem(li *LineItem) *EvaluationContext {
	next := *ec
	next.LineItem = li
	return &next
}

func (ec *EvaluationContext) cartDocument() map[string]any {
	if ec.docs == nil {
		return document(ec.Cart.Raw, ec.Cart)
	}
	if ec.docs.cart == nil {
		ec.docs.cart = document(ec.Cart.Raw, ec.Cart)
	}
	return ec.docs.cart
}

func (ec *EvaluationContext) lineItemDocument(li *LineItem) map[string]any {
	if ec.docs == nil {
		return document(li.Raw, li)
	}
	doc, ok := ec.docs.lineItems[li]
	if !ok {
		doc = document(li.Raw, li)
		ec.docs.lineItems[li] = doc
	}
	return doc
}

// resolveCategory asks the resolver for a category name, "" when there is none
func (ec *EvaluationContext) resolveCategory(ctx context.Context, id string) string {
	if ec.CategoryResolver == nil || id == "" {
		return ""
	}
	return ec.CategoryResolver(ctx, id)
}

// EmptyResult is the result for a discount without a predicate
func EmptyResult() *Result {
	return &Result{
		IsApplicable:         true,
		Type:                 TypeEmpty,
		QualificationStatus:  StatusQualified,
		QualificationMessage: "No predicate specified",
	}
}

// ParseErrorResult is the result for a predicate that failed to parse
func ParseErrorResult(err error) *Result {
	return unknownResult(TypeParseError, "Failed to parse predicate: "+err.Error())
}

// EvaluatePredicate parses input and evaluates it against cart.
// A blank predicate qualifies; a syntax error yields a PARSE_ERROR result.
// opts may be nil.
func EvaluatePredicate(ctx context.Context, input string, cart *Cart, opts *Options) *Result {
	if strings.TrimSpace(input) == "" {
		return EmptyResult()
	}

	parser := predicate.DefaultParser
	if opts != nil && opts.Parser != nil {
		parser = opts.Parser
	}

	node, err := parser.Parse(input)
	if err != nil {
		if errors.Is(err, predicate.ErrEmptyPredicate) {
			return EmptyResult()
		}
		return ParseErrorResult(err)
	}
	if node == nil {
		return EmptyResult()
	}

	return EvaluateNode(ctx, node, cart, opts)
}

// EvaluateNode evaluates an already parsed predicate against cart. opts may be nil.
func EvaluateNode(ctx context.Context, node predicate.Node, cart *Cart, opts *Options) *Result {
	var resolver CategoryResolver
	if opts != nil {
		resolver = opts.CategoryResolver
	}
	return evaluateNode(ctx, node, NewEvaluationContext(cart, resolver))
}

// evaluateNode dispatches on the node variant
func evaluateNode(ctx context.Context, node predicate.Node, ec *EvaluationContext) *Result {
	switch n := node.(type) {
	case *predicate.Logical:
		if n != nil {
			return evaluateLogical(ctx, n, ec)
		}
	case *predicate.Condition:
		if n != nil {
			return evaluateCondition(ctx, n, ec)
		}
	}
	return unknownResult(TypeUnknown, "Unable to evaluate predicate node")
}
