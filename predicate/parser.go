package predicate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyPredicate is returned when parsing blank input
var ErrEmptyPredicate = errors.New("predicate is empty")

// SyntaxError reports malformed predicate text
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// Parser turns predicate text into a tree
type Parser interface {
	Parse(input string) (Node, error)
}

// ParserFunc adapts a function to the Parser interface
type ParserFunc func(input string) (Node, error)

// Parse calls f(input)
func (f ParserFunc) Parse(input string) (Node, error) {
	return f(input)
}

// DefaultParser parses the commercetools cart predicate grammar
var DefaultParser Parser = ParserFunc(Parse)

// EscapeUnsupportedChars replaces every whitespace character with a plain space
func EscapeUnsupportedChars(input string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\v', '\f', '\r', 0x85, 0xA0:
			return ' '
		}
		return r
	}, input)
}

// Parse parses a cart predicate such as
//
//	lineItemCount(sku = "ABC") >= 4 and totalPrice > "50.00 USD"
//
// `or` binds looser than `and`; chains of the same connective collapse into one node.
func Parse(input string) (Node, error) {
	safe := EscapeUnsupportedChars(input)
	if strings.TrimSpace(safe) == "" {
		return nil, ErrEmptyPredicate
	}

	tokens, err := tokenize(safe)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != tokEOF {
		return nil, p.errorf(tok, "unexpected %s %q", tok.typ, tok.text)
	}
	return node, nil
}

// IsPartialPredicate reports whether input is only a target followed by an
// operator that still needs a value, e.g. `sku =`. Editors use it to tell an
// unfinished condition apart from a broken one.
func IsPartialPredicate(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	tokens, err := tokenize(EscapeUnsupportedChars(input))
	if err != nil {
		return false
	}

	p := &parser{tokens: tokens}
	if _, err := p.parseTarget(); err != nil {
		return false
	}
	op, err := p.parseOperator()
	if err != nil || !operatorTakesValue(op) {
		return false
	}
	return p.peek().typ == tokEOF
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.typ != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ tokenType) (token, error) {
	tok := p.next()
	if tok.typ != typ {
		return tok, p.errorf(tok, "expected %s, found %s %q", typ, tok.typ, tok.text)
	}
	return tok, nil
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

// isKeyword reports whether tok is the bare identifier kw (case-insensitive)
func isKeyword(tok token, kw string) bool {
	return tok.typ == tokIdent && strings.EqualFold(tok.text, kw)
}

func (p *parser) parseOr() (Node, error) {
	return p.parseChain(Or, p.parseAnd)
}

func (p *parser) parseAnd() (Node, error) {
	return p.parseChain(And, p.parseUnary)
}

// parseChain collects operands joined by op into a single logical node
func (p *parser) parseChain(op LogicalOp, operand func() (Node, error)) (Node, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}

	nodes := []Node{first}
	for isKeyword(p.peek(), string(op)) {
		p.next()
		n, err := operand()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	if len(nodes) == 1 {
		return first, nil
	}
	return &Logical{Logical: op, Conditions: nodes}, nil
}

func (p *parser) parseUnary() (Node, error) {
	tok := p.peek()

	if isKeyword(tok, "not") && p.peekAt(1).typ == tokLParen {
		p.next()
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		if l, ok := inner.(*Logical); ok && !l.IsNegated {
			return &Logical{Logical: l.Logical, IsNegated: true, Conditions: l.Conditions}, nil
		}
		return &Logical{Logical: And, IsNegated: true, Conditions: []Node{inner}}, nil
	}

	if tok.typ == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	}

	return p.parseCondition()
}

func (p *parser) parseCondition() (Node, error) {
	target, err := p.parseTarget()
	if err != nil {
		return nil, err
	}

	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	cond := &Condition{Target: target, Operator: op}
	if !operatorTakesValue(op) {
		return cond, nil
	}

	value, valueType, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	cond.Value = value
	cond.ValueType = valueType
	return cond, nil
}

func (p *parser) parseTarget() (Target, error) {
	tok := p.peek()

	switch tok.typ {
	case tokString, tokNumber:
		value, valueType, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &ConstantTarget{Value: &ConstantValue{Type: valueType, Value: value}}, nil

	case tokIdent:
		if isKeyword(tok, "true") || isKeyword(tok, "false") {
			value, valueType, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			return &ConstantTarget{Value: &ConstantValue{Type: valueType, Value: value}}, nil
		}
		if p.peekAt(1).typ == tokLParen {
			return p.parseFunction()
		}
		return p.parseField()

	case tokQuotedIdent:
		return p.parseField()

	default:
		return nil, p.errorf(tok, "expected condition, found %s %q", tok.typ, tok.text)
	}
}

func (p *parser) parseFunction() (Target, error) {
	name := p.next()
	p.next() // (

	fn := &FunctionTarget{Name: name.text}
	if p.peek().typ == tokRParen {
		p.next()
		return fn, nil
	}

	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		fn.Args = append(fn.Args, arg)

		tok := p.next()
		if tok.typ == tokRParen {
			return fn, nil
		}
		if tok.typ != tokComma {
			return nil, p.errorf(tok, "expected ',' or ')' in arguments of %s, found %s %q", fn.Name, tok.typ, tok.text)
		}
	}
}

func (p *parser) parseField() (Target, error) {
	var segments []string
	for {
		tok := p.next()
		if tok.typ != tokIdent && tok.typ != tokQuotedIdent {
			return nil, p.errorf(tok, "expected field name, found %s %q", tok.typ, tok.text)
		}
		segments = append(segments, tok.value)

		if p.peek().typ != tokDot {
			break
		}
		p.next()
	}
	return &FieldTarget{Name: strings.Join(segments, ".")}, nil
}

// parseOperator reads a comparison or one of the word operators
func (p *parser) parseOperator() (string, error) {
	tok := p.next()

	if tok.typ == tokCompare {
		return tok.text, nil
	}

	switch {
	case isKeyword(tok, "contains"):
		if next := p.peek(); isKeyword(next, "any") || isKeyword(next, "all") {
			p.next()
			return "contains " + strings.ToLower(next.text), nil
		}
		return "contains", nil

	case isKeyword(tok, "in"):
		return "in", nil

	case isKeyword(tok, "not"):
		if next := p.next(); !isKeyword(next, "in") {
			return "", p.errorf(next, "expected 'in' after 'not', found %s %q", next.typ, next.text)
		}
		return "not in", nil

	case isKeyword(tok, "is"):
		negated := false
		if isKeyword(p.peek(), "not") {
			p.next()
			negated = true
		}
		word := p.next()
		if !isKeyword(word, "defined") && !isKeyword(word, "empty") {
			return "", p.errorf(word, "expected 'defined' or 'empty', found %s %q", word.typ, word.text)
		}
		if negated {
			return "is not " + strings.ToLower(word.text), nil
		}
		return "is " + strings.ToLower(word.text), nil
	}

	return "", p.errorf(tok, "expected operator, found %s %q", tok.typ, tok.text)
}

// operatorTakesValue reports whether op is followed by a right-hand value
func operatorTakesValue(op string) bool {
	switch op {
	case "is defined", "is not defined", "is empty", "is not empty":
		return false
	}
	return true
}

// parseValue reads a literal or a parenthesised list of literals
func (p *parser) parseValue() (any, string, error) {
	if p.peek().typ != tokLParen {
		return p.parseLiteral()
	}

	p.next()
	var values []any
	valueType := ""
	for {
		v, vt, err := p.parseLiteral()
		if err != nil {
			return nil, "", err
		}
		if valueType == "" {
			valueType = vt
		}
		values = append(values, v)

		tok := p.next()
		if tok.typ == tokRParen {
			return values, valueType, nil
		}
		if tok.typ != tokComma {
			return nil, "", p.errorf(tok, "expected ',' or ')' in value list, found %s %q", tok.typ, tok.text)
		}
	}
}

func (p *parser) parseLiteral() (any, string, error) {
	tok := p.next()

	switch {
	case tok.typ == tokString:
		return tok.value, ValueTypeString, nil
	case tok.typ == tokNumber:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, "", p.errorf(tok, "invalid number %q", tok.text)
		}
		return f, ValueTypeNumber, nil
	case isKeyword(tok, "true"):
		return true, ValueTypeBoolean, nil
	case isKeyword(tok, "false"):
		return false, ValueTypeBoolean, nil
	}

	return nil, "", p.errorf(tok, "expected value, found %s %q", tok.typ, tok.text)
}
