package predicate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var plainSegment = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedWords cannot appear bare as a field segment
var reservedWords = map[string]bool{
	"and": true, "or": true, "not": true, "true": true, "false": true,
	"in": true, "is": true, "contains": true,
}

// ErrUnknownNode is returned by Validate for trees that cannot be written as predicate text
var ErrUnknownNode = errors.New("unknown predicate node")

// Validate reports the first node in the tree that Stringify cannot render faithfully:
// a node of unrecognised kind, or a condition without a target.
func Validate(node Node) error {
	switch n := node.(type) {
	case nil:
		return nil
	case *Logical:
		for _, child := range n.Conditions {
			if err := Validate(child); err != nil {
				return err
			}
		}
		return nil
	case *Condition:
		if n.Target == nil {
			return fmt.Errorf("%w: condition without target", ErrUnknownNode)
		}
		if fn, ok := n.Target.(*FunctionTarget); ok {
			for _, arg := range fn.Args {
				if err := Validate(arg); err != nil {
					return err
				}
			}
		}
		return nil
	case *Unknown:
		return fmt.Errorf("%w: kind %q", ErrUnknownNode, n.RawKind)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownNode, node)
	}
}

// Stringify renders a tree back to predicate text.
// The root logical node is written bare, nested ones in parentheses,
// and negated ones as not(...). A nil node renders as the empty string.
// Unknown nodes render as an <unknown ...> marker that does not parse;
// call Validate first to reject such trees.
func Stringify(node Node) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	writeNode(&b, node, true)
	return b.String()
}

func writeNode(b *strings.Builder, node Node, root bool) {
	switch n := node.(type) {
	case *Logical:
		writeLogical(b, n, root)
	case *Condition:
		writeCondition(b, n)
	case *Unknown:
		fmt.Fprintf(b, "<unknown %q>", n.RawKind)
	}
}

func writeLogical(b *strings.Builder, l *Logical, root bool) {
	wrap := l.IsNegated || !root
	if l.IsNegated {
		b.WriteString("not")
	}
	if wrap {
		b.WriteByte('(')
	}
	for i, child := range l.Conditions {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(string(l.Logical))
			b.WriteByte(' ')
		}
		writeNode(b, child, false)
	}
	if wrap {
		b.WriteByte(')')
	}
}

func writeCondition(b *strings.Builder, c *Condition) {
	writeTarget(b, c.Target)
	if c.Operator != "" {
		b.WriteByte(' ')
		b.WriteString(c.Operator)
	}
	if c.Value == nil {
		return
	}

	b.WriteByte(' ')
	if list, ok := c.Value.([]any); ok {
		b.WriteByte('(')
		for i, v := range list {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(formatValue(v, c.ValueType))
		}
		b.WriteByte(')')
		return
	}
	b.WriteString(formatValue(c.Value, c.ValueType))
}

func writeTarget(b *strings.Builder, t Target) {
	switch t := t.(type) {
	case *FieldTarget:
		b.WriteString(FormatFieldName(t.Name))
	case *ConstantTarget:
		if t.Value != nil {
			b.WriteString(formatValue(t.Value.Value, t.Value.Type))
		}
	case *FunctionTarget:
		b.WriteString(t.Name)
		b.WriteByte('(')
		for i, arg := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeNode(b, arg, true)
		}
		b.WriteByte(')')
	}
}

// FormatFieldName backtick-escapes path segments that are not plain identifiers,
// e.g. custom.`gift-wrap`
func FormatFieldName(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if !plainSegment.MatchString(part) || reservedWords[strings.ToLower(part)] {
			parts[i] = "`" + part + "`"
		}
	}
	return strings.Join(parts, ".")
}

// formatValue renders a literal. Strings are quoted when the value type says so,
// or when no type hint is recorded.
func formatValue(v any, valueType string) string {
	switch val := v.(type) {
	case string:
		if valueType == ValueTypeString || valueType == "" {
			return quote(val)
		}
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
