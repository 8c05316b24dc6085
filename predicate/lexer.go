package predicate

import (
	"fmt"
	"regexp"
	"strings"
)

// tokenType classifies lexer output
type tokenType int

const (
	tokEOF tokenType = iota
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokCompare
	tokString
	tokNumber
	tokIdent
	tokQuotedIdent
	tokWhitespace
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of input"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokDot:
		return "'.'"
	case tokCompare:
		return "comparison operator"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokIdent, tokQuotedIdent:
		return "identifier"
	default:
		return "token"
	}
}

// token is a lexeme with its byte offset in the input
type token struct {
	typ   tokenType
	text  string
	value string // unquoted text for strings and escaped identifiers
	pos   int
}

// tokenPattern pairs a token type with an anchored pattern
type tokenPattern struct {
	typ     tokenType
	pattern *regexp.Regexp
}

// Order matters: two-character comparisons before their one-character prefixes,
// numbers before identifiers.
var tokenPatterns = []tokenPattern{
	{tokWhitespace, regexp.MustCompile(`^\s+`)},
	{tokLParen, regexp.MustCompile(`^\(`)},
	{tokRParen, regexp.MustCompile(`^\)`)},
	{tokComma, regexp.MustCompile(`^,`)},
	{tokCompare, regexp.MustCompile(`^(>=|<=|!=|<>|=|>|<)`)},
	{tokString, regexp.MustCompile(`^"(?:[^"\\]|\\.)*"|^'(?:[^'\\]|\\.)*'`)},
	{tokNumber, regexp.MustCompile(`^-?\d+(?:\.\d+)?`)},
	{tokDot, regexp.MustCompile(`^\.`)},
	{tokQuotedIdent, regexp.MustCompile("^`[^`]+`")},
	{tokIdent, regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)},
}

// tokenize splits input into tokens, dropping whitespace and appending an EOF token
func tokenize(input string) ([]token, error) {
	var tokens []token
	pos := 0

	for pos < len(input) {
		remaining := input[pos:]
		matched := false

		for _, p := range tokenPatterns {
			loc := p.pattern.FindStringIndex(remaining)
			if loc == nil {
				continue
			}
			text := remaining[:loc[1]]
			if p.typ != tokWhitespace {
				tok := token{typ: p.typ, text: text, value: text, pos: pos}
				switch p.typ {
				case tokString:
					tok.value = unquote(text)
				case tokQuotedIdent:
					tok.value = text[1 : len(text)-1]
				}
				tokens = append(tokens, tok)
			}
			pos += loc[1]
			matched = true
			break
		}

		if !matched {
			return nil, &SyntaxError{Pos: pos, Msg: fmt.Sprintf("unexpected character %q", remaining[0])}
		}
	}

	return append(tokens, token{typ: tokEOF, pos: len(input)}), nil
}

// unquote strips the surrounding quotes and resolves backslash escapes
func unquote(text string) string {
	body := text[1 : len(text)-1]
	if !strings.Contains(body, `\`) {
		return body
	}

	var b strings.Builder
	escaped := false
	for _, r := range body {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
