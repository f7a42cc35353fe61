// =============================================================================
// XtractPajak - Formula Evaluator
// =============================================================================
//
// Stored cell values that start with "=" are formulas. Only a small subset
// is understood, which is enough for the templates this tool fills in:
//
//   expr    := operand ( "&" operand )*
//   operand := string | number | ref | "(" expr ")"
//   string  := '"' ( any char except '"' | '""' )* '"'
//   number  := digits [ "." digits ]
//   ref     := [ "$" ] letters [ "$" ] digits          e.g. D4, $D$4
//
// A referenced cell holding another formula is evaluated in turn, up to
// MaxDepth levels. Anything outside the grammar is an error; Resolve turns
// every error into the empty string.
//
// =============================================================================

package formula

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxDepth bounds nested reference resolution (and therefore cycles).
const MaxDepth = 16

// Resolver returns the raw stored value of a cell. ok is false for a cell
// that was never written; such a cell evaluates to "".
type Resolver interface {
	Lookup(ref string) (value string, ok bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ref string) (string, bool)

// Lookup calls f(ref).
func (f ResolverFunc) Lookup(ref string) (string, bool) { return f(ref) }

var (
	// ErrSyntax reports a formula outside the supported grammar.
	ErrSyntax = errors.New("formula: syntax error")

	// ErrDepth reports reference chains nested deeper than MaxDepth.
	ErrDepth = errors.New("formula: reference depth exceeded")
)

// IsFormula reports whether a stored value is a formula.
func IsFormula(value string) bool {
	return strings.HasPrefix(value, "=")
}

// Resolve returns the materialized value of a stored cell value: formulas
// are evaluated, literals pass through. Evaluation failures yield "".
func Resolve(value string, r Resolver) string {
	if !IsFormula(value) {
		return value
	}
	out, err := Evaluate(value, r)
	if err != nil {
		return ""
	}
	return out
}

// Evaluate evaluates a formula. The leading "=" is optional.
func Evaluate(expr string, r Resolver) (string, error) {
	return evaluate(expr, r, 0)
}

func evaluate(expr string, r Resolver, depth int) (string, error) {
	if depth > MaxDepth {
		return "", ErrDepth
	}

	tokens, err := lex(strings.TrimPrefix(expr, "="))
	if err != nil {
		return "", err
	}

	p := &parser{tokens: tokens, resolver: r, depth: depth}
	out, err := p.parseExpr()
	if err != nil {
		return "", err
	}
	if p.peek().kind != tokEOF {
		return "", fmt.Errorf("%w: unexpected %q", ErrSyntax, p.peek().text)
	}
	return out, nil
}

// =============================================================================
// LEXER
// =============================================================================

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokNumber
	tokRef
	tokConcat
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func lex(src string) ([]token, error) {
	var tokens []token
	runes := []rune(src)

	for i := 0; i < len(runes); {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			i++

		case c == '&':
			tokens = append(tokens, token{kind: tokConcat, text: "&"})
			i++

		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++

		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++

		case c == '"':
			var sb strings.Builder
			i++
			closed := false
			for i < len(runes) {
				if runes[i] == '"' {
					if i+1 < len(runes) && runes[i+1] == '"' {
						sb.WriteRune('"')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				sb.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated string", ErrSyntax)
			}
			tokens = append(tokens, token{kind: tokString, text: sb.String()})

		case unicode.IsDigit(c):
			start := i
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			if i < len(runes) && runes[i] == '.' {
				i++
				if i >= len(runes) || !unicode.IsDigit(runes[i]) {
					return nil, fmt.Errorf("%w: malformed number", ErrSyntax)
				}
				for i < len(runes) && unicode.IsDigit(runes[i]) {
					i++
				}
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[start:i])})

		case c == '$' || isASCIILetter(c):
			ref, n, err := lexRef(runes[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokRef, text: ref})
			i += n

		default:
			return nil, fmt.Errorf("%w: unsupported character %q", ErrSyntax, c)
		}
	}

	return append(tokens, token{kind: tokEOF}), nil
}

// lexRef reads an A1-style reference, dropping "$" markers. It returns the
// normalized reference and the number of runes consumed.
func lexRef(runes []rune) (string, int, error) {
	i := 0
	var col, row strings.Builder

	if i < len(runes) && runes[i] == '$' {
		i++
	}
	for i < len(runes) && isASCIILetter(runes[i]) {
		col.WriteRune(unicode.ToUpper(runes[i]))
		i++
	}
	if i < len(runes) && runes[i] == '$' {
		i++
	}
	for i < len(runes) && unicode.IsDigit(runes[i]) {
		row.WriteRune(runes[i])
		i++
	}

	// A name followed by "(" is a function call, which is not supported.
	if col.Len() == 0 || row.Len() == 0 || col.Len() > 3 || (i < len(runes) && runes[i] == '(') {
		return "", 0, fmt.Errorf("%w: unsupported name %q", ErrSyntax, string(runes[:max(i, 1)]))
	}
	if i < len(runes) && (isASCIILetter(runes[i]) || unicode.IsDigit(runes[i])) {
		return "", 0, fmt.Errorf("%w: malformed reference", ErrSyntax)
	}

	return col.String() + row.String(), i, nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

// =============================================================================
// PARSER
// =============================================================================

type parser struct {
	tokens   []token
	pos      int
	resolver Resolver
	depth    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseExpr() (string, error) {
	var sb strings.Builder

	first, err := p.parseOperand()
	if err != nil {
		return "", err
	}
	sb.WriteString(first)

	for p.peek().kind == tokConcat {
		p.next()
		operand, err := p.parseOperand()
		if err != nil {
			return "", err
		}
		sb.WriteString(operand)
	}

	return sb.String(), nil
}

func (p *parser) parseOperand() (string, error) {
	t := p.next()
	switch t.kind {
	case tokString, tokNumber:
		return t.text, nil

	case tokRef:
		return p.resolveRef(t.text)

	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return "", err
		}
		if p.next().kind != tokRParen {
			return "", fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}
		return inner, nil

	case tokEOF:
		return "", fmt.Errorf("%w: unexpected end of formula", ErrSyntax)

	default:
		return "", fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
	}
}

func (p *parser) resolveRef(ref string) (string, error) {
	if p.resolver == nil {
		return "", nil
	}
	value, ok := p.resolver.Lookup(ref)
	if !ok {
		return "", nil
	}
	if IsFormula(value) {
		return evaluate(value, p.resolver, p.depth+1)
	}
	return value, nil
}
