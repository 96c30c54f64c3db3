package banter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxExpressionLength bounds the expressions the arithmetic responder will
// evaluate.
const MaxExpressionLength = 200

var ErrInvalidExpression = errors.New("invalid arithmetic expression")

// ExtractExpression keeps only the characters that can form an arithmetic
// expression (digits, + - * / ( ) . and spaces), turns decimal commas into
// dots and trims the result.
//
//	"сколько будет 2,5 * 4?" → "2.5 * 4"
func ExtractExpression(input string) string {
	var b strings.Builder
	for _, r := range input {
		switch {
		case r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case r == '+', r == '-', r == '*', r == '/', r == '(', r == ')', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteByte('.')
		}
	}
	return strings.TrimSpace(b.String())
}

// EvaluateExpression evaluates +, -, *, / with the usual precedence,
// parentheses and unary signs
//
// GRAMMAR:
// --------
//
//	expr   = term   { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = ("+" | "-") factor | number | "(" expr ")"
//
// The expression must contain a digit, be shorter than MaxExpressionLength
// and evaluate to a finite number (so 1/0 is an error).
func EvaluateExpression(expr string) (float64, error) {
	if expr == "" || len(expr) >= MaxExpressionLength {
		return 0, ErrInvalidExpression
	}
	if !strings.ContainsAny(expr, "0123456789") {
		return 0, ErrInvalidExpression
	}

	p := &exprParser{input: expr}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrInvalidExpression, p.input[p.pos], p.pos)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: result is not finite", ErrInvalidExpression)
	}
	return value, nil
}

// FormatNumber renders v with at most four decimals and no trailing zeros.
//
//	8        → "8"
//	2.5      → "2.5"
//	1.0/3.0  → "0.3333"
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

type exprParser struct {
	input string
	pos   int
	depth int
}

// maxNesting caps recursion on inputs like "((((((...".
const maxNesting = 64

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxNesting {
		return 0, fmt.Errorf("%w: nested too deeply", ErrInvalidExpression)
	}

	switch c := p.peek(); {
	case c == '+':
		p.pos++
		return p.parseFactor()
	case c == '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("%w: missing )", ErrInvalidExpression)
		}
		p.pos++
		return v, nil
	case (c >= '0' && c <= '9') || c == '.':
		return p.parseNumber()
	case c == 0:
		return 0, fmt.Errorf("%w: unexpected end", ErrInvalidExpression)
	default:
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrInvalidExpression, c, p.pos)
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrInvalidExpression, p.input[start:p.pos])
	}
	return v, nil
}
