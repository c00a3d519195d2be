package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// EvaluateFormula evaluates a restricted arithmetic pricing formula.
// The language is limited to numeric literals, the operators + - * /,
// parentheses, and the named variables passed in vars (AREA and QTY).
// There is deliberately no function call, indexing or assignment syntax,
// so catalog-supplied formulas cannot execute anything.
func EvaluateFormula(formula string, vars map[string]float64) (float64, error) {
	p := &formulaParser{input: formula, vars: vars}
	value, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("formula result is not a finite number")
	}
	return value, nil
}

type formulaParser struct {
	input string
	pos   int
	vars  map[string]float64
}

func (p *formulaParser) skipSpaces() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *formulaParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// expression := term (('+' | '-') term)*
func (p *formulaParser) parseExpression() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '+' && op != '-' {
			return value, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			value += right
		} else {
			value -= right
		}
	}
}

// term := factor (('*' | '/') factor)*
func (p *formulaParser) parseTerm() (float64, error) {
	value, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '*' && op != '/' {
			return value, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			value *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			value /= right
		}
	}
}

// factor := number | variable | '(' expression ')' | '-' factor
func (p *formulaParser) parseFactor() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of formula")
	}

	switch c := p.input[p.pos]; {
	case c == '(':
		p.pos++
		value, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return value, nil

	case c == '-':
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -value, nil

	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()

	case unicode.IsLetter(rune(c)) || c == '_':
		return p.parseVariable()

	default:
		return 0, fmt.Errorf("unexpected character %q at position %d", c, p.pos)
	}
}

func (p *formulaParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		p.pos++
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return value, nil
}

func (p *formulaParser) parseVariable() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' {
			break
		}
		p.pos++
	}
	name := strings.ToUpper(p.input[start:p.pos])
	value, ok := p.vars[name]
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", name)
	}
	return value, nil
}
