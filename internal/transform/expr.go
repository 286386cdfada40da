package transform

import (
	"strconv"
	"unicode"

	"github.com/rotisserie/eris"
)

// Expr is a parsed arithmetic expression over named columns. The grammar is
// deliberately small:
//
//	expr   = term { ("+" | "-") term }
//	term   = unary { ("*" | "/") unary }
//	unary  = [ "-" ] factor
//	factor = number | ident | "(" expr ")"
//
// Identifiers name raw variable codes (e.g. B02001_001E). Division is true
// float division with IEEE semantics; a zero denominator is not special-cased.
type Expr struct {
	root node
	vars []string
}

// Vars returns the distinct identifiers referenced by the expression, in
// first-reference order.
func (e *Expr) Vars() []string {
	out := make([]string, len(e.vars))
	copy(out, e.vars)
	return out
}

// Eval evaluates the expression against the given environment.
func (e *Expr) Eval(env map[string]float64) float64 {
	return e.root.eval(env)
}

type node interface {
	eval(env map[string]float64) float64
}

type numNode float64

func (n numNode) eval(map[string]float64) float64 { return float64(n) }

type varNode string

func (n varNode) eval(env map[string]float64) float64 { return env[string(n)] }

type negNode struct{ x node }

func (n negNode) eval(env map[string]float64) float64 { return -n.x.eval(env) }

type binNode struct {
	op          byte
	left, right node
}

func (n binNode) eval(env map[string]float64) float64 {
	l, r := n.left.eval(env), n.right.eval(env)
	switch n.op {
	case '+':
		return l + r
	case '-':
		return l - r
	case '*':
		return l * r
	default:
		return l / r
	}
}

// ParseExpr parses an expression string.
func ParseExpr(input string) (*Expr, error) {
	p := &parser{input: input}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, eris.Errorf("transform: unexpected %q at offset %d", p.input[p.pos], p.pos)
	}
	return &Expr{root: root, vars: p.vars}, nil
}

type parser struct {
	input string
	pos   int
	vars  []string
	seen  map[string]bool
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		switch op := p.peek(); op {
		case '+', '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = binNode{op: op, left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch op := p.peek(); op {
		case '*', '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = binNode{op: op, left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.peek() == '-' {
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negNode{x: x}, nil
	}
	return p.parseFactor()
}

func (p *parser) parseFactor() (node, error) {
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, eris.Errorf("transform: missing closing paren at offset %d", p.pos)
		}
		p.pos++
		return inner, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case isIdentStart(rune(c)):
		return p.parseIdent(), nil
	case c == 0:
		return nil, eris.New("transform: unexpected end of expression")
	default:
		return nil, eris.Errorf("transform: unexpected %q at offset %d", c, p.pos)
	}
}

func (p *parser) parseNumber() (node, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return nil, eris.Wrapf(err, "transform: bad number %q", p.input[start:p.pos])
	}
	return numNode(v), nil
}

func (p *parser) parseIdent() node {
	start := p.pos
	for p.pos < len(p.input) && isIdentPart(rune(p.input[p.pos])) {
		p.pos++
	}
	name := p.input[start:p.pos]
	if p.seen == nil {
		p.seen = make(map[string]bool)
	}
	if !p.seen[name] {
		p.seen[name] = true
		p.vars = append(p.vars, name)
	}
	return varNode(name)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
