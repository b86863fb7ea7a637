package ifd

// A small expression language for declarative conversions: arithmetic
// over the current value, array indexing, references to sibling tags
// and to extraction-state context, comparisons and a ternary. Examples:
//
//	$val / 8
//	$val[0] + $val[1] / 60 + $val[2] / 3600
//	2 ** (-$val / 3)
//	$model =~ "EOS" ? $val * 2 : $val
//
// Expressions are evaluated against a resolver that maps $names to
// extracted values. They are pure: no assignment, no loops, bounded by
// the expression's own length.

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// exprResolver maps a $name reference to a value. ok is false for an
// unknown name, which fails the whole evaluation.
type exprResolver func(name string) (Value, bool)

// evalExpr parses and evaluates expr against resolve.
func evalExpr(expr string, resolve exprResolver) (Value, error) {
	p := &exprParser{src: expr, resolve: resolve}
	v, err := p.parseTernary()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Value{}, errors.Errorf("expression: trailing input at %d in %q", p.pos, expr)
	}
	return v.value(), nil
}

// exprVal is the evaluator's working type: a number or a string.
type exprVal struct {
	num   float64
	str   string
	isStr bool
}

func numVal(f float64) exprVal { return exprVal{num: f} }
func strVal(s string) exprVal { return exprVal{str: s, isStr: true} }
func boolVal(b bool) exprVal {
	if b {
		return exprVal{num: 1}
	}
	return exprVal{num: 0}
}

func (v exprVal) truthy() bool {
	if v.isStr {
		return v.str != ""
	}
	return v.num != 0
}

// value converts the result back to a Value. Integral floats collapse
// to integers so lookup-style PrintConvs keep working after arithmetic.
func (v exprVal) value() Value {
	if v.isStr {
		return Str(v.str)
	}
	if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1<<53 {
		return Int(int64(v.num))
	}
	return Float(v.num)
}

type exprParser struct {
	src     string
	pos     int
	resolve exprResolver
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek(s string) bool {
	p.skipSpace()
	return strings.HasPrefix(p.src[p.pos:], s)
}

func (p *exprParser) accept(s string) bool {
	if p.peek(s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *exprParser) parseTernary() (exprVal, error) {
	cond, err := p.parseComparison()
	if err != nil {
		return exprVal{}, err
	}
	if !p.accept("?") {
		return cond, nil
	}
	left, err := p.parseTernary()
	if err != nil {
		return exprVal{}, err
	}
	if !p.accept(":") {
		return exprVal{}, errors.New("expression: missing ':' in ternary")
	}
	right, err := p.parseTernary()
	if err != nil {
		return exprVal{}, err
	}
	if cond.truthy() {
		return left, nil
	}
	return right, nil
}

func (p *exprParser) parseComparison() (exprVal, error) {
	left, err := p.parseSum()
	if err != nil {
		return exprVal{}, err
	}

	switch {
	case p.accept("=~"):
		right, err := p.parseSum()
		if err != nil {
			return exprVal{}, err
		}
		re, err := regexp.Compile(right.str)
		if err != nil {
			return exprVal{}, errors.Wrap(err, "expression: bad match pattern")
		}
		return boolVal(re.MatchString(left.asString())), nil
	case p.accept("=="):
		return p.compareNum(left, func(a, b float64) bool { return a == b })
	case p.accept("!="):
		return p.compareNum(left, func(a, b float64) bool { return a != b })
	case p.accept("<="):
		return p.compareNum(left, func(a, b float64) bool { return a <= b })
	case p.accept(">="):
		return p.compareNum(left, func(a, b float64) bool { return a >= b })
	case p.accept("<"):
		return p.compareNum(left, func(a, b float64) bool { return a < b })
	case p.accept(">"):
		return p.compareNum(left, func(a, b float64) bool { return a > b })
	case p.accept("eq"):
		right, err := p.parseSum()
		if err != nil {
			return exprVal{}, err
		}
		return boolVal(left.asString() == right.asString()), nil
	case p.accept("ne"):
		right, err := p.parseSum()
		if err != nil {
			return exprVal{}, err
		}
		return boolVal(left.asString() != right.asString()), nil
	}
	return left, nil
}

func (v exprVal) asString() string {
	if v.isStr {
		return v.str
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// compareNum implements the numeric comparisons. A string operand
// numifies to 0 here; eq and ne are the string comparisons.
func (p *exprParser) compareNum(left exprVal, cmp func(a, b float64) bool) (exprVal, error) {
	right, err := p.parseSum()
	if err != nil {
		return exprVal{}, err
	}
	return boolVal(cmp(left.num, right.num)), nil
}

func (p *exprParser) parseSum() (exprVal, error) {
	left, err := p.parseProduct()
	if err != nil {
		return exprVal{}, err
	}
	for {
		switch {
		case p.accept("+"):
			right, err := p.parseProduct()
			if err != nil {
				return exprVal{}, err
			}
			left = numVal(left.num + right.num)
		case p.accept("-"):
			right, err := p.parseProduct()
			if err != nil {
				return exprVal{}, err
			}
			left = numVal(left.num - right.num)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseProduct() (exprVal, error) {
	left, err := p.parsePower()
	if err != nil {
		return exprVal{}, err
	}
	for {
		switch {
		case p.accept("*"):
			right, err := p.parsePower()
			if err != nil {
				return exprVal{}, err
			}
			left = numVal(left.num * right.num)
		case p.accept("/"):
			right, err := p.parsePower()
			if err != nil {
				return exprVal{}, err
			}
			if right.num == 0 {
				return exprVal{}, errors.New("expression: division by zero")
			}
			left = numVal(left.num / right.num)
		case p.accept("%"):
			right, err := p.parsePower()
			if err != nil {
				return exprVal{}, err
			}
			if right.num == 0 {
				return exprVal{}, errors.New("expression: modulo by zero")
			}
			left = numVal(math.Mod(left.num, right.num))
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parsePower() (exprVal, error) {
	base, err := p.parseUnary()
	if err != nil {
		return exprVal{}, err
	}
	if p.accept("**") {
		exp, err := p.parsePower() // right associative
		if err != nil {
			return exprVal{}, err
		}
		return numVal(math.Pow(base.num, exp.num)), nil
	}
	return base, nil
}

func (p *exprParser) parseUnary() (exprVal, error) {
	if p.accept("-") {
		v, err := p.parseUnary()
		if err != nil {
			return exprVal{}, err
		}
		return numVal(-v.num), nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (exprVal, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return exprVal{}, errors.New("expression: unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '(':
		p.pos++
		v, err := p.parseTernary()
		if err != nil {
			return exprVal{}, err
		}
		if !p.accept(")") {
			return exprVal{}, errors.New("expression: missing ')'")
		}
		return v, nil
	case c == '"':
		return p.parseString()
	case c == '$':
		return p.parseRef()
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	}
	return exprVal{}, errors.Errorf("expression: unexpected character %q", p.src[p.pos])
}

func (p *exprParser) parseString() (exprVal, error) {
	end := strings.IndexByte(p.src[p.pos+1:], '"')
	if end < 0 {
		return exprVal{}, errors.New("expression: unterminated string")
	}
	s := p.src[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	return strVal(s), nil
}

func (p *exprParser) parseNumber() (exprVal, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' || c == '.' || c == 'x' || c == 'X' ||
			c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' {
			p.pos++
			continue
		}
		break
	}
	lit := p.src[start:p.pos]
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
		u, err := strconv.ParseUint(lit[2:], 16, 64)
		if err != nil {
			return exprVal{}, errors.Wrapf(err, "expression: bad number %q", lit)
		}
		return numVal(float64(u)), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return exprVal{}, errors.Wrapf(err, "expression: bad number %q", lit)
	}
	return numVal(f), nil
}

func (p *exprParser) parseRef() (exprVal, error) {
	p.pos++ // consume '$'
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	name := p.src[start:p.pos]
	if name == "" {
		return exprVal{}, errors.New("expression: empty reference")
	}

	v, ok := p.resolve(name)
	if !ok {
		return exprVal{}, errors.Errorf("expression: unknown reference $%s", name)
	}

	if p.accept("[") {
		idx, err := p.parseTernary()
		if err != nil {
			return exprVal{}, err
		}
		if !p.accept("]") {
			return exprVal{}, errors.New("expression: missing ']'")
		}
		elem, ok := v.Index(int(idx.num))
		if !ok {
			return exprVal{}, errors.Errorf("expression: index %d out of range for $%s", int(idx.num), name)
		}
		v = elem
	}

	if s, ok := v.Text(); ok {
		return strVal(s), nil
	}
	f, ok := v.Float64()
	if !ok {
		return exprVal{}, errors.Errorf("expression: $%s is not numeric", name)
	}
	return numVal(f), nil
}
