package ifd

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Kind discriminates the runtime type held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindUint
	KindInt
	KindFloat
	KindRational
	KindSRational
	KindString
	KindBytes
	KindList
)

// A Value is an immutable tagged union over the types a directory entry
// can decode to. The zero Value is invalid.
type Value struct {
	kind Kind
	u    uint64
	i    int64
	f    float64
	s    string
	b    []byte
	num  int64
	den  int64
	list []Value
}

// Uint builds an unsigned integer Value (BYTE, SHORT, LONG widths).
func Uint(v uint64) Value { return Value{kind: KindUint, u: v} }

// Int builds a signed integer Value (SBYTE, SSHORT, SLONG widths).
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float builds a floating point Value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Rat builds an unsigned rational Value.
func Rat(num, den uint32) Value {
	return Value{kind: KindRational, num: int64(num), den: int64(den)}
}

// SRat builds a signed rational Value.
func SRat(num, den int32) Value {
	return Value{kind: KindSRational, num: int64(num), den: int64(den)}
}

// Str builds a string Value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Bytes builds a raw byte sequence Value. The bytes are copied so the
// Value never aliases the extraction buffer.
func Bytes(b []byte) Value {
	c := make([]byte, len(b))
	copy(c, b)
	return Value{kind: KindBytes, b: c}
}

// List builds an ordered sequence Value.
func List(vs ...Value) Value {
	c := make([]Value, len(vs))
	copy(c, vs)
	return Value{kind: KindList, list: c}
}

// Kind returns the discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the Value holds anything.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Len returns the number of elements for lists, bytes and strings, and 1
// for every other valid kind.
func (v Value) Len() int {
	switch v.kind {
	case KindInvalid:
		return 0
	case KindList:
		return len(v.list)
	case KindBytes:
		return len(v.b)
	case KindString:
		return len(v.s)
	}
	return 1
}

// Index returns the i-th element of a list Value. Indexing a scalar with
// i == 0 returns the scalar itself, mirroring how single-count entries
// are used interchangeably with one-element arrays.
func (v Value) Index(i int) (Value, bool) {
	if v.kind == KindList {
		if i < 0 || i >= len(v.list) {
			return Value{}, false
		}
		return v.list[i], true
	}
	if i == 0 && v.kind != KindInvalid {
		return v, true
	}
	return Value{}, false
}

// Uint64 returns the value as an unsigned integer.
func (v Value) Uint64() (uint64, bool) {
	switch v.kind {
	case KindUint:
		return v.u, true
	case KindInt:
		if v.i >= 0 {
			return uint64(v.i), true
		}
	case KindList:
		if len(v.list) > 0 {
			return v.list[0].Uint64()
		}
	}
	return 0, false
}

// Int64 returns the value as a signed integer.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindUint:
		if v.u <= math.MaxInt64 {
			return int64(v.u), true
		}
	case KindInt:
		return v.i, true
	case KindList:
		if len(v.list) > 0 {
			return v.list[0].Int64()
		}
	}
	return 0, false
}

// Rational returns the numerator and denominator of a rational Value.
func (v Value) Rational() (num, den int64, ok bool) {
	switch v.kind {
	case KindRational, KindSRational:
		return v.num, v.den, true
	case KindList:
		if len(v.list) > 0 {
			return v.list[0].Rational()
		}
	}
	return 0, 0, false
}

// Rat returns the rational as a big.Rat, or nil for a zero denominator.
func (v Value) Rat() *big.Rat {
	num, den, ok := v.Rational()
	if !ok || den == 0 {
		return nil
	}
	return big.NewRat(num, den)
}

// Float64 converts the value to a float64 where a numeric reading
// exists. Rationals with a zero denominator do not convert.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindUint:
		return float64(v.u), true
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindRational, KindSRational:
		if v.den == 0 {
			return 0, false
		}
		f, _ := big.NewRat(v.num, v.den).Float64()
		return f, true
	case KindString:
		return 0, false
	case KindList:
		if len(v.list) > 0 {
			return v.list[0].Float64()
		}
	}
	return 0, false
}

// Text returns the string payload of a string Value.
func (v Value) Text() (string, bool) {
	if v.kind == KindString {
		return v.s, true
	}
	return "", false
}

// Raw returns the byte payload of a bytes Value. The caller must not
// mutate the returned slice.
func (v Value) Raw() ([]byte, bool) {
	if v.kind == KindBytes {
		return v.b, true
	}
	return nil, false
}

// Slice returns the elements of a list Value, or a one-element slice for
// a scalar.
func (v Value) Slice() []Value {
	if v.kind == KindList {
		return v.list
	}
	if v.kind == KindInvalid {
		return nil
	}
	return []Value{v}
}

// String implements Stringer. It is the deterministic fallback rendering
// used when no display conversion applies.
func (v Value) String() string {
	switch v.kind {
	case KindInvalid:
		return ""
	case KindUint:
		return fmt.Sprintf("%d", v.u)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindRational, KindSRational:
		if v.den == 0 {
			return fmt.Sprintf("%d/%d", v.num, v.den)
		}
		if v.num%v.den == 0 {
			return fmt.Sprintf("%d", v.num/v.den)
		}
		f, _ := big.NewRat(v.num, v.den).Float64()
		return fmt.Sprintf("%g", f)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("(%d bytes)", len(v.b))
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return strings.Join(parts, " ")
	}
	return ""
}
