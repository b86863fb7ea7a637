package ifd

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

// Each tag goes through two independently optional stages:
//
//	ValueConv: raw -> logical. May fail; the raw value then passes
//	through unchanged with a warning, never a hard error.
//	PrintConv: logical -> display string. Never fails; anything
//	without an explicit mapping renders as "Unknown (N)".
//
// A Conv picks exactly one strategy; strategies are tiers and are never
// combined for a single tag. Lookup is the precompiled fast path,
// Expr covers arithmetic over the value and extraction state, Pattern
// covers template formatting and regex substitution, Func is a named
// function from the registry for anything too irregular.
type Conv struct {
	// Lookup maps logical integer values to display strings.
	Lookup map[int64]string

	// Expr is evaluated with $val bound to the input value. It may
	// reference sibling tags by name and extraction context such as
	// $model or $make.
	Expr string

	// Pattern formats and rewrites the rendered value.
	Pattern *PatternConv

	// Func names a ConvFunc in the registry.
	Func string
}

// PatternConv renders a value through a Sprintf template and/or a
// regexp substitution, applied in that order.
type PatternConv struct {
	Format  string // fmt.Sprintf template, one operand; empty = plain rendering
	Match   string // regexp over the rendered string; empty = no substitution
	Replace string // replacement, $1-style group references
}

// ConvContext is the read-only view of extraction state handed to
// named conversion functions.
type ConvContext struct {
	st *state
}

// Member returns a dependency value by name.
func (c *ConvContext) Member(name string) (Value, bool) { return c.st.member(name) }

// Tag returns the logical value of an already-extracted tag, by bare
// or group-qualified name.
func (c *ConvContext) Tag(name string) (Value, bool) {
	e, ok := c.st.lookup(name)
	if !ok {
		return Value{}, false
	}
	return e.logicalOrRaw(), true
}

// logicalOrRaw returns the logical value when conversion already ran,
// the raw value otherwise.
func (e *Entry) logicalOrRaw() Value {
	if e.Logical.IsValid() {
		return e.Logical
	}
	return e.Value
}

// convertAll runs the pipeline over every extracted entry, in
// extraction order so sibling references see earlier conversions.
func (x *Extractor) convertAll(st *state) {
	for _, e := range st.entries {
		x.convertEntry(e, st)
	}
}

func (x *Extractor) convertEntry(e *Entry, st *state) {
	e.Logical = e.Value
	if e.vconv != nil {
		v, err := x.applyConv(e.vconv, e.Value, st)
		if err != nil {
			st.warnf(WarnMinor, "%s: value conversion failed: %v", e.Name, err)
		} else {
			e.Logical = v
		}
	}
	e.Display = x.displayString(e, st)
}

// displayString produces the display stage result. It cannot fail:
// conversion errors and missing lookups degrade to "Unknown (N)".
func (x *Extractor) displayString(e *Entry, st *state) string {
	c := e.pconv
	if c == nil {
		return e.Logical.String()
	}
	if c.Lookup != nil {
		if n, ok := e.Logical.Int64(); ok {
			if s, ok := c.Lookup[n]; ok {
				return s
			}
		}
		return fmt.Sprintf("Unknown (%s)", e.Value)
	}
	v, err := x.applyConv(c, e.Logical, st)
	if err != nil {
		return fmt.Sprintf("Unknown (%s)", e.Value)
	}
	return v.String()
}

// applyConv runs one conversion stage. The resolver behind Expr binds
// $val to the input, then dependency values, then sibling tags.
func (x *Extractor) applyConv(c *Conv, in Value, st *state) (Value, error) {
	switch {
	case c.Lookup != nil:
		n, ok := in.Int64()
		if !ok {
			return Value{}, errors.New("lookup conversion on non-integer value")
		}
		s, ok := c.Lookup[n]
		if !ok {
			return Value{}, errors.Errorf("no lookup mapping for %d", n)
		}
		return Str(s), nil

	case c.Expr != "":
		return evalExpr(c.Expr, func(name string) (Value, bool) {
			switch name {
			case "val":
				return in, true
			case "make", "model":
				// Context references resolve through DataMembers
				// recorded earlier in the same file.
				v, ok := st.member(titleCase(name))
				return v, ok
			}
			if v, ok := st.member(name); ok {
				return v, true
			}
			if e, ok := st.lookup(name); ok {
				return e.logicalOrRaw(), true
			}
			return Value{}, false
		})

	case c.Pattern != nil:
		s := in.String()
		if c.Pattern.Format != "" {
			if f, ok := in.Float64(); ok {
				s = fmt.Sprintf(c.Pattern.Format, f)
			} else {
				s = fmt.Sprintf(c.Pattern.Format, s)
			}
		}
		if c.Pattern.Match != "" {
			re, err := regexp.Compile(c.Pattern.Match)
			if err != nil {
				return Value{}, errors.Wrap(err, "pattern conversion")
			}
			s = re.ReplaceAllString(s, c.Pattern.Replace)
		}
		return Str(s), nil

	case c.Func != "":
		fn, ok := x.convs.Lookup(c.Func)
		if !ok {
			return Value{}, errors.Errorf("unknown conversion function %q", c.Func)
		}
		return fn(in, &ConvContext{st: st})
	}
	return in, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
