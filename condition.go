package ifd

import (
	"bytes"
	"regexp"
)

// A Condition is a pure predicate over a directory's raw bytes and the
// extraction state, used to select a processor at runtime. The variant
// set is closed; evaluation is side-effect free and linear in the bytes
// it inspects.
type Condition interface {
	holds(ctx *condContext) bool
}

// condContext carries what a Condition may look at.
type condContext struct {
	data   []byte // raw bytes of the value or subdirectory
	model  string // camera model, when a DataMember recorded one
	count  uint32
	format uint16
}

type condAlways struct{}

func (condAlways) holds(*condContext) bool { return true }

// Always matches unconditionally.
func Always() Condition { return condAlways{} }

type condDataPrefix struct{ prefix []byte }

func (c condDataPrefix) holds(ctx *condContext) bool {
	return bytes.HasPrefix(ctx.data, c.prefix)
}

// DataPrefix matches when the raw bytes start with the given prefix.
func DataPrefix(prefix ...byte) Condition {
	return condDataPrefix{prefix: prefix}
}

type condModel struct{ re *regexp.Regexp }

func (c condModel) holds(ctx *condContext) bool {
	return c.re.MatchString(ctx.model)
}

// ModelMatch matches when the camera model recorded in the extraction
// state matches the pattern. Conditions are static table data, so a bad
// pattern is a programming error and panics at construction.
func ModelMatch(pattern string) Condition {
	return condModel{re: regexp.MustCompile(pattern)}
}

type condAll struct{ cs []Condition }

func (c condAll) holds(ctx *condContext) bool {
	for _, sub := range c.cs {
		if !sub.holds(ctx) {
			return false
		}
	}
	return true
}

// AllOf matches when every sub-condition matches.
func AllOf(cs ...Condition) Condition { return condAll{cs: cs} }

type condAny struct{ cs []Condition }

func (c condAny) holds(ctx *condContext) bool {
	for _, sub := range c.cs {
		if sub.holds(ctx) {
			return true
		}
	}
	return false
}

// AnyOf matches when at least one sub-condition matches.
func AnyOf(cs ...Condition) Condition { return condAny{cs: cs} }
