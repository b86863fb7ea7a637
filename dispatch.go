package ifd

import (
	"encoding/binary"
	"fmt"
)

// Processor selection is a 3-level fallback: a conditional override on
// the tag itself, then the table default, then the generic directory
// walk. Tag overrides carry Conditions evaluated in declaration order
// against the raw bytes and already-extracted state; the first match
// wins together with its parameter map.

// Capability ranks how well a processor fits a context. Dispatch picks
// the highest rank instead of growing a conditional per manufacturer.
type Capability int

const (
	Incompatible Capability = iota
	Fallback
	Good
	Perfect
)

func (c Capability) String() string {
	switch c {
	case Perfect:
		return "perfect"
	case Good:
		return "good"
	case Fallback:
		return "fallback"
	}
	return "incompatible"
}

// A Processor interprets a directory or binary blob. Implementations
// include manufacturer-specific decoders whose internals are opaque to
// this package.
type Processor interface {
	// Assess ranks this processor's fit for the context. It must be
	// pure and cheap.
	Assess(ctx *ProcContext) Capability

	// Process interprets ctx.Data and records whatever it extracts
	// through the context. A returned error abandons this branch only.
	Process(ctx *ProcContext) error
}

// ProcContext is the transient view handed to one processor
// invocation: the immutable table, a borrowed slice of the directory's
// bytes, the selected candidate's parameters, and a mutable reference
// into the extraction state. It must not be retained.
type ProcContext struct {
	table  *Table
	data   []byte
	params map[string]string
	st     *state
	walk   *walker
	dir    DirectoryInfo
}

// Table returns the tag table in effect.
func (c *ProcContext) Table() *Table { return c.table }

// Data returns the directory's raw bytes. Callers must not mutate it.
func (c *ProcContext) Data() []byte { return c.data }

// Param returns a dispatch parameter, e.g. a decryption start offset.
func (c *ProcContext) Param(key string) (string, bool) {
	v, ok := c.params[key]
	return v, ok
}

// ByteOrder returns the byte order in effect.
func (c *ProcContext) ByteOrder() binary.ByteOrder { return c.st.order }

// Dir returns the directory descriptor being processed.
func (c *ProcContext) Dir() DirectoryInfo { return c.dir }

// Member returns a dependency value extracted earlier in this file.
func (c *ProcContext) Member(name string) (Value, bool) { return c.st.member(name) }

// Record adds an extracted tag. Conversion runs later with everything
// else, so processors only supply the raw value. When the table defines
// the identifier, its name and conversions apply; an empty name then
// falls back to the table's.
func (c *ProcContext) Record(id uint16, name string, raw Value) {
	group := c.table.Group
	if group == "" {
		group = c.table.Name
	}
	e := &Entry{Group: group, ID: id, Name: name, Value: raw}
	if def, ok := c.table.Lookup(id); ok {
		if e.Name == "" {
			e.Name = def.Name
		}
		e.vconv, e.pconv = def.ValueConv, def.PrintConv
	}
	if e.Name == "" {
		e.Name = fmt.Sprintf("Tag_0x%04X", id)
	}
	c.st.addEntry(e)
}

// Warnf records a minor warning against the current directory.
func (c *ProcContext) Warnf(format string, args ...interface{}) {
	c.st.warnf(WarnMinor, format, args...)
}

// Recurse walks a nested directory through the recursion guard, using
// this processor's table context. Blob decoders that uncover an
// embedded entry-list directory use this instead of reimplementing the
// walk.
func (c *ProcContext) Recurse(dir DirectoryInfo, table *Table) error {
	_, err := c.walk.processDirectory(dir, table)
	return err
}

// selectProcessor resolves the processor for a subdirectory tag:
// conditional tag overrides first, then the table default, then the
// generic walk (empty name).
func selectProcessor(def *TagDef, table *Table, ctx *condContext) (name string, params map[string]string) {
	for _, cand := range def.Processors {
		cond := cand.Cond
		if cond == nil {
			cond = Always()
		}
		if cond.holds(ctx) {
			return cand.Processor, cand.Params
		}
	}
	return table.DefaultProcessor, nil
}

// bestProcessor ranks every registered processor against the context
// and returns the highest capability, breaking ties by registration
// order. It returns false when nothing is at least a Fallback.
func (r *ProcRegistry) bestProcessor(ctx *ProcContext) (string, Processor, bool) {
	if r == nil {
		return "", nil, false
	}
	var (
		bestName string
		best     Processor
		rank     = Incompatible
	)
	for _, name := range r.names {
		p := r.procs[name]
		if c := p.Assess(ctx); c > rank {
			bestName, best, rank = name, p, c
		}
	}
	if rank == Incompatible {
		return "", nil, false
	}
	return bestName, best, true
}
