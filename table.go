package ifd

import "encoding/binary"

// A Table maps tag identifiers to their definitions. Tables are static,
// read-only data built once (usually by generated code) and shared by
// reference across concurrent extractions.
type Table struct {
	// Name labels directories processed with this table, e.g. "ExifIFD".
	Name string

	// Group is the namespace recorded on every entry this table yields.
	Group string

	// DefaultProcessor names the processor handling subdirectories of
	// this table when no per-tag override condition matches. Empty means
	// the generic directory walk.
	DefaultProcessor string

	tags  map[uint16]*TagDef
	order []uint16 // declaration order, drives output ordering
}

// NewTable builds an empty table.
func NewTable(name, group string) *Table {
	return &Table{
		Name:  name,
		Group: group,
		tags:  map[uint16]*TagDef{},
	}
}

// Add declares a tag definition. Declaration order is retained: extracted
// entries are reported in the order their definitions were added, not in
// the raw byte order of the directory.
func (t *Table) Add(def *TagDef) *Table {
	if _, ok := t.tags[def.ID]; !ok {
		t.order = append(t.order, def.ID)
	}
	t.tags[def.ID] = def
	return t
}

// Lookup returns the definition for a tag identifier.
func (t *Table) Lookup(id uint16) (*TagDef, bool) {
	def, ok := t.tags[id]
	return def, ok
}

// A TagDef describes one tag: how to read it, how to convert it, and
// whether it points into a nested directory.
type TagDef struct {
	ID   uint16
	Name string

	// Format, when non-zero, overrides the format code stated in the
	// entry. Useful for tables whose writers lie about formats.
	Format uint16

	// Count, when non-empty, is an expression for the element count,
	// evaluated against the dependency-value map. A plain number is
	// allowed. Empty means the count stated in the entry.
	Count string

	// DataMember, when non-empty, stores the extracted value in the
	// dependency-value map under this name during the first pass, so
	// later tags (and processor conditions) can reference it.
	DataMember string

	// SubDir marks the tag as a pointer to a nested directory.
	SubDir *SubDirDef

	// Processors are conditional processing overrides for this tag,
	// evaluated in declaration order. The first matching candidate wins.
	Processors []ProcessorCandidate

	ValueConv *Conv
	PrintConv *Conv
}

// A SubDirDef describes the nested directory a tag points to.
type SubDirDef struct {
	// Table interprets the nested directory's entries.
	Table *Table

	// Relative states the nested directory's offsets relative to the
	// entry that declared it instead of the enclosing directory's base.
	Relative bool

	// ByteOrder, when non-nil, overrides the byte order inside the
	// nested directory.
	ByteOrder binary.ByteOrder

	// Fix rewrites the base offset before resolution, for formats whose
	// stated offsets are relative to an unconventional origin.
	Fix BaseCorrector

	// Reprocess permits entering an address already in the processed
	// set, for formats that legitimately revisit a directory.
	Reprocess bool

	// IsBlob marks the target as an opaque binary blob handed to a
	// processor rather than a walkable entry-list directory.
	IsBlob bool
}

// A ProcessorCandidate pairs a Condition with the processor to run when
// it holds, plus free-form parameters for that processor (a decryption
// start offset, a byte order name, ...).
type ProcessorCandidate struct {
	Cond      Condition
	Processor string
	Params    map[string]string
}

// A CompositeDef declares a derived tag computed from other tags'
// converted values by a named function from the registry.
type CompositeDef struct {
	Name    string
	Group   string
	Require []string // tag names that must be present
	Desire  []string // tag names used when present, never blocking
	Compute string   // name of the compute function

	ValueConv *Conv
	PrintConv *Conv
}
