package ifd

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// state is the mutable context of one in-flight extraction. It is owned
// by exactly one call to Extract and is discarded when that call
// returns; nothing in here is shared between extractions.
type state struct {
	processed map[int64]string // directory address -> name that claimed it
	members   map[string]Value // DataMember name -> value
	path      []string         // directory names from the root down
	order     binary.ByteOrder // current byte order, can be overridden per subdirectory
	entries   []*Entry
	index     map[string]*Entry // "Group:Name" and bare name -> first entry extracted
	warnings  []Warning
}

func newState(order binary.ByteOrder) *state {
	return &state{
		processed: map[int64]string{},
		members:   map[string]Value{},
		index:     map[string]*Entry{},
		order:     order,
	}
}

// addEntry appends an extracted tag and indexes it under both its
// group-qualified and bare names. The first extraction of a name wins;
// duplicates stay reachable through the ordered entry list.
func (st *state) addEntry(e *Entry) {
	st.entries = append(st.entries, e)
	qualified := e.Group + ":" + e.Name
	if _, ok := st.index[qualified]; !ok {
		st.index[qualified] = e
	}
	if _, ok := st.index[e.Name]; !ok {
		st.index[e.Name] = e
	}
}

// lookup resolves an extracted tag by bare or group-qualified name.
func (st *state) lookup(name string) (*Entry, bool) {
	e, ok := st.index[name]
	return e, ok
}

// enter records a directory address in the processed set and pushes its
// name onto the path stack. Re-entering an address without the
// reprocess flag is a CircularRefError and the directory must not be
// traversed. Every successful enter is paired with exactly one leave,
// on all exit paths.
func (st *state) enter(addr int64, name string, reprocess bool) error {
	if prev, ok := st.processed[addr]; ok && !reprocess {
		return &CircularRefError{Name: name, Previous: prev}
	}
	st.processed[addr] = name
	st.path = append(st.path, name)
	return nil
}

// leave pops the path stack. The processed set keeps the address so a
// later sibling pointing at the same directory is still caught.
func (st *state) leave() {
	st.path = st.path[:len(st.path)-1]
}

// dir returns the current directory path, e.g. "IFD0/ExifIFD/MakerNotes".
func (st *state) dir() string {
	return strings.Join(st.path, "/")
}

func (st *state) warnf(code WarnCode, format string, args ...interface{}) {
	st.warnings = append(st.warnings, Warning{
		Code:    code,
		Dir:     st.dir(),
		Message: fmt.Sprintf(format, args...),
	})
}

// setMember records a dependency value extracted during the first pass
// over a directory's entries.
func (st *state) setMember(name string, v Value) {
	st.members[name] = v
}

// member resolves a dependency value by name.
func (st *state) member(name string) (Value, bool) {
	v, ok := st.members[name]
	return v, ok
}

// memberText resolves a dependency value as a string, for condition
// evaluation against e.g. the camera model.
func (st *state) memberText(name string) string {
	v, ok := st.members[name]
	if !ok {
		return ""
	}
	return v.String()
}
