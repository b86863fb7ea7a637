package ifd

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// An Entry is one extracted tag: raw value, logical value after
// ValueConv, display string after PrintConv. Entries are immutable once
// conversion completes.
type Entry struct {
	Group   string
	ID      uint16
	Name    string
	Value   Value  // raw, as decoded from the buffer
	Logical Value  // after ValueConv; falls back to raw on failure
	Display string // after PrintConv; never empty for a valid entry

	vconv *Conv
	pconv *Conv
}

// DirectoryInfo describes one directory to traverse. A fresh value is
// built each time a directory is entered and dropped afterwards.
//
// The absolute position of the directory is Start + DataPos + Base;
// stated offsets inside it resolve the same way.
type DirectoryInfo struct {
	Name    string
	Start   int64 // directory start offset, relative
	Len     int64 // directory byte length, bounds the entry list; 0 means up to the buffer end
	Base    int64
	DataPos int64

	// Reprocess permits re-entering an address already processed.
	Reprocess bool

	// Fix, when non-nil, rewrites Base before any offset resolution.
	Fix BaseCorrector
}

// Options tunes one Extractor. The zero value uses the defaults.
type Options struct {
	MaxDepth   int // directory nesting cap, default 10
	MaxEntries int // per-directory entry cap, default 512

	Convs *ConvRegistry
	Procs *ProcRegistry
}

// An Extractor traverses directories against immutable tables and
// registries. It holds no per-file state: one Extractor may serve any
// number of concurrent Extract calls.
type Extractor struct {
	maxDepth   int
	maxEntries int
	convs      *ConvRegistry
	procs      *ProcRegistry
}

// NewExtractor builds an Extractor.
func NewExtractor(opts Options) *Extractor {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	return &Extractor{
		maxDepth:   opts.MaxDepth,
		maxEntries: opts.MaxEntries,
		convs:      opts.Convs,
		procs:      opts.Procs,
	}
}

// Extract traverses the directory described by dir and everything it
// points to, then converts every extracted tag. The buffer is borrowed,
// never retained. Fatal conditions on the top-level directory return an
// error; everything else is recovered and reported as warnings.
func (x *Extractor) Extract(buf []byte, dir DirectoryInfo, table *Table, order binary.ByteOrder) ([]Entry, []Warning, error) {
	if order == nil {
		return nil, nil, FormatError("byte order not declared")
	}
	w := &walker{x: x, buf: buf, st: newState(order)}

	// Top-level directories chain: the entry list may be followed by a
	// 4-byte offset to the next directory (IFD0 -> IFD1 -> ...).
	name := dir.Name
	for chain := 0; ; chain++ {
		next, err := w.processDirectory(dir, table)
		if err != nil {
			if chain == 0 {
				return nil, w.st.warnings, err
			}
			if cerr, ok := err.(*CircularRefError); ok {
				w.st.warnf(WarnCircular, "%s: %v", dir.Name, cerr)
			} else {
				w.st.warnf(WarnMinor, "%s: %v", dir.Name, err)
			}
			break
		}
		if next <= 0 {
			break
		}
		dir = DirectoryInfo{
			Name:    fmt.Sprintf("%s+%d", name, chain+1),
			Start:   next,
			Base:    dir.Base,
			DataPos: dir.DataPos,
		}
	}

	x.convertAll(w.st)

	out := make([]Entry, len(w.st.entries))
	for i, e := range w.st.entries {
		out[i] = *e
	}
	return out, w.st.warnings, nil
}

// ExtractBlock parses the TIFF-style header at the start of buf and
// extracts the directory chain it points to.
func (x *Extractor) ExtractBlock(buf []byte, table *Table) ([]Entry, []Warning, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, nil, err
	}
	dir := DirectoryInfo{Name: "IFD0", Start: h.FirstDir}
	return x.Extract(buf, dir, table, h.ByteOrder)
}

// walker is the per-extraction traversal driver.
type walker struct {
	x     *Extractor
	buf   []byte
	st    *state
	depth int
}

// rawEntry is one fixed-size entry record in raw byte order.
type rawEntry struct {
	id     uint16
	format uint16
	count  uint32
	off    int64 // absolute offset of the 12-byte record
}

// subdirJob defers a subdirectory until its siblings are extracted.
type subdirJob struct {
	re  rawEntry
	def *TagDef
}

// processDirectory runs the traversal state machine over one directory:
// read header, read entries, resolve dependencies, extract tags, follow
// subdirectories. It returns the chained next-directory offset, or an
// error for conditions fatal to this directory.
func (w *walker) processDirectory(dir DirectoryInfo, table *Table) (int64, error) {
	if w.depth >= w.x.maxDepth {
		return 0, FormatError("maximum directory depth exceeded")
	}

	if dir.Fix != nil {
		at := dir.Start + dir.DataPos + dir.Base
		if at >= 0 && at < int64(len(w.buf)) {
			dir.Base = dir.Fix(w.buf[at:], dir.Name)
		}
	}

	addr := dir.Start + dir.DataPos + dir.Base
	if err := w.st.enter(addr, dir.Name, dir.Reprocess); err != nil {
		return 0, err
	}
	defer w.st.leave()
	w.depth++
	defer func() { w.depth-- }()

	// ReadHeader: a directory opens with its 2-byte entry count. The
	// entry list must fit the declared directory window; pointed values
	// may still live outside it.
	limit := int64(len(w.buf))
	if dir.Len > 0 && addr+dir.Len < limit {
		limit = addr + dir.Len
	}
	if addr < 0 || addr+2 > limit {
		return 0, FormatError("directory start out of bounds")
	}
	count := int(w.st.order.Uint16(w.buf[addr:]))
	if count > w.x.maxEntries {
		return 0, FormatError(fmt.Sprintf("entry count %d exceeds cap", count))
	}
	end := addr + 2 + int64(count)*entryLen
	if end > limit {
		return 0, FormatError("declared entry list exceeds directory bounds")
	}

	// ReadEntries: fixed records, raw order, which need not match
	// declaration order.
	raws := make([]rawEntry, count)
	for i := 0; i < count; i++ {
		off := addr + 2 + int64(i)*entryLen
		raws[i] = rawEntry{
			id:     w.st.order.Uint16(w.buf[off:]),
			format: w.st.order.Uint16(w.buf[off+2:]),
			count:  w.st.order.Uint32(w.buf[off+4:]),
			off:    off,
		}
	}

	// ResolveDependencies: dependency sources are extracted first so
	// later format/count expressions can see them, wherever they sit
	// physically. Results are cached so ExtractTags never re-reads.
	cache := map[int]Value{}
	cacheErr := map[int]error{}
	for i, re := range raws {
		def, ok := table.Lookup(re.id)
		if !ok || def.DataMember == "" {
			continue
		}
		v, err := w.entryValue(re, def, dir)
		if err != nil {
			cacheErr[i] = err
			continue
		}
		cache[i] = v
		w.st.setMember(def.DataMember, v)
	}

	// ExtractTags: declared tags first, in table declaration order,
	// then unrecognized tags in raw order. Malformed entries are
	// skipped with a warning; siblings continue.
	byID := map[uint16]int{}
	for i, re := range raws {
		if _, ok := byID[re.id]; !ok {
			byID[re.id] = i
		}
	}

	var subdirs []subdirJob
	group := table.Group
	if group == "" {
		group = table.Name
	}

	extract := func(i int, def *TagDef) {
		re := raws[i]
		if def != nil && def.SubDir != nil {
			subdirs = append(subdirs, subdirJob{re: re, def: def})
			return
		}
		v, ok := cache[i]
		if !ok {
			var err error
			if err, ok = cacheErr[i]; !ok {
				v, err = w.entryValue(re, def, dir)
			}
			if err != nil {
				w.st.warnf(WarnMinor, "tag 0x%04X skipped: %v", re.id, err)
				return
			}
		}
		name := fmt.Sprintf("Tag_0x%04X", re.id)
		var vconv, pconv *Conv
		if def != nil {
			name = def.Name
			vconv, pconv = def.ValueConv, def.PrintConv
		}
		w.st.addEntry(&Entry{
			Group: group,
			ID:    re.id,
			Name:  name,
			Value: v,
			vconv: vconv,
			pconv: pconv,
		})
	}

	seen := map[int]bool{}
	for _, id := range table.order {
		i, ok := byID[id]
		if !ok {
			continue
		}
		def, _ := table.Lookup(id)
		extract(i, def)
		seen[i] = true
	}
	for i := range raws {
		if !seen[i] {
			extract(i, nil)
		}
	}

	// FollowSubdirectories: recurse through the guard, abandoning only
	// the offending branch on failure.
	for _, job := range subdirs {
		w.followSubdir(job, dir, table)
	}

	// A 4-byte next-directory offset may close the entry list.
	if end+4 <= limit {
		return int64(w.st.order.Uint32(w.buf[end:])), nil
	}
	return 0, nil
}

// entryValue decodes one entry's value: count resolution, inline versus
// pointed storage, bounds checks.
func (w *walker) entryValue(re rawEntry, def *TagDef, dir DirectoryInfo) (Value, error) {
	format := re.format
	if def != nil && def.Format != 0 {
		format = def.Format
	}
	elen := formatLength(format)
	if elen == 0 {
		return Value{}, UnsupportedError(fmt.Sprintf("format code %d", format))
	}

	count := re.count
	if def != nil && def.Count != "" {
		n, err := w.resolveCount(def.Count)
		if err != nil {
			return Value{}, err
		}
		count = n
	}

	span := int64(elen) * int64(count)
	if span <= 4 {
		return readValue(w.buf, re.off+8, format, count, w.st.order)
	}

	rel := int64(w.st.order.Uint32(w.buf[re.off+8:]))
	abs, err := resolveOffset(dir.Base, dir.DataPos, rel, int64(len(w.buf)))
	if err != nil {
		return Value{}, err
	}
	return readValue(w.buf, abs, format, count, w.st.order)
}

// resolveCount evaluates a declared count expression against the
// dependency-value map.
func (w *walker) resolveCount(expr string) (uint32, error) {
	v, err := evalExpr(expr, func(name string) (Value, bool) {
		return w.st.member(name)
	})
	if err != nil {
		return 0, errors.Wrap(err, "count")
	}
	n, ok := v.Int64()
	if !ok || n < 0 {
		return 0, errors.Errorf("count expression %q is not a valid count", expr)
	}
	return uint32(n), nil
}

// followSubdir resolves the target of a subdirectory tag, dispatches a
// processor for it and recurses. Failures abandon this branch only.
func (w *walker) followSubdir(job subdirJob, dir DirectoryInfo, table *Table) {
	sub := job.def.SubDir
	re := job.re

	target, data, err := w.subdirTarget(re, dir)
	if err != nil {
		w.st.warnf(WarnMinor, "%s: subdirectory skipped: %v", job.def.Name, err)
		return
	}

	subTable := sub.Table
	if subTable == nil {
		subTable = table
	}

	cctx := &condContext{
		data:   data,
		model:  w.st.memberText("Model"),
		count:  re.count,
		format: re.format,
	}
	procName, params := selectProcessor(job.def, subTable, cctx)

	next := DirectoryInfo{
		Name:      job.def.Name,
		Start:     target - dir.Base - dir.DataPos,
		Len:       int64(len(data)),
		Base:      dir.Base,
		DataPos:   dir.DataPos,
		Reprocess: sub.Reprocess,
		Fix:       sub.Fix,
	}
	if sub.Relative {
		// Offsets inside the nested block are stated relative to the
		// entry that declared it, not the enclosing directory's base.
		next.Base = re.off
		next.DataPos = 0
		next.Start = target - re.off
	}

	prevOrder := w.st.order
	if sub.ByteOrder != nil {
		w.st.order = sub.ByteOrder
	}
	defer func() { w.st.order = prevOrder }()

	if procName != "" {
		p, ok := w.x.procs.Lookup(procName)
		if !ok {
			w.st.warnf(WarnMinor, "%s: unknown processor %q", job.def.Name, procName)
			return
		}
		pc := &ProcContext{table: subTable, data: data, params: params, st: w.st, walk: w, dir: next}
		if err := p.Process(pc); err != nil {
			w.st.warnf(WarnMinor, "%s: processor %q: %v", job.def.Name, procName, err)
		}
		return
	}

	if sub.IsBlob {
		// Opaque blob with no explicit dispatch: let the registry rank
		// its processors and take the most capable one.
		pc := &ProcContext{table: subTable, data: data, st: w.st, walk: w, dir: next}
		name, p, ok := w.x.procs.bestProcessor(pc)
		if !ok {
			w.st.warnf(WarnMinor, "%s: no capable processor", job.def.Name)
			return
		}
		if err := p.Process(pc); err != nil {
			w.st.warnf(WarnMinor, "%s: processor %q: %v", job.def.Name, name, err)
		}
		return
	}

	if _, err := w.processDirectory(next, subTable); err != nil {
		if cerr, ok := err.(*CircularRefError); ok {
			w.st.warnf(WarnCircular, "%s: %v", job.def.Name, cerr)
			return
		}
		w.st.warnf(WarnMinor, "%s: %v", job.def.Name, err)
	}
}

// subdirTarget computes the absolute offset and byte window of a
// subdirectory from its declaring entry.
func (w *walker) subdirTarget(re rawEntry, dir DirectoryInfo) (int64, []byte, error) {
	size := int64(len(w.buf))

	switch re.format {
	case FormatLong, FormatShort, FormatSLong:
		// The entry value is the offset of the nested directory.
		v, err := readValue(w.buf, re.off+8, re.format, 1, w.st.order)
		if err != nil {
			return 0, nil, err
		}
		rel, _ := v.Int64()
		abs, err := resolveOffset(dir.Base, dir.DataPos, rel, size)
		if err != nil {
			return 0, nil, err
		}
		return abs, w.window(abs, 0), nil
	default:
		// The entry value is the nested block itself (classic
		// Undefined maker note payloads).
		elen := formatLength(re.format)
		if elen == 0 {
			return 0, nil, UnsupportedError(fmt.Sprintf("format code %d", re.format))
		}
		span := int64(elen) * int64(re.count)
		if span <= 4 {
			return re.off + 8, w.window(re.off+8, span), nil
		}
		rel := int64(w.st.order.Uint32(w.buf[re.off+8:]))
		abs, err := resolveOffset(dir.Base, dir.DataPos, rel, size)
		if err != nil {
			return 0, nil, err
		}
		if abs+span > size {
			return 0, nil, &BoundsError{Offset: abs, Length: span, Size: size}
		}
		return abs, w.window(abs, span), nil
	}
}

// window returns the buffer slice at abs, clamped to n bytes when n > 0.
func (w *walker) window(abs, n int64) []byte {
	if abs < 0 || abs >= int64(len(w.buf)) {
		return nil
	}
	if n <= 0 || abs+n > int64(len(w.buf)) {
		return w.buf[abs:]
	}
	return w.buf[abs : abs+n]
}
