package ifd

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ResolveComposites computes derived tags from the converted result of
// an extraction. Composites may depend on other composites: resolution
// runs in passes, re-examining the pending set while progress is made.
// A pass that builds nothing ends resolution; whatever is still pending
// has unsatisfiable or cyclic dependencies and is omitted with a
// warning. The pass count is bounded by the number of pending
// composites, so genuine cycles terminate.
//
// Within one pass, candidates are evaluated in declaration order, which
// makes resolution reproducible and, for satisfiable dependency sets,
// independent of declaration order across defs.
func (x *Extractor) ResolveComposites(entries []Entry, reg *CompositeRegistry) ([]Entry, []Warning) {
	st := newState(binary.BigEndian) // byte order is irrelevant past extraction
	avail := map[string]Value{}
	for i := range entries {
		e := &entries[i]
		st.addEntry(e)
		qualified := e.Group + ":" + e.Name
		if _, ok := avail[qualified]; !ok {
			avail[qualified] = e.logicalOrRaw()
		}
		if _, ok := avail[e.Name]; !ok {
			avail[e.Name] = e.logicalOrRaw()
		}
	}
	before := len(st.entries)

	pending := reg.Defs()
	for len(pending) > 0 {
		var deferred []*CompositeDef
		for _, def := range pending {
			if !dependenciesMet(def, avail) {
				deferred = append(deferred, def)
				continue
			}
			x.buildComposite(def, reg, avail, st)
		}
		if len(deferred) == len(pending) {
			break
		}
		pending = deferred
	}
	for _, def := range pending {
		st.warnf(WarnComposite, "%s: unsatisfiable or cyclic dependencies", def.Name)
	}

	out := make([]Entry, 0, len(st.entries)-before)
	for _, e := range st.entries[before:] {
		out = append(out, *e)
	}
	return out, st.warnings
}

// dependenciesMet reports whether every required key is available.
// Desired keys never block.
func dependenciesMet(def *CompositeDef, avail map[string]Value) bool {
	for _, key := range def.Require {
		if _, ok := avail[key]; !ok {
			return false
		}
	}
	return true
}

// buildComposite computes one composite and runs it through the same
// two-stage conversion as ordinary tags. Compute failures omit the
// composite with a warning; they do not defer it.
func (x *Extractor) buildComposite(def *CompositeDef, reg *CompositeRegistry, avail map[string]Value, st *state) {
	fn, ok := reg.compute(def.Compute)
	if !ok {
		st.warnf(WarnComposite, "%s: unknown compute function %q", def.Name, def.Compute)
		return
	}

	deps := map[string]Value{}
	for _, key := range append(append([]string{}, def.Require...), def.Desire...) {
		if v, ok := avail[key]; ok {
			deps[key] = v
		}
	}

	v, ok := fn(deps)
	if !ok {
		st.warnf(WarnComposite, "%s: compute yielded no value", def.Name)
		return
	}

	group := def.Group
	if group == "" {
		group = "Composite"
	}
	e := &Entry{
		Group: group,
		Name:  def.Name,
		Value: v,
		vconv: def.ValueConv,
		pconv: def.PrintConv,
	}
	st.addEntry(e)
	x.convertEntry(e, st)

	if _, ok := avail[def.Name]; !ok {
		avail[def.Name] = e.logicalOrRaw()
	}
	avail[group+":"+def.Name] = e.logicalOrRaw()
}

// RegisterStandardComputes seeds reg with the common derived-tag
// compute functions.
func RegisterStandardComputes(reg *CompositeRegistry) *CompositeRegistry {
	reg.Register("gpsLatitude", gpsCoordinate("GPSLatitude", "GPSLatitudeRef", "S"))
	reg.Register("gpsLongitude", gpsCoordinate("GPSLongitude", "GPSLongitudeRef", "W"))
	reg.Register("gpsPosition", computeGPSPosition)
	reg.Register("imageSize", computeImageSize)
	reg.Register("shutterSpeed", computeShutterSpeed)
	return reg
}

// toDegrees flattens a [degrees minutes seconds] rational triple into
// decimal degrees. A plain numeric value passes through.
func toDegrees(v Value) (float64, bool) {
	parts := v.Slice()
	if len(parts) == 0 {
		return 0, false
	}
	var deg float64
	divs := [...]float64{1, 60, 3600}
	for i, p := range parts {
		if i >= len(divs) {
			break
		}
		f, ok := p.Float64()
		if !ok {
			return 0, false
		}
		deg += f / divs[i]
	}
	return deg, true
}

// gpsCoordinate builds a compute function turning a coordinate triple
// plus its hemisphere reference into signed decimal degrees.
func gpsCoordinate(key, refKey, negRef string) CompositeFunc {
	return func(deps map[string]Value) (Value, bool) {
		raw, ok := deps[key]
		if !ok {
			return Value{}, false
		}
		deg, ok := toDegrees(raw)
		if !ok {
			return Value{}, false
		}
		if ref, ok := deps[refKey].Text(); ok && ref == negRef {
			deg = -deg
		}
		return Float(deg), true
	}
}

func computeGPSPosition(deps map[string]Value) (Value, bool) {
	lat, okLat := deps["Latitude"]
	lon, okLon := deps["Longitude"]
	if !okLat && !okLon {
		return Value{}, false
	}
	return Str(fmt.Sprintf("%s %s", lat, lon)), true
}

func computeImageSize(deps map[string]Value) (Value, bool) {
	w, okW := deps["ImageWidth"].Uint64()
	h, okH := deps["ImageHeight"].Uint64()
	if !okW || !okH {
		return Value{}, false
	}
	return Str(fmt.Sprintf("%dx%d", w, h)), true
}

// computeShutterSpeed prefers the plain exposure time; the APEX
// ShutterSpeedValue needs 2**-v to become seconds.
func computeShutterSpeed(deps map[string]Value) (Value, bool) {
	if v, ok := deps["ExposureTime"]; ok {
		if f, ok := v.Float64(); ok {
			return Float(f), true
		}
	}
	if v, ok := deps["ShutterSpeedValue"]; ok {
		if f, ok := v.Float64(); ok {
			return Float(math.Pow(2, -f)), true
		}
	}
	return Value{}, false
}
