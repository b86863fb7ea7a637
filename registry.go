package ifd

// Registries replace process-wide static maps: they are built once,
// then passed by reference into the extraction entry points. The core
// holds no hidden global state, so tests can feed it fake registries.

// A ConvFunc is a named conversion routine, the escape hatch for logic
// too irregular to express declaratively. It receives the value to
// convert plus read access to the extraction state.
type ConvFunc func(v Value, ctx *ConvContext) (Value, error)

// A CompositeFunc computes a derived tag from the converted values of
// its dependencies, keyed by bare and group-qualified tag names. It
// returns false when the inputs do not yield a value.
type CompositeFunc func(deps map[string]Value) (Value, bool)

// ConvRegistry maps names to conversion functions.
type ConvRegistry struct {
	funcs map[string]ConvFunc
}

// NewConvRegistry builds an empty conversion registry.
func NewConvRegistry() *ConvRegistry {
	return &ConvRegistry{funcs: map[string]ConvFunc{}}
}

// Register binds a name to a conversion function.
func (r *ConvRegistry) Register(name string, fn ConvFunc) *ConvRegistry {
	r.funcs[name] = fn
	return r
}

// Lookup resolves a conversion function by name.
func (r *ConvRegistry) Lookup(name string) (ConvFunc, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.funcs[name]
	return fn, ok
}

// CompositeRegistry holds the composite definitions in declaration
// order plus their named compute functions.
type CompositeRegistry struct {
	defs  []*CompositeDef
	funcs map[string]CompositeFunc
}

// NewCompositeRegistry builds an empty composite registry.
func NewCompositeRegistry() *CompositeRegistry {
	return &CompositeRegistry{funcs: map[string]CompositeFunc{}}
}

// Define appends a composite definition. Declaration order is the
// evaluation order within each resolution pass.
func (r *CompositeRegistry) Define(def *CompositeDef) *CompositeRegistry {
	r.defs = append(r.defs, def)
	return r
}

// Register binds a name to a compute function.
func (r *CompositeRegistry) Register(name string, fn CompositeFunc) *CompositeRegistry {
	r.funcs[name] = fn
	return r
}

// Defs returns the declarations in declaration order.
func (r *CompositeRegistry) Defs() []*CompositeDef {
	if r == nil {
		return nil
	}
	return r.defs
}

func (r *CompositeRegistry) compute(name string) (CompositeFunc, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// ProcRegistry maps names to processors.
type ProcRegistry struct {
	procs map[string]Processor
	names []string // registration order, for deterministic ranking
}

// NewProcRegistry builds an empty processor registry.
func NewProcRegistry() *ProcRegistry {
	return &ProcRegistry{procs: map[string]Processor{}}
}

// Register binds a name to a processor.
func (r *ProcRegistry) Register(name string, p Processor) *ProcRegistry {
	if _, ok := r.procs[name]; !ok {
		r.names = append(r.names, name)
	}
	r.procs[name] = p
	return r
}

// Lookup resolves a processor by name.
func (r *ProcRegistry) Lookup(name string) (Processor, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.procs[name]
	return p, ok
}
