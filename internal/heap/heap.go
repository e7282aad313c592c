// Package heap is the single allocation gateway described in spec.md
// §4.4/§4.5: every heap object — strings, functions, closures, upvalues,
// natives — is created here, which is also where GC triggering and
// string interning live. Both the compiler and the VM share one
// Allocator so that compile-time string constants and run-time
// concatenation results intern into the same table.
package heap

import (
	"io"

	"emo/internal/chunk"
	"emo/internal/memory"
	"emo/internal/object"
	"emo/internal/table"
	"emo/internal/value"
)

// sizeof approximates header + payload size for GC accounting. Exact byte
// counts don't matter for correctness, only for triggering collections at
// a realistic cadence.
const (
	sizeofString   = 32
	sizeofFunction = 64
	sizeofNative   = 24
	sizeofClosure  = 32
	sizeofUpvalue  = 24
	sizeofResource = 24
)

// Allocator owns the GC and the string-intern table, implementing the
// "two-step dance" of spec.md §4.4: allocate, then intern.
type Allocator struct {
	GC      *memory.GC
	Strings *table.Table
	roots   memory.Roots
}

func New() *Allocator {
	return &Allocator{GC: memory.New(), Strings: table.New()}
}

// SetRoots wires the allocator to the root provider (the VM) once it
// exists. Until this is called, maybeCollect is a no-op — safe during the
// earliest bootstrap allocations before a VM is constructed.
func (a *Allocator) SetRoots(r memory.Roots) {
	a.roots = r
}

func (a *Allocator) maybeCollect(extraRoots ...value.Value) {
	if a.roots == nil {
		return
	}
	if a.GC.ShouldCollect() {
		a.GC.Collect(a.roots, extraRoots...)
	}
}

// InternString implements spec.md §4.4's string-creation dance: hash the
// bytes and probe the intern table; an already-interned equal string is
// returned without allocating anything, otherwise a new string is
// allocated, registered and inserted. extraRoots lets a caller
// that doesn't yet have the candidate reachable from any permanent root
// (e.g. the compiler, with no VM stack to push onto) keep it alive across
// the collection this insert might trigger.
func (a *Allocator) InternString(chars []byte, extraRoots ...value.Value) *object.String {
	hash := object.FNV1a(chars)
	if existing := a.Strings.FindString(chars, hash); existing != nil {
		return existing
	}
	candidate := object.NewString(chars)
	a.GC.Register(candidate, sizeofString+len(chars))
	a.maybeCollect(append(extraRoots, value.FromObj(candidate))...)
	a.Strings.Set(value.FromObj(candidate), value.Bool(true))
	return candidate
}

// Concat builds and interns the concatenation of two strings, following
// the same allocate-then-intern pattern as InternString.
func (a *Allocator) Concat(x, y *object.String) *object.String {
	return a.InternString(object.Concat(x, y))
}

// NewFunction allocates a bare function object for the compiler to fill in.
func (a *Allocator) NewFunction() *object.Function {
	fn := object.NewFunction()
	a.GC.Register(fn, sizeofFunction)
	a.maybeCollect(value.FromObj(fn))
	return fn
}

// NewNative registers a host callable as a heap object.
func (a *Allocator) NewNative(name string, fn object.NativeFn) *object.Native {
	n := object.NewNative(name, fn)
	a.GC.Register(n, sizeofNative)
	a.maybeCollect(value.FromObj(n))
	return n
}

// NewClosure wraps fn, sized for its declared upvalue count.
func (a *Allocator) NewClosure(fn *object.Function) *object.Closure {
	c := object.NewClosure(fn)
	a.GC.Register(c, sizeofClosure+8*fn.UpvalueCount)
	a.maybeCollect(value.FromObj(c))
	return c
}

// NewUpvalue allocates a fresh open upvalue over slot, at absolute stack
// index stackIndex (used only to keep the VM's open-upvalue list ordered).
func (a *Allocator) NewUpvalue(slot *value.Value, stackIndex int) *object.Upvalue {
	u := object.NewUpvalue(slot, stackIndex)
	a.GC.Register(u, sizeofUpvalue)
	a.maybeCollect(value.FromObj(u))
	return u
}

// NewResource wraps a host-side handle (a DB connection, a websocket) as a
// heap object, letting natives return it to script code like any other
// value while keeping it reachable from the GC's sweep for shutdown.
func (a *Allocator) NewResource(kind string, handle io.Closer) *object.Resource {
	r := object.NewResource(kind, handle)
	a.GC.Register(r, sizeofResource)
	a.maybeCollect(value.FromObj(r))
	return r
}

// NewChunk is a thin convenience so callers never need to import
// internal/chunk solely to start a function body.
func NewChunk() *chunk.Chunk {
	return chunk.New()
}
