// Package object implements the heap-object model of spec.md §3/§4.4: an
// intrusive singly-linked object list, string interning support, and the
// closure/upvalue machinery the VM and compiler share.
package object

import (
	"fmt"
	"io"
	"strings"

	"emo/internal/chunk"
	"emo/internal/value"
)

// Type tags a heap object's concrete kind.
type Type byte

const (
	TypeString Type = iota
	TypeFunction
	TypeNative
	TypeClosure
	TypeUpvalue
	TypeResource
)

// Obj is implemented by every heap object variant. Mark/Next are plain
// accessors over an embedded Header so the GC can walk and sweep the
// intrusive list without importing the concrete types.
type Obj interface {
	Type() Type
	IsMarked() bool
	SetMarked(bool)
	Next() Obj
	SetNext(Obj)
	// Blacken scans the object's outgoing references, invoking markObj for
	// every referenced Obj and markVal for every referenced Value. Leaf
	// kinds (String, Native) implement it as a no-op.
	Blacken(markObj func(Obj), markVal func(value.Value))
	HashKey() uint32
	Identity() interface{}
	// Size reports the byte count the allocator registered this object
	// under (internal/heap's sizeof* constants). The GC subtracts it from
	// BytesAllocated when the object is swept, so the heap-growth
	// threshold tracks live bytes rather than a total-ever-allocated
	// counter.
	Size() int
	SetSize(int)
	fmt.Stringer
}

// Header is embedded by every concrete object type; it carries the mark
// bit, the intrusive list pointer, and the registered size described in
// spec.md §3.
type Header struct {
	marked bool
	next   Obj
	size   int
}

func (h *Header) IsMarked() bool   { return h.marked }
func (h *Header) SetMarked(m bool) { h.marked = m }
func (h *Header) Next() Obj        { return h.next }
func (h *Header) SetNext(o Obj)    { h.next = o }
func (h *Header) Size() int        { return h.size }
func (h *Header) SetSize(n int)    { h.size = n }

// String is an immutable, interned string object. Hash is the FNV-1a hash
// of Chars, computed once at construction.
type String struct {
	Header
	Chars []byte
	Hash  uint32
}

// NewString builds a string object and computes its hash. It does not
// intern — interning is the allocator's job (internal/heap), since it
// needs access to the shared intern table and GC.
func NewString(chars []byte) *String {
	return &String{Chars: chars, Hash: FNV1a(chars)}
}

// FNV1a is the 32-bit FNV-1a hash used for every string object, per
// spec.md §3.
func FNV1a(data []byte) uint32 {
	var h uint32 = 2166136261
	for _, b := range data {
		h ^= uint32(b)
		h *= 16777619
	}
	return h
}

func (s *String) Type() Type   { return TypeString }
func (s *String) HashKey() uint32 { return s.Hash }
func (s *String) Identity() interface{} { return s }
func (s *String) String() string { return string(s.Chars) }
func (s *String) Blacken(func(Obj), func(value.Value)) {}

// Function is produced by the compiler and never mutated by the VM.
type Function struct {
	Header
	Name         *String // nil for the top-level script
	Arity        int
	UpvalueCount int
	Chunk        *chunk.Chunk
}

func NewFunction() *Function {
	return &Function{Chunk: chunk.New()}
}

func (f *Function) Type() Type   { return TypeFunction }
func (f *Function) HashKey() uint32 { return 0 }
func (f *Function) Identity() interface{} { return f }
func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}
func (f *Function) Blacken(markObj func(Obj), markVal func(value.Value)) {
	if f.Name != nil {
		markObj(f.Name)
	}
	for _, c := range f.Chunk.Constants {
		markVal(c)
	}
}

// NativeFn is the signature every embedder-registered native callable
// implements (spec.md §6). It receives the full argument span and reports
// errors explicitly, a small generalization over the spec's bare
// `(arg_count, args) -> Value` so natives that perform I/O (see
// internal/natives) can fail cleanly instead of panicking.
type NativeFn func(args []value.Value) (value.Value, error)

// Native wraps a host-language function callable from script code.
type Native struct {
	Header
	Name string
	Fn   NativeFn
}

func NewNative(name string, fn NativeFn) *Native {
	return &Native{Name: name, Fn: fn}
}

func (n *Native) Type() Type   { return TypeNative }
func (n *Native) HashKey() uint32 { return 0 }
func (n *Native) Identity() interface{} { return n }
func (n *Native) String() string { return fmt.Sprintf("<native %s>", n.Name) }
func (n *Native) Blacken(func(Obj), func(value.Value)) {}

// Upvalue is open while Location points into a live stack slot, and closed
// once the slot has been hoisted into Closed.
type Upvalue struct {
	Header
	Location *value.Value
	Closed   value.Value
	// StackIndex is the absolute stack slot Location referenced while open.
	// Go doesn't let us order raw pointers, so the VM's open-upvalue list
	// (sorted by descending stack address, per spec.md §3) is kept sorted
	// by this index instead; it's meaningless once the upvalue is closed.
	StackIndex int
	NextOpen   *Upvalue // singly-linked, descending stack address
}

func NewUpvalue(slot *value.Value, stackIndex int) *Upvalue {
	return &Upvalue{Location: slot, StackIndex: stackIndex}
}

func (u *Upvalue) Type() Type   { return TypeUpvalue }
func (u *Upvalue) HashKey() uint32 { return 0 }
func (u *Upvalue) Identity() interface{} { return u }
func (u *Upvalue) String() string { return "<upvalue>" }
func (u *Upvalue) Blacken(_ func(Obj), markVal func(value.Value)) {
	markVal(u.Closed)
}

// Close hoists the referenced stack value into the upvalue itself and
// retargets Location at its own storage.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// Closure pairs a Function with the upvalues it captured at creation time.
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

func NewClosure(fn *Function) *Closure {
	return &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
}

func (c *Closure) Type() Type   { return TypeClosure }
func (c *Closure) HashKey() uint32 { return 0 }
func (c *Closure) Identity() interface{} { return c }
func (c *Closure) String() string { return c.Function.String() }
func (c *Closure) Blacken(markObj func(Obj), markVal func(value.Value)) {
	markObj(c.Function)
	for _, uv := range c.Upvalues {
		if uv != nil {
			markObj(uv)
		}
	}
}

// Resource wraps a host-side handle (an open database connection, a live
// websocket) that a native returned to script code. Like Native it is a
// leaf for GC purposes: Blacken is a no-op since nothing inside it is a
// script Value. Close releases the underlying handle; free_vm-equivalent
// shutdown calls it for every resource still on the heap.
type Resource struct {
	Header
	Kind   string // "db", "ws", ...
	Handle io.Closer
}

func NewResource(kind string, handle io.Closer) *Resource {
	return &Resource{Kind: kind, Handle: handle}
}

func (r *Resource) Type() Type           { return TypeResource }
func (r *Resource) HashKey() uint32      { return 0 }
func (r *Resource) Identity() interface{} { return r }
func (r *Resource) String() string       { return fmt.Sprintf("<%s resource>", r.Kind) }
func (r *Resource) Blacken(func(Obj), func(value.Value)) {}

// Close releases the underlying handle, tolerating a nil Handle (a
// resource whose native never actually opened anything, e.g. on a failed
// db_open).
func (r *Resource) Close() error {
	if r.Handle == nil {
		return nil
	}
	return r.Handle.Close()
}

// Concat builds the string "a+b" bytes for OP_ADD's string arm. Interning
// the result is the allocator's responsibility.
func Concat(a, b *String) []byte {
	var sb strings.Builder
	sb.Grow(len(a.Chars) + len(b.Chars))
	sb.Write(a.Chars)
	sb.Write(b.Chars)
	return []byte(sb.String())
}
