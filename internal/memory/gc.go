// Package memory implements the precise, non-moving, tri-color mark-sweep
// collector described in spec.md §4.5. It owns the intrusive heap-object
// list and the gray worklist; it knows nothing about the VM's stack or
// compiler frames directly — those are supplied through the Roots
// interface, which keeps this package from importing internal/vm.
package memory

import (
	"emo/internal/object"
	"emo/internal/value"
)

// HeapGrowFactor is the multiplier applied to bytesAllocated to compute the
// next collection threshold (spec.md §4.5).
const HeapGrowFactor = 2

// initialNextGC mirrors clox's 1MB starting threshold; stress mode ignores
// it entirely.
const initialNextGC = 1 << 20

// Roots is implemented by the VM. MarkRoots marks every root value/object
// reachable from the stack, call frames, open upvalues, globals table, and
// the live compiler chain. PruneStrings walks the intern table, deleting
// entries whose key object did not survive marking.
type Roots interface {
	MarkRoots(gc *GC)
	PruneStrings(gc *GC)
}

// GC is the allocator's collector. All heap allocation is expected to pass
// through Register so BytesAllocated and the intrusive object list stay
// accurate.
type GC struct {
	objects        object.Obj
	BytesAllocated int
	NextGC         int
	StressMode     bool
	gray           []object.Obj
	extraRoots     []value.Value
}

func New() *GC {
	return &GC{NextGC: initialNextGC}
}

// Register prepends a freshly allocated object to the intrusive object
// list and accounts for its size, mirroring reallocate()'s bookkeeping.
// The size is stored on the object itself so sweep can later subtract it
// back out when the object is freed.
func (gc *GC) Register(o object.Obj, size int) {
	o.SetNext(gc.objects)
	o.SetSize(size)
	gc.objects = o
	gc.BytesAllocated += size
}

// ShouldCollect reports whether the allocator should invoke Collect before
// (or immediately after) the most recent Register call, per the trigger
// rule in spec.md §4.5/§5: stress mode always collects on growth, and
// otherwise only once bytesAllocated exceeds nextGC.
func (gc *GC) ShouldCollect() bool {
	if gc.StressMode {
		return true
	}
	return gc.BytesAllocated > gc.NextGC
}

// Collect runs one full mark-sweep cycle. extraRoots holds transient
// objects not yet reachable from any permanent root — e.g. a candidate
// string mid-intern — that must survive this cycle (spec.md §5's
// safe-point invariant).
func (gc *GC) Collect(roots Roots, extraRoots ...value.Value) {
	gc.extraRoots = extraRoots
	roots.MarkRoots(gc)
	for _, v := range extraRoots {
		gc.MarkValue(v)
	}
	gc.drainGray()
	roots.PruneStrings(gc)
	gc.sweep()
	gc.extraRoots = nil
	gc.NextGC = gc.BytesAllocated * HeapGrowFactor
}

// MarkValue marks v's underlying object, if it carries one. White values
// (Bool/Number/Meta) are not heap objects and need no marking.
func (gc *GC) MarkValue(v value.Value) {
	if v.IsObj() {
		if o, ok := v.AsObj().(object.Obj); ok {
			gc.MarkObject(o)
		}
	}
}

// MarkObject transitions a white object to gray: sets the mark bit and
// pushes it on the worklist for later blackening. Marking an
// already-marked object is a no-op, which is what makes cyclic object
// graphs (closures capturing closures) terminate.
func (gc *GC) MarkObject(o object.Obj) {
	if o == nil || o.IsMarked() {
		return
	}
	o.SetMarked(true)
	gc.gray = append(gc.gray, o)
}

func (gc *GC) drainGray() {
	for len(gc.gray) > 0 {
		n := len(gc.gray) - 1
		o := gc.gray[n]
		gc.gray = gc.gray[:n]
		o.Blacken(gc.MarkObject, gc.MarkValue)
	}
}

// Each walks every live heap object, in no particular order. Used at VM
// shutdown to close any still-open native resources (spec.md §B's
// free_vm-equivalent cleanup); never used mid-run.
func (gc *GC) Each(fn func(object.Obj)) {
	for o := gc.objects; o != nil; o = o.Next() {
		fn(o)
	}
}

// sweep frees every unmarked object from the intrusive list and clears the
// mark bit on survivors, ready for the next cycle.
func (gc *GC) sweep() {
	var prev object.Obj
	curr := gc.objects
	for curr != nil {
		if curr.IsMarked() {
			curr.SetMarked(false)
			prev = curr
			curr = curr.Next()
			continue
		}
		unreached := curr
		curr = curr.Next()
		if prev != nil {
			prev.SetNext(curr)
		} else {
			gc.objects = curr
		}
		gc.BytesAllocated -= unreached.Size() // Go's GC reclaims the object itself; no explicit free() needed.
	}
}
