package vm

import (
	"emo/internal/memory"
	"emo/internal/object"
	"emo/internal/value"
)

// MarkRoots implements memory.Roots: every value slot on the stack, every
// closure on the call-frame stack, every open upvalue, and every global is
// a root (spec.md §4.5). Ancestor compiler frames are not walked here —
// InternString's extraRoots parameter already keeps the one Function
// actively under construction alive across a collection triggered mid
// compile, and a frame's enclosing functions only become reachable objects
// once OP_CLOSURE emits a constant referencing them, at which point they
// live in a Chunk.Constants slice that gets marked the normal way.
func (v *VM) MarkRoots(gc *memory.GC) {
	for i := 0; i < v.stackTop; i++ {
		gc.MarkValue(v.stack[i])
	}
	for i := 0; i < v.frameCount; i++ {
		gc.MarkObject(v.frames[i].closure)
	}
	for uv := v.openUpvalues; uv != nil; uv = uv.NextOpen {
		gc.MarkObject(uv)
	}
	v.globals.Each(func(key, val value.Value) bool {
		gc.MarkValue(key)
		gc.MarkValue(val)
		return false
	})
}

// PruneStrings deletes any intern-table entry whose key string did not
// survive marking, so the table never pins a dead string alive (spec.md
// §4.5's weak-reference treatment of the intern set).
func (v *VM) PruneStrings(gc *memory.GC) {
	v.alloc.Strings.Each(func(key, _ value.Value) bool {
		if !key.IsObj() {
			return false
		}
		o, ok := key.AsObj().(object.Obj)
		return ok && !o.IsMarked()
	})
}
