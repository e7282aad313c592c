// Package natives registers the host-callable builtins that give emo its
// domain stack (SPEC_FULL.md §B): database access, websockets, small
// utility helpers, and signing. The language core has no module/import
// system by design (spec.md §1's Non-goals), so every one of these is
// wired in as a plain global native function, the only extension point
// spec.md §6 grants an embedder.
package natives

import (
	"strconv"

	"emo/internal/object"
	"emo/internal/value"
	"emo/internal/vm"
)

// wrapResource boxes handle as a heap Resource object and returns it as a
// Value, the natives' uniform way of handing an opaque connection back to
// script code (spec.md §B: "Obj Resource ... opaque handle").
func wrapResource(v *vm.VM, kind string, handle interface{ Close() error }) value.Value {
	r := v.Allocator().NewResource(kind, handle)
	return value.FromObj(r)
}

// resourceArg extracts the *object.Resource a native expects at args[i],
// reporting a runtime-shaped error on type mismatch.
func resourceArg(args []value.Value, i int, kind string) (*object.Resource, error) {
	if i >= len(args) || !args[i].IsObj() {
		return nil, errArgType(i, "resource")
	}
	r, ok := args[i].AsObj().(*object.Resource)
	if !ok || r.Kind != kind {
		return nil, errArgType(i, kind+" resource")
	}
	return r, nil
}

func stringArg(args []value.Value, i int) (string, error) {
	if i >= len(args) || !args[i].IsObj() {
		return "", errArgType(i, "string")
	}
	s, ok := args[i].AsObj().(*object.String)
	if !ok {
		return "", errArgType(i, "string")
	}
	return string(s.Chars), nil
}

func numberArg(args []value.Value, i int) (float64, error) {
	if i >= len(args) || !args[i].IsNumber() {
		return 0, errArgType(i, "number")
	}
	return args[i].AsNumber(), nil
}

func errArgType(i int, want string) error {
	return argTypeError{index: i, want: want}
}

type argTypeError struct {
	index int
	want  string
}

func (e argTypeError) Error() string {
	return "argument " + strconv.Itoa(e.index) + " must be a " + e.want
}

// RegisterAll wires every natives file's builtins into v. Individual
// Register* functions stay exported so an embedder can opt into a subset
// (e.g. skip db/net natives in a sandboxed build).
func RegisterAll(v *vm.VM) {
	RegisterClock(v)
	RegisterDB(v)
	RegisterNet(v)
	RegisterUtil(v)
	RegisterCrypto(v)
}
