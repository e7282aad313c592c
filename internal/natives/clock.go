package natives

import "emo/internal/vm"

// RegisterClock installs the baseline `clock()` builtin spec.md §6 names
// explicitly, so RegisterAll gives every embedder the same surface
// regardless of which vm.Option set they constructed the VM with.
func RegisterClock(v *vm.VM) {
	v.RegisterClock()
}
