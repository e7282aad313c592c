package natives

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"emo/internal/value"
	"emo/internal/vm"
)

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// RegisterUtil wires small, pure helper natives that need nothing beyond
// their arguments: uuid generation and human-readable formatting, the kind
// of general-purpose builtin the teacher exposes alongside its domain
// bindings.
func RegisterUtil(v *vm.VM) {
	v.RegisterNative("uuid", func(args []value.Value) (value.Value, error) {
		id := uuid.New()
		return value.FromObj(v.Allocator().InternString([]byte(id.String()))), nil
	})

	v.RegisterNative("humanize_bytes", func(args []value.Value) (value.Value, error) {
		n, err := numberArg(args, 0)
		if err != nil {
			return value.Meta, err
		}
		s := humanize.Bytes(uint64(n))
		return value.FromObj(v.Allocator().InternString([]byte(s))), nil
	})

	v.RegisterNative("humanize_time", func(args []value.Value) (value.Value, error) {
		seconds, err := numberArg(args, 0)
		if err != nil {
			return value.Meta, err
		}
		s := humanize.RelTime(v.StartTime(), v.StartTime().Add(secondsToDuration(seconds)), "from now", "ago")
		return value.FromObj(v.Allocator().InternString([]byte(s))), nil
	})
}
