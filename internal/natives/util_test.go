package natives

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"emo/internal/vm"
)

func TestSecondsToDuration(t *testing.T) {
	d := secondsToDuration(1.5)
	if d != 1500*time.Millisecond {
		t.Errorf("secondsToDuration(1.5) = %v, want 1.5s", d)
	}
}

func TestUUIDThroughVM(t *testing.T) {
	var out bytes.Buffer
	v := vm.New(vm.WithOutput(&out))
	RegisterUtil(v)

	_, err := v.Interpret(`print(uuid());`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := strings.TrimSpace(out.String())
	if len(id) != 36 {
		t.Errorf("uuid() output %q has length %d, want 36", id, len(id))
	}
}

func TestHumanizeBytesThroughVM(t *testing.T) {
	var out bytes.Buffer
	v := vm.New(vm.WithOutput(&out))
	RegisterUtil(v)

	_, err := v.Interpret(`print(humanize_bytes(2048));`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.TrimSpace(out.String())
	if !strings.Contains(got, "kB") && !strings.Contains(got, "KB") {
		t.Errorf("humanize_bytes(2048) = %q, want a kB-scale string", got)
	}
}

func TestHumanizeTimeThroughVM(t *testing.T) {
	var out bytes.Buffer
	v := vm.New(vm.WithOutput(&out))
	RegisterUtil(v)

	_, err := v.Interpret(`print(humanize_time(60));`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.TrimSpace(out.String())
	if got == "" {
		t.Error("humanize_time should produce a non-empty relative-time string")
	}
}
