package natives

import (
	"bytes"
	"strings"
	"testing"

	"emo/internal/vm"
)

func TestRegisterClockExposesNative(t *testing.T) {
	var out bytes.Buffer
	v := vm.New(vm.WithOutput(&out))
	RegisterClock(v)

	_, err := v.Interpret(`print(clock() >= 0);`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out.String()) != "true" {
		t.Errorf("output = %q, want %q", out.String(), "true")
	}
}
