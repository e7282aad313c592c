package object

import (
	"errors"
	"testing"

	"emo/internal/value"
)

type fakeCloser struct {
	closed bool
	err    error
}

func (f *fakeCloser) Close() error {
	f.closed = true
	return f.err
}

func TestFNV1aIsDeterministic(t *testing.T) {
	a := FNV1a([]byte("hello"))
	b := FNV1a([]byte("hello"))
	if a != b {
		t.Errorf("FNV1a not deterministic: %d != %d", a, b)
	}
	if FNV1a([]byte("hello")) == FNV1a([]byte("world")) {
		t.Error("distinct strings unexpectedly hash equal (not itself a bug, but worth knowing)")
	}
}

func TestStringIdentityIsPointerBased(t *testing.T) {
	a := NewString([]byte("x"))
	b := NewString([]byte("x"))
	if a.Identity() == b.Identity() {
		t.Error("two distinct String objects with equal contents must not share Identity (interning is the allocator's job, not NewString's)")
	}
	if a.Identity() != a.Identity() {
		t.Error("a String's Identity must be stable across calls")
	}
}

func TestUpvalueCloseHoistsValue(t *testing.T) {
	slot := value.Number(7)
	uv := NewUpvalue(&slot, 3)

	if uv.Location != &slot {
		t.Fatal("open upvalue should point at the stack slot")
	}

	uv.Close()

	if uv.Location == &slot {
		t.Error("closed upvalue must not still point into the stack slot")
	}
	if uv.Closed.AsNumber() != 7 {
		t.Errorf("Closed = %v, want 7", uv.Closed)
	}
	if uv.Location.AsNumber() != 7 {
		t.Errorf("Location after close should read back 7, got %v", uv.Location.AsNumber())
	}
}

func TestClosureUpvalueSlotCount(t *testing.T) {
	fn := NewFunction()
	fn.UpvalueCount = 2
	c := NewClosure(fn)
	if len(c.Upvalues) != 2 {
		t.Errorf("len(Upvalues) = %d, want 2", len(c.Upvalues))
	}
}

func TestResourceCloseTolerantOfNilHandle(t *testing.T) {
	r := NewResource("db", nil)
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil handle should be a no-op, got %v", err)
	}
}

func TestResourceCloseDelegatesToHandle(t *testing.T) {
	fc := &fakeCloser{}
	r := NewResource("ws", fc)
	if err := r.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fc.closed {
		t.Error("Resource.Close should close the wrapped handle")
	}
}

func TestResourceClosePropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	r := NewResource("db", &fakeCloser{err: wantErr})
	if err := r.Close(); err != wantErr {
		t.Errorf("Close() = %v, want %v", err, wantErr)
	}
}

func TestConcat(t *testing.T) {
	a := NewString([]byte("foo"))
	b := NewString([]byte("bar"))
	got := string(Concat(a, b))
	if got != "foobar" {
		t.Errorf("Concat = %q, want %q", got, "foobar")
	}
}

func TestMarkedDefaultsFalse(t *testing.T) {
	s := NewString([]byte("x"))
	if s.IsMarked() {
		t.Error("freshly constructed object should not start marked")
	}
	s.SetMarked(true)
	if !s.IsMarked() {
		t.Error("SetMarked(true) should stick")
	}
}
