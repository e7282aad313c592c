package heap

import (
	"errors"
	"testing"
)

type fakeCloser struct{ closed bool }

func (f *fakeCloser) Close() error { f.closed = true; return nil }

func TestInternStringDedupes(t *testing.T) {
	a := New()
	s1 := a.InternString([]byte("hello"))
	s2 := a.InternString([]byte("hello"))
	if s1 != s2 {
		t.Error("interning the same bytes twice should return the same object")
	}
	if a.Strings.Count() != 1 {
		t.Errorf("intern table count = %d, want 1", a.Strings.Count())
	}
}

func TestInternStringDistinguishesContent(t *testing.T) {
	a := New()
	s1 := a.InternString([]byte("foo"))
	s2 := a.InternString([]byte("bar"))
	if s1 == s2 {
		t.Error("distinct strings must not intern to the same object")
	}
}

func TestConcatInterns(t *testing.T) {
	a := New()
	x := a.InternString([]byte("foo"))
	y := a.InternString([]byte("bar"))
	got := a.Concat(x, y)
	if string(got.Chars) != "foobar" {
		t.Errorf("Concat chars = %q, want %q", got.Chars, "foobar")
	}
	again := a.InternString([]byte("foobar"))
	if got != again {
		t.Error("Concat's result should intern into the same table InternString uses")
	}
}

func TestMaybeCollectNoopsWithoutRoots(t *testing.T) {
	a := New()
	// No SetRoots call: allocating many objects must not panic even though
	// the GC would otherwise want to collect.
	for i := 0; i < 10; i++ {
		a.NewFunction()
	}
}

func TestNewResourceWrapsHandle(t *testing.T) {
	a := New()
	fc := &fakeCloser{}
	r := a.NewResource("db", fc)
	if r.Kind != "db" {
		t.Errorf("Kind = %q, want %q", r.Kind, "db")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fc.closed {
		t.Error("Resource.Close should close the wrapped handle")
	}
}

func TestNewResourcePropagatesCloseError(t *testing.T) {
	a := New()
	wantErr := errors.New("boom")
	r := a.NewResource("ws", closerFunc(func() error { return wantErr }))
	if err := r.Close(); err != wantErr {
		t.Errorf("Close() = %v, want %v", err, wantErr)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
