package table

import (
	"testing"

	"emo/internal/object"
	"emo/internal/value"
)

func TestSetGetDelete(t *testing.T) {
	tbl := New()
	key := value.FromObj(object.NewString([]byte("name")))

	if _, ok := tbl.Get(key); ok {
		t.Fatal("Get on empty table should report not-found")
	}

	if isNew := tbl.Set(key, value.Number(42)); !isNew {
		t.Error("first Set should report a new key")
	}
	if isNew := tbl.Set(key, value.Number(43)); isNew {
		t.Error("second Set on same key should report not-new")
	}

	got, ok := tbl.Get(key)
	if !ok || got.AsNumber() != 43 {
		t.Errorf("Get = (%v, %v), want (43, true)", got, ok)
	}

	if !tbl.Delete(key) {
		t.Error("Delete should report the key was present")
	}
	if _, ok := tbl.Get(key); ok {
		t.Error("Get after Delete should report not-found")
	}
	if tbl.Delete(key) {
		t.Error("second Delete should report false")
	}
}

func TestTombstoneDoesNotShrinkCount(t *testing.T) {
	tbl := New()
	a := value.FromObj(object.NewString([]byte("a")))
	b := value.FromObj(object.NewString([]byte("b")))

	tbl.Set(a, value.Number(1))
	tbl.Set(b, value.Number(2))
	before := tbl.Count()

	tbl.Delete(a)
	if tbl.Count() != before {
		t.Errorf("Count after Delete = %d, want unchanged %d (tombstones still count)", tbl.Count(), before)
	}

	// Re-inserting the deleted key must not grow count beyond 2 live entries.
	tbl.Set(a, value.Number(3))
	if tbl.Count() != before {
		t.Errorf("Count after re-Set = %d, want %d", tbl.Count(), before)
	}
}

func TestGrowsAndSurvivesRehash(t *testing.T) {
	tbl := New()
	keys := make([]value.Value, 0, 64)
	for i := 0; i < 64; i++ {
		k := value.FromObj(object.NewString([]byte{byte('a' + i%26), byte(i)}))
		keys = append(keys, k)
		tbl.Set(k, value.Number(float64(i)))
	}
	for i, k := range keys {
		got, ok := tbl.Get(k)
		if !ok || got.AsNumber() != float64(i) {
			t.Fatalf("key %d lost after growth: got (%v, %v)", i, got, ok)
		}
	}
}

func TestFindString(t *testing.T) {
	tbl := New()
	s := object.NewString([]byte("hello"))
	tbl.Set(value.FromObj(s), value.Bool(false))

	found := tbl.FindString([]byte("hello"), s.Hash)
	if found != s {
		t.Errorf("FindString did not return the interned object")
	}

	if got := tbl.FindString([]byte("nope"), value.Hash(value.Number(0))); got != nil {
		t.Errorf("FindString for absent string = %v, want nil", got)
	}
}

func TestEachDelete(t *testing.T) {
	tbl := New()
	a := value.FromObj(object.NewString([]byte("a")))
	b := value.FromObj(object.NewString([]byte("b")))
	tbl.Set(a, value.Number(1))
	tbl.Set(b, value.Number(2))

	tbl.Each(func(key, val value.Value) bool {
		return val.AsNumber() == 1
	})

	if _, ok := tbl.Get(a); ok {
		t.Error("Each should have deleted entry a")
	}
	if _, ok := tbl.Get(b); !ok {
		t.Error("Each should have kept entry b")
	}
}
