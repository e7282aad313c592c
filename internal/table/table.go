// Package table implements the open-addressed hash table described in
// spec.md §3/§4.3: linear probing, tombstone deletion, a 0.75 load factor,
// and a specialized string-lookup probe used by the interner.
package table

import (
	"emo/internal/object"
	"emo/internal/value"
)

const maxLoad = 0.75

// Entry is one table slot. An empty slot has Key == value.Meta; a
// tombstone has Key == value.Meta and Value == value.Bool(true) — the same
// encoding spec.md §3 describes for the intern/globals table.
type Entry struct {
	Key   value.Value
	Value value.Value
}

func isEmptySlot(e Entry) bool {
	return e.Key.IsMeta() && !(e.Value.IsBool() && e.Value.AsBool())
}

func isTombstone(e Entry) bool {
	return e.Key.IsMeta() && e.Value.IsBool() && e.Value.AsBool()
}

// Table is a power-of-two-capacity open-addressed hash table.
type Table struct {
	count    int
	entries  []Entry
}

func New() *Table {
	return &Table{}
}

func (t *Table) Count() int { return t.count }

func findEntry(entries []Entry, capacity int, key value.Value) *Entry {
	index := value.Hash(key) & uint32(capacity-1)
	var tombstone *Entry
	for {
		entry := &entries[index]
		switch {
		case isEmptySlot(*entry):
			if tombstone != nil {
				return tombstone
			}
			return entry
		case isTombstone(*entry):
			if tombstone == nil {
				tombstone = entry
			}
		case value.Equal(entry.Key, key):
			return entry
		}
		index = (index + 1) & uint32(capacity-1)
	}
}

func (t *Table) adjustCapacity(capacity int) {
	entries := make([]Entry, capacity)
	for i := range entries {
		entries[i] = Entry{Key: value.Meta, Value: value.Meta}
	}
	t.count = 0
	for _, old := range t.entries {
		if isEmptySlot(old) || isTombstone(old) {
			continue
		}
		dest := findEntry(entries, capacity, old.Key)
		dest.Key = old.Key
		dest.Value = old.Value
		t.count++
	}
	t.entries = entries
}

// Get looks up key, reporting whether it was present.
func (t *Table) Get(key value.Value) (value.Value, bool) {
	if t.count == 0 {
		return value.Meta, false
	}
	entry := findEntry(t.entries, len(t.entries), key)
	if entry.Key.IsMeta() {
		return value.Meta, false
	}
	return entry.Value, true
}

// Set inserts or updates key, returning true if this created a brand new
// entry (i.e. the slot was empty, not a tombstone reused from a prior
// delete) — the count only grows on that case, per spec.md §4.3.
func (t *Table) Set(key, val value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		capacity := growCapacity(len(t.entries))
		t.adjustCapacity(capacity)
	}
	entry := findEntry(t.entries, len(t.entries), key)
	isNewKey := isEmptySlot(*entry)
	if isNewKey {
		t.count++
	}
	entry.Key = key
	entry.Value = val
	return isNewKey
}

// Delete replaces the entry with a tombstone. Count is not decremented —
// tombstones still count toward the load factor, per spec.md §4.3.
func (t *Table) Delete(key value.Value) bool {
	if t.count == 0 {
		return false
	}
	entry := findEntry(t.entries, len(t.entries), key)
	if entry.Key.IsMeta() {
		return false
	}
	entry.Key = value.Meta
	entry.Value = value.Bool(true)
	return true
}

// AddAll copies every live entry of src into t.
func (t *Table) AddAll(src *Table) {
	for _, e := range src.entries {
		if !isEmptySlot(e) && !isTombstone(e) {
			t.Set(e.Key, e.Value)
		}
	}
}

// FindString is the intern fast path: probe without constructing a Value,
// comparing length, hash, and bytes directly. This is the only way to look
// up an un-interned candidate string.
func (t *Table) FindString(chars []byte, hash uint32) *object.String {
	if t.count == 0 {
		return nil
	}
	capacity := len(t.entries)
	index := hash & uint32(capacity-1)
	for {
		entry := &t.entries[index]
		if isEmptySlot(*entry) {
			return nil
		}
		if !isTombstone(*entry) && entry.Key.IsObj() {
			if s, ok := entry.Key.AsObj().(*object.String); ok {
				if s.Hash == hash && len(s.Chars) == len(chars) && string(s.Chars) == string(chars) {
					return s
				}
			}
		}
		index = (index + 1) & uint32(capacity-1)
	}
}

// Each invokes fn for every live (key, value) pair — used by the GC to mark
// globals and by the interner to prune unreachable strings.
func (t *Table) Each(fn func(key, val value.Value) (deleteEntry bool)) {
	for i := range t.entries {
		e := &t.entries[i]
		if isEmptySlot(*e) || isTombstone(*e) {
			continue
		}
		if fn(e.Key, e.Value) {
			e.Key = value.Meta
			e.Value = value.Bool(true)
		}
	}
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}
