// Package symtab implements the ordered name→slot maps used for
// functions and globals (spec §3 "Symbol tables", §4.2). Insertion
// keeps entries in lexicographic name order via binary search, so
// iteration is deterministic — the idiomatic Go translation of the
// teacher corpus's vector-ordered map (`veco`) concept described in
// the original implementation's bc_veco_insert/bc_veco_item.
package symtab

import "sort"

type entry struct {
	name string
	slot int
}

// Table is an insertion-order-stable slot allocator with
// lexicographically-sorted name lookup.
type Table struct {
	sorted []entry // kept sorted by name for binary search
	count  int     // next slot index to allocate
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// Insert returns the existing slot for name, or allocates and returns
// a fresh one. Duplicate detection is by strict string equality.
func (t *Table) Insert(name string) int {
	i := sort.Search(len(t.sorted), func(i int) bool { return t.sorted[i].name >= name })
	if i < len(t.sorted) && t.sorted[i].name == name {
		return t.sorted[i].slot
	}
	slot := t.count
	t.count++
	e := entry{name: name, slot: slot}
	t.sorted = append(t.sorted, entry{})
	copy(t.sorted[i+1:], t.sorted[i:])
	t.sorted[i] = e
	return slot
}

// Lookup returns the slot for name and whether it exists, without
// inserting.
func (t *Table) Lookup(name string) (int, bool) {
	i := sort.Search(len(t.sorted), func(i int) bool { return t.sorted[i].name >= name })
	if i < len(t.sorted) && t.sorted[i].name == name {
		return t.sorted[i].slot, true
	}
	return 0, false
}

// Len returns the number of distinct names ever inserted.
func (t *Table) Len() int { return t.count }

// Names returns all names in lexicographic order (for deterministic
// iteration / debugging).
func (t *Table) Names() []string {
	out := make([]string, len(t.sorted))
	for i, e := range t.sorted {
		out[i] = e.name
	}
	return out
}
