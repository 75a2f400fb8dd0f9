// Package symbol implements the process-lifetime symbol table that backs
// cell.Cell's Symbol wide tag (§3.1): an interned string accessible by a
// 56-bit unsigned index packed into a cell.
package symbol

import "sync"

// Table interns strings to stable indices. Indices are never reused, so a
// Cell built with MakeSymbol(idx) stays valid for the table's lifetime.
type Table struct {
	mu      sync.RWMutex
	names   []string
	indexOf map[string]uint64
}

// NewTable returns an empty symbol table.
func NewTable() *Table {
	return &Table{indexOf: make(map[string]uint64)}
}

// Intern returns name's index, assigning it one on first use.
func (t *Table) Intern(name string) uint64 {
	t.mu.RLock()
	if idx, ok := t.indexOf[name]; ok {
		t.mu.RUnlock()
		return idx
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.indexOf[name]; ok {
		return idx
	}
	idx := uint64(len(t.names))
	t.names = append(t.names, name)
	t.indexOf[name] = idx
	return idx
}

// Name returns the string interned at idx. It panics if idx is out of
// range, which can only happen if a Symbol cell was fabricated outside
// this table.
func (t *Table) Name(idx uint64) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.names[idx]
}

// Len reports how many distinct symbols have been interned.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}
