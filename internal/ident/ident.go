// Package ident implements the identifier table: one mutable cell per
// declared global name, living for the process lifetime and scanned by the
// collector as a root set (§3.3).
//
// Bytecode operands never embed a Go pointer to an Identifier. Instead a
// *_GLOBAL instruction's operand is the identifier's stable table index, so
// the instruction stream stays a plain []cell.Cell with no unsafe aliasing
// into engine-owned memory.
package ident

import (
	"github.com/sirupsen/logrus"

	"github.com/sfkleach/poppy/internal/cell"
)

// Identifier is a single mutable global binding.
type Identifier struct {
	Name  string
	Value cell.Cell
}

// Table owns every declared global, assigning indices in declaration order
// starting from 0.
type Table struct {
	byName  map[string]int
	byIndex []*Identifier
	log     *logrus.Logger
}

// NewTable returns an empty identifier table that logs warnings through
// log (logrus.StandardLogger() if log is nil).
func NewTable(log *logrus.Logger) *Table {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Table{byName: make(map[string]int), log: log}
}

// DeclareGlobal is idempotent: declaring an already-known name logs a
// warning and returns the existing identifier untouched, rather than
// resetting its value. (The captured reference implementation resets the
// value on redeclaration despite describing the operation as idempotent;
// this module follows the documented contract, not that behaviour.)
func (t *Table) DeclareGlobal(name string) int {
	if idx, ok := t.byName[name]; ok {
		t.log.WithField("global", name).Warn("Redeclaring global")
		return idx
	}
	idx := len(t.byIndex)
	t.byIndex = append(t.byIndex, &Identifier{Name: name, Value: cell.MakeSmall(0)})
	t.byName[name] = idx
	return idx
}

// Lookup returns the index of an already-declared name.
func (t *Table) Lookup(name string) (int, bool) {
	idx, ok := t.byName[name]
	return idx, ok
}

// Resolve returns the index of name, lazily declaring it with a warning if
// it is not yet known — "referring to an unknown global prints a warning
// and proceeds" (§4.D).
func (t *Table) Resolve(name string) int {
	if idx, ok := t.byName[name]; ok {
		return idx
	}
	t.log.WithField("global", name).Warn("Global not declared")
	return t.DeclareGlobal(name)
}

// ByIndex returns the identifier at idx.
func (t *Table) ByIndex(idx int) *Identifier {
	return t.byIndex[idx]
}

// Len reports how many identifiers have been declared.
func (t *Table) Len() int {
	return len(t.byIndex)
}

// Roots returns a pointer to every identifier's value cell, for the
// collector to scan and rewrite in place.
func (t *Table) Roots() []*cell.Cell {
	roots := make([]*cell.Cell, len(t.byIndex))
	for i, id := range t.byIndex {
		roots[i] = &id.Value
	}
	return roots
}
