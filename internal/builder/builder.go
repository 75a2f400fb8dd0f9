// Package builder implements the Builder/PlaceHolder pair (§4.C):
// append-only assembly of a single heap object in a staging list, with
// patchable slots resolved before the object is committed to the heap.
package builder

import (
	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/heap"
)

// Builder accumulates a staging list of cells that does not itself live in
// the heap until Object is called.
type Builder struct {
	heap     *heap.Heap
	staging  []cell.Cell
	keyIndex int
	hasKey   bool
}

// New returns a Builder that will eventually commit into h.
func New(h *heap.Heap) *Builder {
	return &Builder{heap: h}
}

// AddCell appends a plain cell to the staging list.
func (b *Builder) AddCell(c cell.Cell) {
	b.staging = append(b.staging, c)
}

// AddKey appends a Key cell and records its staging position so Object can
// report the eventual heap address of the key.
func (b *Builder) AddKey(c cell.Cell) {
	b.keyIndex = len(b.staging)
	b.hasKey = true
	b.staging = append(b.staging, c)
}

// Size reports how many cells are currently staged.
func (b *Builder) Size() int {
	return len(b.staging)
}

// PlaceHolder is a handle to one staged cell, valid only until Object
// consumes the staging list.
type PlaceHolder struct {
	builder *Builder
	index   int
}

// PlaceHolderJustPlanted returns a PlaceHolder for the most recently
// appended cell.
func (b *Builder) PlaceHolderJustPlanted() PlaceHolder {
	return PlaceHolder{builder: b, index: len(b.staging) - 1}
}

// Get returns the placeholder's current staged value.
func (p PlaceHolder) Get() cell.Cell {
	return p.builder.staging[p.index]
}

// Set overwrites the placeholder's staged value.
func (p PlaceHolder) Set(c cell.Cell) {
	p.builder.staging[p.index] = c
}

// Index returns the placeholder's position within the staging list.
func (p PlaceHolder) Index() int {
	return p.index
}

// Object bulk-copies the staging list into the heap at the current tip
// and returns the absolute index of the cell that was the key in staging.
// It fails with HeapOverflow (via the heap) if the active half cannot
// accommodate the request; the caller is expected to drive a collection
// and retry.
func (b *Builder) Object() (int, error) {
	start, err := b.heap.AllocateObject(b.staging)
	if err != nil {
		return 0, err
	}
	return start + b.keyIndex, nil
}
