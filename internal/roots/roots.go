// Package roots implements the extra-roots registry: an intrusive
// doubly-linked list of ephemeral GC roots (§3.5), used chiefly by the
// planter to pin an in-flight-built object before it is reachable from any
// identifier.
package roots

import "github.com/sfkleach/poppy/internal/cell"

// Node is one pinned root. Its Cell is scanned by the collector for as
// long as the node remains registered; call Release to unpin it.
type Node struct {
	registry *Registry
	cell     cell.Cell
	prev     *Node
	next     *Node
}

func (n *Node) Cell() cell.Cell     { return n.cell }
func (n *Node) SetCell(c cell.Cell) { n.cell = c }

// Release removes the node from its registry. It is safe to call more
// than once.
func (n *Node) Release() {
	if n.prev == nil {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

// Registry is the list header. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	origin Node
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.origin.next = &r.origin
	r.origin.prev = &r.origin
	return r
}

// Pin registers a new root holding the given cell and returns a handle
// used to release it. This is the Go equivalent of the source's
// scope-bound XRoot guard: callers are expected to defer node.Release().
func (r *Registry) Pin(c cell.Cell) *Node {
	n := &Node{registry: r, cell: c}
	last := r.origin.prev
	last.next = n
	n.prev = last
	n.next = &r.origin
	r.origin.prev = n
	return n
}

// ForEach visits every currently-registered node, in registration order.
func (r *Registry) ForEach(fn func(*Node)) {
	for n := r.origin.next; n != &r.origin; n = n.next {
		fn(n)
	}
}

// Roots returns a pointer to every registered node's cell, for the
// collector to scan and rewrite in place.
func (r *Registry) Roots() []*cell.Cell {
	var out []*cell.Cell
	r.ForEach(func(n *Node) {
		out = append(out, &n.cell)
	})
	return out
}
