// Package heap implements the semispace allocator and object walker (§3.4,
// §4.B): a single backing array of cells split into two equal halves, one
// active and one held in reserve for the next collection.
//
// The reference implementation allocates a brand-new Heap for every
// collection's to-space and bulk-copies the result back afterwards. This
// module instead keeps one shared []cell.Cell and toggles which half is
// active, per the cleaner two-halves-of-one-block model §3.4/§4.B describe
// explicitly; Clear/CopyRange/Overwrite are still implemented by name and
// semantics, they just operate on one array instead of two.
package heap

import (
	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/mishap"
)

// Heap is a semispace-allocated array of cells.
type Heap struct {
	cells       []cell.Cell
	half        int
	activeStart int
	tip         int
	limit       int
	scanQueue   int
}

// New allocates a heap of 2*halfCells cells, split into two halves of
// halfCells each. The first half starts active.
func New(halfCells int) *Heap {
	h := &Heap{
		cells: make([]cell.Cell, 2*halfCells),
		half:  halfCells,
	}
	h.limit = h.half
	return h
}

// Len returns the total number of cells backing both semispaces.
func (h *Heap) Len() int { return len(h.cells) }

// Tip returns the current bump pointer within the active half.
func (h *Heap) Tip() int { return h.tip }

// Limit returns the end of the active half.
func (h *Heap) Limit() int { return h.limit }

// ActiveStart returns the start of the active half.
func (h *Heap) ActiveStart() int { return h.activeStart }

// At returns a pointer to the cell at absolute index i, for callers (the
// collector) that need to read and rewrite heap cells in place.
func (h *Heap) At(i int) *cell.Cell { return &h.cells[i] }

// AllocateObject appends cells verbatim at the current tip of the active
// half and returns the absolute index of the first appended cell. It fails
// with HeapOverflow — and appends nothing — if the active half cannot
// accommodate the request; the caller (Builder.Object) is expected to
// drive a collection and retry.
func (h *Heap) AllocateObject(cells []cell.Cell) (int, error) {
	if h.tip+len(cells) > h.limit {
		return 0, mishap.New(mishap.HeapOverflow, "Heap overflow").
			Culprit("Requested", len(cells)).
			Culprit("Available", h.limit-h.tip)
	}
	start := h.tip
	copy(h.cells[start:], cells)
	h.tip += len(cells)
	return start, nil
}

// objectBounds returns the [start, end) cell range of the object whose Key
// cell is at keyIndex, and its KeyCode. Unknown key codes are fatal
// (InvalidKey) — the Q-block scanning scheme only understands procedures.
func (h *Heap) objectBounds(keyIndex int) (start, end int, kc cell.KeyCode, err error) {
	keyCell := h.cells[keyIndex]
	if !keyCell.IsKey() {
		return 0, 0, 0, mishap.New(mishap.InvalidKey, "Not a key cell").Culprit("Offset", keyIndex)
	}
	kc = keyCell.KeyCodeOf()
	switch kc {
	case cell.KeyCodeProcedure:
		start = keyIndex - cell.KeyOffsetFromStart
		length := h.cells[keyIndex+cell.LengthOffset].GetSmall()
		end = keyIndex + int(length)
		return start, end, kc, nil
	default:
		return 0, 0, kc, mishap.New(mishap.InvalidKey, "Unknown key code").Culprit("KeyCode", kc)
	}
}

// ObjectBounds is the exported form of objectBounds, used by the
// collector.
func (h *Heap) ObjectBounds(keyIndex int) (start, end int, kc cell.KeyCode, err error) {
	return h.objectBounds(keyIndex)
}

// FirstObject returns the index of the first Key cell in the active half,
// scanning forward from its start.
func (h *Heap) FirstObject() (int, bool) {
	return h.scanForKey(h.activeStart)
}

// NextObject returns the index of the Key cell following the object whose
// Key cell is at keyIndex.
func (h *Heap) NextObject(keyIndex int) (int, bool) {
	_, end, _, err := h.objectBounds(keyIndex)
	if err != nil {
		return 0, false
	}
	return h.scanForKey(end)
}

func (h *Heap) scanForKey(from int) (int, bool) {
	for i := from; i < h.tip; i++ {
		if h.cells[i].IsKey() {
			return i, true
		}
	}
	return 0, false
}

// PopEnqueuedObject is the Cheney grey-pointer dequeue: if the scan queue
// has caught up with the tip, there is nothing left to scan. Otherwise it
// advances the scan queue past the next object and returns that object's
// [start, end) bounds.
func (h *Heap) PopEnqueuedObject() (start, end int, ok bool) {
	if h.scanQueue >= h.tip {
		return 0, 0, false
	}
	keyIndex, found := h.scanForKey(h.scanQueue)
	if !found {
		h.scanQueue = h.tip
		return 0, 0, false
	}
	start, end, _, err := h.objectBounds(keyIndex)
	if err != nil {
		h.scanQueue = h.tip
		return 0, 0, false
	}
	h.scanQueue = end
	return start, end, true
}

// CopyRange bump-copies cells[start:end) into the active half at the
// current tip and returns the new start index.
func (h *Heap) CopyRange(start, end int) (int, error) {
	n := end - start
	if h.tip+n > h.limit {
		return 0, mishap.New(mishap.HeapOverflow, "Heap overflow during copy").
			Culprit("Requested", n).
			Culprit("Available", h.limit-h.tip)
	}
	newStart := h.tip
	copy(h.cells[newStart:newStart+n], h.cells[start:end])
	h.tip += n
	return newStart, nil
}

// SetForwarded overwrites the cell at oldKeyIndex with a forwarding cell
// pointing at newKeyIndex, the object's new location.
func (h *Heap) SetForwarded(oldKeyIndex, newKeyIndex int) {
	h.cells[oldKeyIndex] = cell.MakeForwarded(newKeyIndex)
}

// Clear resets the active half's tip and scan queue back to its start,
// discarding everything allocated in it.
func (h *Heap) Clear() {
	h.tip = h.activeStart
	h.scanQueue = h.activeStart
}

// Swap toggles which half is active and resets its bookkeeping, the
// moment a collection begins copying into fresh space.
func (h *Heap) Swap() {
	if h.activeStart == 0 {
		h.activeStart = h.half
	} else {
		h.activeStart = 0
	}
	h.limit = h.activeStart + h.half
	h.tip = h.activeStart
	h.scanQueue = h.activeStart
}

// Overwrite bulk-copies another heap's live active range into this heap's
// active half, resetting this heap's tip to just past the copied data.
// Provided for symmetry with the reference design's Heap::overwrite; the
// collector in this module drives copying directly via CopyRange instead.
func (h *Heap) Overwrite(other *Heap) error {
	n := other.tip - other.activeStart
	if h.activeStart+n > h.limit {
		return mishap.New(mishap.HeapOverflow, "Heap overflow during overwrite").
			Culprit("Requested", n).
			Culprit("Available", h.limit-h.activeStart)
	}
	copy(h.cells[h.activeStart:h.activeStart+n], other.cells[other.activeStart:other.tip])
	h.tip = h.activeStart + n
	return nil
}

// Occupancy reports live cells used and total cells available in the
// active half, for diagnostics.
func (h *Heap) Occupancy() (used, total int) {
	return h.tip - h.activeStart, h.half
}
