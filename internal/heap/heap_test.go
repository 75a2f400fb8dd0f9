package heap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/heap"
)

// tinyProcedure builds the cell sequence for a procedure with no Q-block
// entries and no instruction cells (header only), for heap-walking tests
// that don't need a working interpreter.
func tinyProcedure(numLocals int64) []cell.Cell {
	header := []cell.Cell{
		cell.MakeSmall(0),             // ProcName
		cell.MakeSmall(2),             // QBlockOffset: Q-block starts right after (empty)
		cell.MakeSmall(2),             // Length: 2 cells from key (key+numlocals, no instructions, no Q)
		cell.ProcedureKeyValue,        // Key
		cell.MakeU64(uint64(numLocals)), // NumLocals
	}
	return header
}

func TestAllocateObjectAndWalk(t *testing.T) {
	h := heap.New(64)

	p1 := tinyProcedure(0)
	start1, err := h.AllocateObject(p1)
	require.NoError(t, err)

	p2 := tinyProcedure(3)
	start2, err := h.AllocateObject(p2)
	require.NoError(t, err)

	key1, ok := h.FirstObject()
	require.True(t, ok)
	require.Equal(t, start1+cell.KeyOffsetFromStart, key1)

	key2, ok := h.NextObject(key1)
	require.True(t, ok)
	require.Equal(t, start2+cell.KeyOffsetFromStart, key2)

	_, ok = h.NextObject(key2)
	require.False(t, ok)
}

func TestAllocateObjectOverflow(t *testing.T) {
	h := heap.New(4)
	_, err := h.AllocateObject(make([]cell.Cell, 5))
	require.Error(t, err)
}

func TestSwapTogglesActiveHalf(t *testing.T) {
	h := heap.New(8)
	_, err := h.AllocateObject(tinyProcedure(0))
	require.NoError(t, err)
	require.Equal(t, 0, h.ActiveStart())

	h.Swap()
	require.Equal(t, 8, h.ActiveStart())
	require.Equal(t, 8, h.Tip())
	require.Equal(t, 16, h.Limit())
}

func TestCopyRangeAndForwarding(t *testing.T) {
	h := heap.New(64)
	start, err := h.AllocateObject(tinyProcedure(0))
	require.NoError(t, err)
	keyIdx := start + cell.KeyOffsetFromStart

	h.Swap()
	objStart, objEnd, kc, err := h.ObjectBounds(keyIdx)
	require.NoError(t, err)
	require.Equal(t, cell.KeyCodeProcedure, kc)

	newStart, err := h.CopyRange(objStart, objEnd)
	require.NoError(t, err)
	newKeyIdx := newStart + cell.KeyOffsetFromStart

	h.SetForwarded(keyIdx, newKeyIdx)
	require.True(t, h.At(keyIdx).IsForwarded())
	require.Equal(t, newKeyIdx, h.At(keyIdx).Deref())
}

func TestPopEnqueuedObjectDrainsOnce(t *testing.T) {
	h := heap.New(64)
	start, err := h.AllocateObject(tinyProcedure(0))
	require.NoError(t, err)
	keyIdx := start + cell.KeyOffsetFromStart

	h.Swap()
	objStart, objEnd, _, err := h.ObjectBounds(keyIdx)
	require.NoError(t, err)
	_, err = h.CopyRange(objStart, objEnd)
	require.NoError(t, err)

	gotStart, gotEnd, ok := h.PopEnqueuedObject()
	require.True(t, ok)
	require.Equal(t, 64, gotStart)
	require.Equal(t, 64+objEnd-objStart, gotEnd)

	_, _, ok = h.PopEnqueuedObject()
	require.False(t, ok)
}
