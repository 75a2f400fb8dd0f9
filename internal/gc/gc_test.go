package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/gc"
	"github.com/sfkleach/poppy/internal/heap"
)

// fakeRoots lets a test hand the collector exactly the root pointers it
// wants scanned, without pulling in the engine package.
type fakeRoots struct {
	value []*cell.Cell
	call  []*cell.Cell
	ident []*cell.Cell
	extra []*cell.Cell
}

func (f fakeRoots) ValueStackRoots() []*cell.Cell  { return f.value }
func (f fakeRoots) CallStackRoots() []*cell.Cell   { return f.call }
func (f fakeRoots) IdentifierRoots() []*cell.Cell  { return f.ident }
func (f fakeRoots) ExtraRoots() []*cell.Cell       { return f.extra }

func procedureHeader(numLocals uint64, instructionCells, qBlockCells int) []cell.Cell {
	size := 5 + instructionCells + qBlockCells
	qOffset := size - cell.KeyOffsetFromStart - qBlockCells
	length := size - cell.KeyOffsetFromStart
	return []cell.Cell{
		cell.MakeSmall(0),
		cell.MakeSmall(int64(qOffset)),
		cell.MakeSmall(int64(length)),
		cell.ProcedureKeyValue,
		cell.MakeU64(numLocals),
	}
}

func TestCollectSurvivesSimpleRoot(t *testing.T) {
	h := heap.New(64)
	header := procedureHeader(3, 0, 0)
	start, err := h.AllocateObject(header)
	require.NoError(t, err)
	keyIdx := start + cell.KeyOffsetFromStart

	root := cell.MakePtr(keyIdx)
	roots := fakeRoots{ident: []*cell.Cell{&root}}

	require.NoError(t, gc.Collect(h, roots, nil))

	require.True(t, root.IsTaggedPtr())
	newKey := root.Deref()
	require.True(t, h.At(newKey).IsProcedureKey())
	require.Equal(t, uint64(3), h.At(newKey+cell.NumLocalsOffset).U64())
}

func TestCollectRelocatesNestedPointerViaQBlock(t *testing.T) {
	h := heap.New(64)

	innerHeader := procedureHeader(0, 0, 0)
	innerStart, err := h.AllocateObject(innerHeader)
	require.NoError(t, err)
	innerKey := innerStart + cell.KeyOffsetFromStart

	outerBody := procedureHeader(0, 1, 1)
	outerBody = append(outerBody,
		cell.MakePtr(innerKey),                        // instruction cell: quoted pointer to inner
		cell.MakeU64(uint64(cell.InstructionsOffset)), // Q-block entry naming that cell
	)
	outerStart, err := h.AllocateObject(outerBody)
	require.NoError(t, err)
	outerKey := outerStart + cell.KeyOffsetFromStart

	root := cell.MakePtr(outerKey)
	roots := fakeRoots{extra: []*cell.Cell{&root}}

	require.NoError(t, gc.Collect(h, roots, nil))

	newOuterKey := root.Deref()
	quoted := h.At(newOuterKey + cell.InstructionsOffset)
	require.True(t, quoted.IsTaggedPtr())

	newInnerKey := quoted.Deref()
	require.True(t, h.At(newInnerKey).IsProcedureKey())
	require.NotEqual(t, innerKey, newInnerKey)
}

func TestCollectRewritesForwardedDuplicateRoots(t *testing.T) {
	h := heap.New(64)
	header := procedureHeader(1, 0, 0)
	start, err := h.AllocateObject(header)
	require.NoError(t, err)
	keyIdx := start + cell.KeyOffsetFromStart

	rootA := cell.MakePtr(keyIdx)
	rootB := cell.MakePtr(keyIdx)
	roots := fakeRoots{ident: []*cell.Cell{&rootA, &rootB}}

	require.NoError(t, gc.Collect(h, roots, nil))

	require.Equal(t, rootA, rootB)
}
