package builder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sfkleach/poppy/internal/builder"
	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/heap"
)

func TestPlaceHolderPatchBeforeCommit(t *testing.T) {
	h := heap.New(64)
	b := builder.New(h)

	b.AddCell(cell.Cell(0))
	ph := b.PlaceHolderJustPlanted()
	b.AddKey(cell.ProcedureKeyValue)
	b.AddCell(cell.MakeU64(0))

	ph.Set(cell.MakeSmall(7))
	require.Equal(t, cell.MakeSmall(7), ph.Get())

	keyAbs, err := b.Object()
	require.NoError(t, err)
	require.Equal(t, cell.MakeSmall(7), *h.At(keyAbs - 1))
	require.True(t, h.At(keyAbs).IsKey())
}

func TestObjectOverflowFails(t *testing.T) {
	h := heap.New(2)
	b := builder.New(h)
	for i := 0; i < 5; i++ {
		b.AddCell(cell.MakeSmall(int64(i)))
	}
	_, err := b.Object()
	require.Error(t, err)
}
