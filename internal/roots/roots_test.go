package roots_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/roots"
)

func TestPinAndRelease(t *testing.T) {
	reg := roots.NewRegistry()
	n1 := reg.Pin(cell.MakeSmall(1))
	n2 := reg.Pin(cell.MakeSmall(2))
	require.Len(t, reg.Roots(), 2)

	n1.Release()
	require.Len(t, reg.Roots(), 1)
	require.Equal(t, cell.MakeSmall(2), *reg.Roots()[0])

	n2.Release()
	require.Empty(t, reg.Roots())
}

func TestRootsAreLiveReferences(t *testing.T) {
	reg := roots.NewRegistry()
	n := reg.Pin(cell.MakePtr(3))
	roots := reg.Roots()
	*roots[0] = cell.MakePtr(9)
	require.Equal(t, cell.MakePtr(9), n.Cell())
}

func TestDoubleReleaseIsSafe(t *testing.T) {
	reg := roots.NewRegistry()
	n := reg.Pin(cell.MakeSmall(1))
	n.Release()
	require.NotPanics(t, func() { n.Release() })
	require.Empty(t, reg.Roots())
}
