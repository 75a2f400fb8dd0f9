package cell_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sfkleach/poppy/internal/cell"
)

func TestSmallRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 1 << 40, -(1 << 40), (1 << 60) - 1, -(1 << 60)} {
		c := cell.MakeSmall(n)
		require.True(t, c.IsSmall())
		require.Equal(t, n, c.GetSmall())
	}
}

func TestTaggedPtrRoundTrip(t *testing.T) {
	c := cell.MakePtr(12345)
	require.True(t, c.IsTaggedPtr())
	require.Equal(t, 12345, c.Deref())
}

func TestForwardedRoundTrip(t *testing.T) {
	c := cell.MakeForwarded(77)
	require.True(t, c.IsForwarded())
	require.Equal(t, 77, c.Deref())
	require.False(t, c.IsTaggedPtr())
}

func TestBooleans(t *testing.T) {
	require.True(t, cell.FalseValue.IsFalse())
	require.False(t, cell.FalseValue.IsntFalse())
	require.True(t, cell.TrueValue.IsntFalse())
	require.True(t, cell.MakeSmall(0).IsntFalse())
}

func TestProcedureKey(t *testing.T) {
	require.True(t, cell.ProcedureKeyValue.IsKey())
	require.True(t, cell.ProcedureKeyValue.IsProcedureKey())
	require.Equal(t, cell.KeyCodeProcedure, cell.ProcedureKeyValue.KeyCodeOf())
}

func TestSymbolRoundTrip(t *testing.T) {
	c := cell.MakeSymbol(99)
	require.Equal(t, uint64(99), c.SymbolIndex())
	require.Equal(t, cell.UpperSymbol, c.UpperTag())
}
