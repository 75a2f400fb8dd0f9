package ident_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/sfkleach/poppy/internal/cell"
	"github.com/sfkleach/poppy/internal/ident"
)

func TestDeclareGlobalIsIdempotent(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.WarnLevel)
	table := ident.NewTable(log)

	idx := table.DeclareGlobal("x")
	table.ByIndex(idx).Value = cell.MakeSmall(7)

	idx2 := table.DeclareGlobal("x")
	require.Equal(t, idx, idx2)
	require.Equal(t, int64(7), table.ByIndex(idx2).Value.GetSmall())
	require.Len(t, hook.Entries, 1)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestResolveLazilyCreates(t *testing.T) {
	log, hook := test.NewNullLogger()
	table := ident.NewTable(log)

	idx := table.Resolve("mystery")
	require.Equal(t, 0, idx)
	require.Equal(t, int64(0), table.ByIndex(idx).Value.GetSmall())
	require.Len(t, hook.Entries, 1)
}

func TestRootsReflectsLiveCells(t *testing.T) {
	table := ident.NewTable(nil)
	idx := table.DeclareGlobal("x")
	roots := table.Roots()
	*roots[idx] = cell.MakeSmall(5)
	require.Equal(t, int64(5), table.ByIndex(idx).Value.GetSmall())
}
