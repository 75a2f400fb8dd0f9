package mishap_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sfkleach/poppy/internal/mishap"
)

func TestCulpritChaining(t *testing.T) {
	err := mishap.New(mishap.Overflow, "Integer overflow trapped").
		Culprit("Arg #1", 42).
		Culprit("Arg #2", 7)

	require.Contains(t, err.Error(), "Integer overflow trapped")
	require.Contains(t, err.Error(), "Arg #1: 42")
	require.Contains(t, err.Error(), "Arg #2: 7")
}

func TestIsMatchesByKind(t *testing.T) {
	err := mishap.New(mishap.NotCallable, "cell is not a procedure").Culprit("Name", "doubler")

	require.True(t, errors.Is(err, mishap.New(mishap.NotCallable, "")))
	require.False(t, errors.Is(err, mishap.New(mishap.Overflow, "")))
}

func TestSeverity(t *testing.T) {
	require.True(t, mishap.New(mishap.DuplicateLocal, "x").IsCompileTimeError())
	require.True(t, mishap.New(mishap.Overflow, "x").IsExecutionTimeError())
	require.True(t, mishap.New(mishap.InvalidKey, "x").IsSystemError())
}
