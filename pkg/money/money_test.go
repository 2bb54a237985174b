package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundCollapsesResidue(t *testing.T) {
	require.Equal(t, 0.0, Round(1e-10))
	require.Equal(t, 0.0, Round(-1e-10))
	require.Equal(t, 0.1, Round(0.1))
	require.Equal(t, 0.12345678, Round(0.123456784))
}

func TestAddSubNoDrift(t *testing.T) {
	// Classic binary float residue: 0.1+0.2 != 0.3 without normalization.
	require.Equal(t, 0.3, Add(0.1, 0.2))
	require.Equal(t, 0.0, Sub(0.3, Add(0.1, 0.2)))
}

func TestRepeatedLockUnlockCycles(t *testing.T) {
	// A thousand lock/unlock cycles with an awkward amount must end exactly
	// where they started.
	balance := 100.0
	locked := 0.0
	for i := 0; i < 1000; i++ {
		balance = Sub(balance, 0.1)
		locked = Add(locked, 0.1)
		balance = Add(balance, 0.1)
		locked = Sub(locked, 0.1)
	}
	require.Equal(t, 100.0, balance)
	require.Equal(t, 0.0, locked)
}

func TestDivZeroFallback(t *testing.T) {
	require.Equal(t, 0.0, Div(51.0, 0))
	require.Equal(t, 0.5, Div(1, 2))
}

func TestClampNonNegative(t *testing.T) {
	require.Equal(t, 0.0, ClampNonNegative(-5))
	require.Equal(t, 0.0, ClampNonNegative(-1e-12))
	require.Equal(t, 2.5, ClampNonNegative(2.5))
}

func TestMul(t *testing.T) {
	// 50 * 1.02 in binary floats is 51.000000000000004.
	require.Equal(t, 51.0, Mul(50, 1.02))
}
