package shutdown

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShutdownRunsInReverseOrder(t *testing.T) {
	m := NewManager()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		m.OnShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	m.Shutdown(context.Background())
	require.Equal(t, []string{"c", "b", "a"}, order)
}

func TestShutdownIsIdempotent(t *testing.T) {
	m := NewManager()
	runs := 0
	m.OnShutdown("once", func(context.Context) error { runs++; return nil })

	m.Shutdown(context.Background())
	m.Shutdown(context.Background())
	require.Equal(t, 1, runs)
}

func TestShutdownContinuesPastErrors(t *testing.T) {
	m := NewManager()
	ran := false
	m.OnShutdown("first", func(context.Context) error { ran = true; return nil })
	m.OnShutdown("failing", func(context.Context) error { return errors.New("boom") })

	m.Shutdown(context.Background())
	require.True(t, ran)
}
