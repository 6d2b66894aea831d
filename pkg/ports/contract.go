package ports

import (
	"context"
	"testing"

	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Asynchronous providers (redis pub/sub, file polling) may rotate with a small
// delay; synchronous ones pass on the first tick.
const (
	eventuallyWait = 2 * time.Second
	eventuallyTick = 5 * time.Millisecond
)

// ProviderHarness wires a Provider implementation into the contract suite.
// Mutate must drive the provider to the given items through whatever backdoor
// the implementation offers (an in-memory setter, a file rewrite, a redis
// write). Items generates distinguishable item sets for the suite.
type ProviderHarness[T any] struct {
	Provider Provider[T]
	Mutate   func(ctx context.Context, items []T) error
	Items    func(generation int) []T
}

// RunProviderContract verifies that a Provider implementation honors the
// rotation contract: stable signal while unchanged, old signal fired and a
// fresh armed signal published after a change, items reflecting the change.
func RunProviderContract[T any](t *testing.T, h ProviderHarness[T]) {
	ctx := context.Background()

	t.Run("InitialRead", func(t *testing.T) {
		before := h.Provider.ChangeSignal()

		first := h.Items(0)
		require.NoError(t, h.Mutate(ctx, first))

		// Wait for the rotation to land so the next subtests observe a
		// quiescent provider. The rotation contract publishes the fresh
		// signal before firing, so a fired signal means rotation completed.
		require.Eventually(t, before.Fired, eventuallyWait, eventuallyTick,
			"seeding the provider is a change and must rotate")

		items, err := h.Provider.Items(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, items)
	})

	t.Run("StableSignalWhileUnchanged", func(t *testing.T) {
		sig := h.Provider.ChangeSignal()
		require.NotNil(t, sig)
		assert.False(t, sig.Fired(), "signal must be armed while nothing changed")
		assert.Same(t, sig, h.Provider.ChangeSignal(), "same generation, same signal")
	})

	t.Run("RotationOnChange", func(t *testing.T) {
		before := h.Provider.ChangeSignal()

		second := h.Items(1)
		require.NoError(t, h.Mutate(ctx, second))

		require.Eventually(t, before.Fired, eventuallyWait, eventuallyTick,
			"previous generation's signal must fire after a change")

		after := h.Provider.ChangeSignal()
		assert.NotSame(t, before, after, "provider must rotate to a fresh signal")
		assert.False(t, after.Fired(), "fresh signal must be armed")

		items, err := h.Provider.Items(ctx)
		require.NoError(t, err)
		assert.Equal(t, second, items)
	})

	t.Run("SnapshotIsolation", func(t *testing.T) {
		items, err := h.Provider.Items(ctx)
		require.NoError(t, err)
		if len(items) == 0 {
			t.Skip("no items to mutate")
		}

		// Mutating the returned slice must not leak into later reads.
		var zero T
		items[0] = zero

		again, err := h.Provider.Items(ctx)
		require.NoError(t, err)
		assert.Equal(t, h.Items(1), again)
	})
}
