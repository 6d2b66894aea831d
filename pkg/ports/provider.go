package ports

import (
	"context"

	"github.com/aretw0/junction/pkg/signal"
)

// Provider is a source of items for the registry.
//
// Items returns the source's current set as a fresh snapshot; callers own the
// returned slice. ChangeSignal returns the source's current live signal. The
// provider must rotate: whenever its items change it creates a fresh armed
// signal, publishes it so ChangeSignal returns the new one, and only then
// fires the previous one. A signal obtained before a change is therefore
// frozen — it fires once and never again.
type Provider[T any] interface {
	Items(ctx context.Context) ([]T, error)
	ChangeSignal() *signal.Signal
}
