package registry

import (
	"sync"

	"github.com/aretw0/junction/pkg/ports"
	"github.com/aretw0/junction/pkg/signal"
)

// sourceWatcher maintains a durable subscription chain against a provider
// whose signal rotates on every change. When the subscribed signal fires it
// reports the change, then re-subscribes to the provider's fresh signal, so
// the watch has no permanent gap.
//
// The chain always captures the successor signal before reporting a change:
// a provider mutation landing while the registry recomputes then fires a
// signal the watcher already holds, and the drain recovers it.
type sourceWatcher[T any] struct {
	provider  ports.Provider[T]
	onChanged func()

	mu      sync.Mutex
	stopped bool
	sub     *signal.Subscription
}

// watchSource starts watching p, chaining from initial — the signal captured
// before p's items were last read. If initial already fired, the change it
// announced is reported before watchSource returns.
func watchSource[T any](p ports.Provider[T], initial *signal.Signal, onChanged func()) *sourceWatcher[T] {
	w := &sourceWatcher[T]{provider: p, onChanged: onChanged}
	w.subscribe(initial)
	return w
}

// subscribe registers the watcher on sig, draining already-fired generations
// first: each one is a change that happened since the last read, so it is
// reported and the chain advances to the provider's current signal.
func (w *sourceWatcher[T]) subscribe(sig *signal.Signal) {
	for {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()
		if !sig.Fired() {
			break
		}
		// Successor before report: a change landing during the recompute
		// fires next, and the loop drains that generation as well.
		next := w.provider.ChangeSignal()
		w.onChanged()
		sig = next
	}

	// Not registered under w.mu: a signal firing between the check above and
	// this call invokes fired synchronously, and fired takes w.mu again.
	sub := sig.Subscribe(w.fired)

	w.mu.Lock()
	if w.stopped || sig.Fired() {
		// If the signal fired while the handle was being taken, fired has
		// chained (or will chain) onto the fresh signal itself; the handle
		// returned here is stale and must not replace the live one.
		w.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	w.sub = sub
	w.mu.Unlock()
}

// fired runs when the subscribed signal fires. The provider has already
// rotated: capture the fresh signal, report the change, then chain onto it.
// An already-fired fresh signal just loops through subscribe's drain, which
// the registry tolerates because recompute is idempotent.
func (w *sourceWatcher[T]) fired() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	next := w.provider.ChangeSignal()
	w.onChanged()
	w.subscribe(next)
}

// stop detaches the watcher. Any callback racing the stop may still report
// one final change, which is harmless.
func (w *sourceWatcher[T]) stop() {
	w.mu.Lock()
	w.stopped = true
	sub := w.sub
	w.sub = nil
	w.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}
