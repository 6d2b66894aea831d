package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/junction/internal/logging"
	"github.com/aretw0/junction/pkg/domain"
	"github.com/aretw0/junction/pkg/ports"
	"github.com/aretw0/junction/pkg/signal"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry aggregates the items of an ordered set of providers into one
// cached snapshot and tells consumers when that snapshot went stale.
//
// The lifecycle is epoch-based: each successful recompute publishes a new
// (snapshot, signal) pair, then fires the previous epoch's signal. Consumers
// hold the signal from ChangeToken; once it fires, a fresh Endpoints call is
// guaranteed to return data at least as new as the change that fired it.
//
// Nothing is scanned at construction time. The first Endpoints or ChangeToken
// call reads every provider and attaches the per-provider watchers.
type Registry[T any] struct {
	logger  *slog.Logger
	metrics *metrics

	mu          sync.Mutex
	sources     []*source[T]
	snapshot    []T
	current     *signal.Signal
	initialized bool
}

// source pairs a provider with the watcher that follows its signal chain.
type source[T any] struct {
	provider ports.Provider[T]
	watcher  *sourceWatcher[T]
}

// pendingWatch is a watcher attachment deferred until the registry lock is
// released. The signal was captured before the provider's items were read,
// so a change racing the scan fires an already-captured signal and the
// watcher drain recovers it instead of losing the update.
type pendingWatch[T any] struct {
	src *source[T]
	sig *signal.Signal
}

// Option defines a functional option for configuring the Registry.
type Option[T any] func(*Registry[T])

// WithLogger injects the logger used for background recompute failures.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(r *Registry[T]) {
		r.logger = logger
	}
}

// WithMetrics registers the registry's prometheus collectors with reg.
func WithMetrics[T any](reg prometheus.Registerer) Option[T] {
	return func(r *Registry[T]) {
		r.metrics = newMetrics(reg)
	}
}

// New creates a registry over the given providers. Provider order is
// significant: the snapshot is the concatenation of each provider's items in
// this order. No provider is read until the first Endpoints or ChangeToken.
func New[T any](providers []ports.Provider[T], opts ...Option[T]) *Registry[T] {
	r := &Registry[T]{
		logger: logging.NewNop(),
	}
	for _, p := range providers {
		r.sources = append(r.sources, &source[T]{provider: p})
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = newMetrics(nil)
	}
	r.metrics.providers.Set(float64(len(r.sources)))
	return r
}

// Endpoints returns the current merged snapshot, computing it on first call.
// The returned slice is shared between readers and must not be modified.
func (r *Registry[T]) Endpoints(ctx context.Context) ([]T, error) {
	r.mu.Lock()
	if r.initialized {
		snap := r.snapshot
		r.mu.Unlock()
		return snap, nil
	}
	snap, pending, err := r.initLocked(ctx)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	r.attachAll(pending)
	return snap, nil
}

// ChangeToken returns the current epoch's signal, triggering the same lazy
// initialization as Endpoints. When the signal fires, re-fetch and call
// ChangeToken again for the next epoch.
func (r *Registry[T]) ChangeToken(ctx context.Context) (*signal.Signal, error) {
	r.mu.Lock()
	if r.initialized {
		cur := r.current
		r.mu.Unlock()
		return cur, nil
	}
	_, pending, err := r.initLocked(ctx)
	cur := r.current
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	r.attachAll(pending)
	return cur, nil
}

// Add appends a provider to the end of the source list. If the registry is
// already initialized this is a change event: the snapshot is recomputed, a
// watcher is attached, and the previous epoch's signal fires exactly once.
// A provider read failure keeps the previous epoch in place and is returned.
func (r *Registry[T]) Add(ctx context.Context, p ports.Provider[T]) error {
	src := &source[T]{provider: p}

	r.mu.Lock()
	r.sources = append(r.sources, src)
	r.metrics.providers.Set(float64(len(r.sources)))
	if !r.initialized {
		// Still lazy: membership changes before the first read scan nothing.
		r.mu.Unlock()
		return nil
	}
	// Capture the signal before the recompute reads the provider: a change
	// landing mid-read fires the captured signal and the watcher drains it.
	sig := p.ChangeSignal()
	old, err := r.recomputeLocked(ctx)
	r.mu.Unlock()

	// Attach even when the read failed so a later change can recover.
	r.attach(src, sig)
	if err != nil {
		return err
	}
	old.Fire()
	return nil
}

// Remove drops a provider (matched by equality) from the source list,
// stops its watcher, and fires the current epoch's signal exactly once.
// Returns domain.ErrUnknownProvider if the registry does not hold p.
func (r *Registry[T]) Remove(ctx context.Context, p ports.Provider[T]) error {
	r.mu.Lock()
	idx := -1
	for i, src := range r.sources {
		if src.provider == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return domain.ErrUnknownProvider
	}
	src := r.sources[idx]
	r.sources = append(r.sources[:idx], r.sources[idx+1:]...)
	r.metrics.providers.Set(float64(len(r.sources)))
	w := src.watcher
	if !r.initialized {
		r.mu.Unlock()
		if w != nil {
			w.stop()
		}
		return nil
	}
	old, err := r.recomputeLocked(ctx)
	r.mu.Unlock()

	if w != nil {
		w.stop()
	}
	if err != nil {
		return err
	}
	old.Fire()
	return nil
}

// Providers reports how many sources the registry currently aggregates.
func (r *Registry[T]) Providers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

// Dump renders the current snapshot as a human-readable listing for
// debugging tooling. Not part of the functional contract.
func (r *Registry[T]) Dump(ctx context.Context) (string, error) {
	items, err := r.Endpoints(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d item(s) from %d source(s)\n", len(items), r.Providers())
	for i, item := range items {
		fmt.Fprintf(&b, "%4d. %v\n", i+1, item)
	}
	return b.String(), nil
}

// onSourceChanged is the watcher callback. It recomputes the snapshot,
// rotates the epoch, and fires the superseded signal. Runs on whatever
// goroutine fired the provider's signal.
func (r *Registry[T]) onSourceChanged() {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return
	}
	old, err := r.recomputeLocked(context.Background())
	r.mu.Unlock()

	if err != nil {
		// Background recompute has no caller to report to: keep serving the
		// last good epoch and surface the failure out-of-band.
		r.logger.Error("Recompute failed, keeping last snapshot", "err", err)
		return
	}
	old.Fire()
}

// initLocked performs the first scan: merged snapshot, first epoch signal,
// and the deferred watcher attachments. Every provider's signal is captured
// before any items are read; a change racing the scan therefore fires a
// captured signal, and the watcher drain reports it on attachment. Caller
// holds r.mu.
func (r *Registry[T]) initLocked(ctx context.Context) ([]T, []pendingWatch[T], error) {
	pending := make([]pendingWatch[T], 0, len(r.sources))
	for _, src := range r.sources {
		pending = append(pending, pendingWatch[T]{src: src, sig: src.provider.ChangeSignal()})
	}
	snap, err := r.collectLocked(ctx)
	if err != nil {
		return nil, nil, err
	}
	r.snapshot = snap
	r.current = signal.New()
	r.initialized = true
	r.metrics.recomputes.Inc()
	r.metrics.snapshotSize.Set(float64(len(snap)))
	return snap, pending, nil
}

// recomputeLocked rebuilds the snapshot and rotates the epoch. The new signal
// is published before the old one is returned, so a consumer reacting to the
// old signal's fire observes the new epoch, never a gap; the caller fires the
// returned signal after releasing r.mu. On error nothing is committed: the
// previous (snapshot, signal) pair stays in place and the epoch does not
// rotate. Caller holds r.mu.
func (r *Registry[T]) recomputeLocked(ctx context.Context) (*signal.Signal, error) {
	snap, err := r.collectLocked(ctx)
	if err != nil {
		r.metrics.recomputeFailures.Inc()
		return nil, err
	}
	r.snapshot = snap
	old := r.current
	r.current = signal.New()
	r.metrics.recomputes.Inc()
	r.metrics.epochRotations.Inc()
	r.metrics.snapshotSize.Set(float64(len(snap)))
	return old, nil
}

// collectLocked concatenates every provider's items in source order into a
// fresh slice. Built fully off to the side so a failing provider never
// exposes a partial or mixed snapshot. Caller holds r.mu.
func (r *Registry[T]) collectLocked(ctx context.Context) ([]T, error) {
	merged := make([]T, 0, len(r.snapshot))
	for _, src := range r.sources {
		items, err := src.provider.Items(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading provider items: %w", err)
		}
		merged = append(merged, items...)
	}
	return merged, nil
}

func (r *Registry[T]) attachAll(pending []pendingWatch[T]) {
	for _, p := range pending {
		r.attach(p.src, p.sig)
	}
}

// attach starts a watcher for src outside the registry lock (attachment may
// synchronously report a change that raced the scan, which re-enters the
// lock). If the source was removed in the window before the watcher landed,
// the watcher is stopped instead of stored.
func (r *Registry[T]) attach(src *source[T], sig *signal.Signal) {
	w := watchSource(src.provider, sig, r.onSourceChanged)

	r.mu.Lock()
	kept := false
	for _, s := range r.sources {
		if s == src {
			src.watcher = w
			kept = true
			break
		}
	}
	r.mu.Unlock()

	if !kept {
		w.stop()
	}
}
