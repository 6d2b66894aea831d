package signal

import "sync"

// Signal is a one-shot change notification representing a single epoch.
// It starts armed and transitions to fired exactly once; after that it is
// inert forever. Consumers either register a callback with Subscribe or
// select on Done alongside their own cancellation channels.
type Signal struct {
	mu    sync.Mutex
	fired bool
	done  chan struct{}
	subs  []*Subscription
}

// Subscription is a handle to a registered callback, used to cancel it
// before the signal fires.
type Subscription struct {
	signal *Signal
	fn     func()
}

// New creates an armed signal.
func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Subscribe registers fn to run once, when the signal fires.
// If the signal has already fired, fn runs before Subscribe returns.
// Callbacks run in registration order, outside the signal's lock, so they
// may safely call back into whatever owns the signal.
func (s *Signal) Subscribe(fn func()) *Subscription {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		fn()
		return &Subscription{}
	}
	sub := &Subscription{signal: s, fn: fn}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub
}

// Fire transitions the signal from armed to fired and invokes subscribers.
// Firing an already-fired signal is a no-op, and concurrent callers observe
// exactly one transition. Unsubscribing concurrently with Fire is
// best-effort: a racing callback may still run.
func (s *Signal) Fire() {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return
	}
	s.fired = true
	close(s.done)
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn()
	}
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Done returns a channel closed when the signal fires.
// Useful for select loops that also watch a context.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe removes the callback so it will not run when the signal fires.
// Calling it after the signal fired, or more than once, is a no-op.
func (sub *Subscription) Unsubscribe() {
	s := sub.signal
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	sub.signal = nil
}
