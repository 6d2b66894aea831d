package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/junction/pkg/adapters/memory"
	"github.com/aretw0/junction/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherAttachRacingFire(t *testing.T) {
	// A provider change concurrent with watcher attachment must neither be
	// lost nor leave the watcher holding a stale subscription handle: the
	// chain always lands on the provider's live signal.
	for i := 0; i < 200; i++ {
		p := memory.New(domain.Endpoint{Name: "a", URL: "/v1"})
		sig := p.ChangeSignal()

		var calls atomic.Int64
		var w *sourceWatcher[domain.Endpoint]
		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			p.SetEndpoints(domain.Endpoint{Name: "a", URL: "/v2"})
		}()
		go func() {
			defer wg.Done()
			<-start
			w = watchSource[domain.Endpoint](p, sig, func() { calls.Add(1) })
		}()
		close(start)
		wg.Wait()

		require.GreaterOrEqual(t, calls.Load(), int64(1), "change racing attachment was lost")

		// Whichever interleaving happened, the live signal is subscribed.
		before := calls.Load()
		p.SetEndpoints(domain.Endpoint{Name: "a", URL: "/v3"})
		require.Greater(t, calls.Load(), before, "watcher detached from the live chain")

		w.stop()
		after := calls.Load()
		p.SetEndpoints(domain.Endpoint{Name: "a", URL: "/v4"})
		assert.Equal(t, after, calls.Load(), "stopped watcher must not report")
	}
}

func TestWatcherDrainsFiredGenerations(t *testing.T) {
	// Attaching with a signal that already fired twice reports each missed
	// generation before settling on the provider's armed signal.
	p := memory.New(domain.Endpoint{Name: "a", URL: "/v1"})
	sig := p.ChangeSignal()
	p.SetEndpoints(domain.Endpoint{Name: "a", URL: "/v2"})
	p.SetEndpoints(domain.Endpoint{Name: "a", URL: "/v3"})

	var calls atomic.Int64
	w := watchSource[domain.Endpoint](p, sig, func() { calls.Add(1) })
	assert.GreaterOrEqual(t, calls.Load(), int64(1), "missed generations must be reported on attach")

	before := calls.Load()
	p.SetEndpoints(domain.Endpoint{Name: "a", URL: "/v4"})
	assert.Greater(t, calls.Load(), before)
	w.stop()
}
