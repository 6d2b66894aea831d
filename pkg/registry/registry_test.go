package registry_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/junction/pkg/adapters/memory"
	"github.com/aretw0/junction/pkg/domain"
	"github.com/aretw0/junction/pkg/ports"
	"github.com/aretw0/junction/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider wraps the memory provider to record Items calls.
type countingProvider struct {
	*memory.Provider
	reads atomic.Int64
}

func (p *countingProvider) Items(ctx context.Context) ([]domain.Endpoint, error) {
	p.reads.Add(1)
	return p.Provider.Items(ctx)
}

// rotateOnReadProvider swaps in fresh endpoints right after a chosen Items
// read returns, emulating a change that lands between the aggregator's
// signal capture and its snapshot commit.
type rotateOnReadProvider struct {
	*memory.Provider
	reads   atomic.Int64
	trigger int64
	fresh   []domain.Endpoint
}

func (p *rotateOnReadProvider) Items(ctx context.Context) ([]domain.Endpoint, error) {
	items, err := p.Provider.Items(ctx)
	if p.reads.Add(1) == p.trigger {
		p.Provider.SetEndpoints(p.fresh...)
	}
	return items, err
}

func endpoints(urls ...string) []domain.Endpoint {
	eps := make([]domain.Endpoint, 0, len(urls))
	for _, u := range urls {
		eps = append(eps, domain.Endpoint{URL: u})
	}
	return eps
}

func urls(eps []domain.Endpoint) []string {
	out := make([]string, 0, len(eps))
	for _, e := range eps {
		out = append(out, e.URL)
	}
	return out
}

func TestRegistry_LazyInit(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{Provider: memory.New(endpoints("/x")...)}

	reg := registry.New([]ports.Provider[domain.Endpoint]{p})
	assert.EqualValues(t, 0, p.reads.Load(), "construction must not scan providers")

	_, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.reads.Load(), "first read triggers the scan")

	_, err = reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.reads.Load(), "cached snapshot, no rescan")
}

func TestRegistry_LazyInitViaChangeToken(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{Provider: memory.New(endpoints("/x")...)}

	reg := registry.New([]ports.Provider[domain.Endpoint]{p})
	tok, err := reg.ChangeToken(ctx)
	require.NoError(t, err)
	assert.False(t, tok.Fired())
	assert.EqualValues(t, 1, p.reads.Load(), "ChangeToken triggers the same init")
}

func TestRegistry_SnapshotConcatenationOrder(t *testing.T) {
	ctx := context.Background()
	a := memory.New(endpoints("/a1", "/a2")...)
	b := memory.New(endpoints("/b1")...)
	c := memory.New(endpoints("/c1", "/c2", "/c3")...)

	reg := registry.New([]ports.Provider[domain.Endpoint]{a, b, c})
	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a1", "/a2", "/b1", "/c1", "/c2", "/c3"}, urls(eps))
}

func TestRegistry_ChangePropagation(t *testing.T) {
	// The worked example: A=["/x"], B=["/y"]; fire A with ["/x2"].
	ctx := context.Background()
	a := memory.New(endpoints("/x")...)
	b := memory.New(endpoints("/y")...)

	reg := registry.New([]ports.Provider[domain.Endpoint]{a, b})

	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/x", "/y"}, urls(eps))

	oldToken, err := reg.ChangeToken(ctx)
	require.NoError(t, err)

	a.SetEndpoints(endpoints("/x2")...)

	assert.True(t, oldToken.Fired(), "held token must fire on change")

	newToken, err := reg.ChangeToken(ctx)
	require.NoError(t, err)
	assert.NotSame(t, oldToken, newToken)
	assert.False(t, newToken.Fired(), "fresh token belongs to the new epoch")

	eps, err = reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/x2", "/y"}, urls(eps))
}

func TestRegistry_ChangeRacingFirstScanRecovered(t *testing.T) {
	ctx := context.Background()
	p := &rotateOnReadProvider{
		Provider: memory.New(endpoints("/old")...),
		trigger:  1,
		fresh:    endpoints("/new"),
	}
	reg := registry.New([]ports.Provider[domain.Endpoint]{p})

	tok, err := reg.ChangeToken(ctx)
	require.NoError(t, err)

	// The change fired a signal captured before the scan read the provider,
	// so the watcher reports it during attachment and the registry converges.
	assert.True(t, tok.Fired(), "change during the first scan must fire its token")
	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/new"}, urls(eps))
}

func TestRegistry_ChangeRacingAddRecovered(t *testing.T) {
	ctx := context.Background()
	base := memory.New(endpoints("/base")...)
	reg := registry.New([]ports.Provider[domain.Endpoint]{base})

	tok, err := reg.ChangeToken(ctx)
	require.NoError(t, err)

	p := &rotateOnReadProvider{
		Provider: memory.New(endpoints("/old")...),
		trigger:  1,
		fresh:    endpoints("/new"),
	}
	require.NoError(t, reg.Add(ctx, p))

	assert.True(t, tok.Fired())
	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/base", "/new"}, urls(eps))
}

func TestRegistry_ChangeRacingRecomputeRecovered(t *testing.T) {
	ctx := context.Background()
	p := &rotateOnReadProvider{
		Provider: memory.New(endpoints("/v1")...),
		trigger:  2, // the read performed by the change-triggered recompute
		fresh:    endpoints("/v3"),
	}
	reg := registry.New([]ports.Provider[domain.Endpoint]{p})

	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/v1"}, urls(eps))

	tok, err := reg.ChangeToken(ctx)
	require.NoError(t, err)

	// /v2 triggers a recompute; /v3 lands mid-recompute. The watcher chained
	// from a signal captured before the read, so /v3 is drained, not lost.
	p.SetEndpoints(endpoints("/v2")...)

	assert.True(t, tok.Fired())
	eps, err = reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/v3"}, urls(eps))
}

func TestRegistry_TokenStableWhileUnchanged(t *testing.T) {
	ctx := context.Background()
	reg := registry.New([]ports.Provider[domain.Endpoint]{memory.New(endpoints("/x")...)})

	tok1, err := reg.ChangeToken(ctx)
	require.NoError(t, err)
	tok2, err := reg.ChangeToken(ctx)
	require.NoError(t, err)
	assert.Same(t, tok1, tok2)
}

func TestRegistry_NoRefireLoop(t *testing.T) {
	// A consumer that re-subscribes from inside its own callback must land on
	// the next epoch's signal, not the one mid-fire. 1000 change events with
	// such a consumer must produce exactly 1000 callbacks and no recursion.
	ctx := context.Background()
	p := memory.New(endpoints("/x")...)
	reg := registry.New([]ports.Provider[domain.Endpoint]{p})

	var fires atomic.Int64
	var resubscribe func()
	resubscribe = func() {
		tok, err := reg.ChangeToken(ctx)
		require.NoError(t, err)
		tok.Subscribe(func() {
			fires.Add(1)
			resubscribe()
		})
	}
	resubscribe()

	const events = 1000
	for i := 0; i < events; i++ {
		p.SetEndpoints(endpoints(fmt.Sprintf("/x-%d", i))...)
	}

	assert.EqualValues(t, events, fires.Load())

	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{fmt.Sprintf("/x-%d", events-1)}, urls(eps))
}

func TestRegistry_AddProvider(t *testing.T) {
	ctx := context.Background()
	a := memory.New(endpoints("/a")...)
	reg := registry.New([]ports.Provider[domain.Endpoint]{a})

	_, err := reg.Endpoints(ctx)
	require.NoError(t, err)

	tok, err := reg.ChangeToken(ctx)
	require.NoError(t, err)
	var fires atomic.Int64
	tok.Subscribe(func() { fires.Add(1) })

	b := memory.New(endpoints("/b")...)
	require.NoError(t, reg.Add(ctx, b))

	assert.EqualValues(t, 1, fires.Load(), "membership change fires exactly once")
	assert.Equal(t, 2, reg.Providers())

	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, urls(eps))

	// The new provider is watched from the moment it joined.
	b.SetEndpoints(endpoints("/b2")...)
	eps, err = reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b2"}, urls(eps))
}

func TestRegistry_RemoveProvider(t *testing.T) {
	ctx := context.Background()
	a := memory.New(endpoints("/a")...)
	b := memory.New(endpoints("/b")...)
	reg := registry.New([]ports.Provider[domain.Endpoint]{a, b})

	_, err := reg.Endpoints(ctx)
	require.NoError(t, err)

	tok, err := reg.ChangeToken(ctx)
	require.NoError(t, err)
	var fires atomic.Int64
	tok.Subscribe(func() { fires.Add(1) })

	require.NoError(t, reg.Remove(ctx, b))
	assert.EqualValues(t, 1, fires.Load())
	assert.Equal(t, 1, reg.Providers())

	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, urls(eps))

	// Changes on the removed provider no longer reach the registry.
	next, err := reg.ChangeToken(ctx)
	require.NoError(t, err)
	b.SetEndpoints(endpoints("/b-ghost")...)
	assert.False(t, next.Fired(), "removed provider must not trigger recompute")
}

func TestRegistry_RemoveUnknownProvider(t *testing.T) {
	ctx := context.Background()
	reg := registry.New([]ports.Provider[domain.Endpoint]{memory.New()})

	err := reg.Remove(ctx, memory.New())
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestRegistry_AddBeforeInitStaysLazy(t *testing.T) {
	ctx := context.Background()
	p := &countingProvider{Provider: memory.New(endpoints("/a")...)}
	reg := registry.New[domain.Endpoint](nil)

	require.NoError(t, reg.Add(ctx, p))
	assert.EqualValues(t, 0, p.reads.Load(), "pre-init membership change scans nothing")

	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, urls(eps))
}

func TestRegistry_FirstReadFailurePropagates(t *testing.T) {
	ctx := context.Background()
	p := memory.New()
	boom := errors.New("cold backend")
	p.SetError(boom)

	reg := registry.New([]ports.Provider[domain.Endpoint]{p})
	_, err := reg.Endpoints(ctx)
	require.ErrorIs(t, err, boom)

	// Initialization did not stick; a recovered provider serves normally.
	p.SetError(nil)
	p.SetEndpoints(endpoints("/back")...)
	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/back"}, urls(eps))
}

func TestRegistry_BackgroundFailureKeepsLastSnapshot(t *testing.T) {
	ctx := context.Background()
	a := memory.New(endpoints("/a")...)
	b := memory.New(endpoints("/b")...)
	reg := registry.New([]ports.Provider[domain.Endpoint]{a, b})

	_, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	tok, err := reg.ChangeToken(ctx)
	require.NoError(t, err)

	// The change-triggered recompute fails; the registry keeps serving the
	// last good epoch and does not rotate.
	boom := errors.New("flaky backend")
	b.SetError(boom)

	assert.False(t, tok.Fired(), "failed recompute must not rotate the epoch")
	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, urls(eps))

	// Recovery is announced like any other change and propagates.
	b.SetError(nil)
	b.SetEndpoints(endpoints("/b2")...)

	assert.True(t, tok.Fired())
	eps, err = reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b2"}, urls(eps))
}

func TestRegistry_ReentrantMembershipFromCallback(t *testing.T) {
	// A subscriber may mutate membership from inside its callback without
	// deadlocking: the callback runs outside the registry's critical section.
	ctx := context.Background()
	a := memory.New(endpoints("/a")...)
	reg := registry.New([]ports.Provider[domain.Endpoint]{a})

	_, err := reg.Endpoints(ctx)
	require.NoError(t, err)

	tok, err := reg.ChangeToken(ctx)
	require.NoError(t, err)

	late := memory.New(endpoints("/late")...)
	tok.Subscribe(func() {
		require.NoError(t, reg.Add(ctx, late))
	})

	a.SetEndpoints(endpoints("/a2")...)

	eps, err := reg.Endpoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a2", "/late"}, urls(eps))
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	// Readers racing a stream of changes must always observe a fully-formed
	// snapshot: both entries of the single provider belong to one generation.
	ctx := context.Background()
	p := memory.New(endpoints("/gen-0/a", "/gen-0/b")...)
	reg := registry.New([]ports.Provider[domain.Endpoint]{p})

	_, err := reg.Endpoints(ctx)
	require.NoError(t, err)

	const (
		readers = 8
		changes = 200
	)

	var torn atomic.Int64
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				eps, err := reg.Endpoints(ctx)
				if err != nil || len(eps) != 2 {
					torn.Add(1)
					return
				}
				genA := strings.Split(eps[0].URL, "/")[1]
				genB := strings.Split(eps[1].URL, "/")[1]
				if genA != genB {
					torn.Add(1)
					return
				}
				if _, err := reg.ChangeToken(ctx); err != nil {
					torn.Add(1)
					return
				}
			}
		}()
	}

	for i := 1; i <= changes; i++ {
		p.SetEndpoints(endpoints(
			fmt.Sprintf("/gen-%d/a", i),
			fmt.Sprintf("/gen-%d/b", i),
		)...)
	}
	close(stop)
	wg.Wait()

	assert.EqualValues(t, 0, torn.Load(), "no reader may observe a torn snapshot")
}

func TestRegistry_Dump(t *testing.T) {
	ctx := context.Background()
	reg := registry.New([]ports.Provider[domain.Endpoint]{
		memory.New(domain.Endpoint{Name: "api", URL: "http://api.local"}),
	})

	out, err := reg.Dump(ctx)
	require.NoError(t, err)
	assert.Contains(t, out, "1 item(s) from 1 source(s)")
	assert.Contains(t, out, "api (http://api.local)")
}
