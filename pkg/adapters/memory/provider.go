package memory

import (
	"context"
	"sync"

	"github.com/aretw0/junction/pkg/domain"
	"github.com/aretw0/junction/pkg/signal"
)

// Provider is a mutable in-memory endpoint source. It is the reference
// implementation of the rotation contract and the natural test double for
// anything consuming ports.Provider.
type Provider struct {
	mu        sync.Mutex
	endpoints []domain.Endpoint
	err       error
	sig       *signal.Signal
}

// New creates a provider seeded with the given endpoints.
func New(endpoints ...domain.Endpoint) *Provider {
	return &Provider{
		endpoints: append([]domain.Endpoint(nil), endpoints...),
		sig:       signal.New(),
	}
}

// Items returns a copy of the current endpoint set, or the injected error.
func (p *Provider) Items(ctx context.Context) ([]domain.Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return append([]domain.Endpoint(nil), p.endpoints...), nil
}

// ChangeSignal returns the current generation's signal.
func (p *Provider) ChangeSignal() *signal.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sig
}

// SetEndpoints replaces the endpoint set and announces the change: a fresh
// armed signal is published first, then the superseded one fires. Firing
// happens outside the provider lock so subscribers may read back in.
func (p *Provider) SetEndpoints(endpoints ...domain.Endpoint) {
	p.mu.Lock()
	p.endpoints = append([]domain.Endpoint(nil), endpoints...)
	old := p.rotateLocked()
	p.mu.Unlock()
	old.Fire()
}

// SetError makes subsequent Items calls fail with err (nil restores normal
// reads) and announces a change so consumers re-read.
func (p *Provider) SetError(err error) {
	p.mu.Lock()
	p.err = err
	old := p.rotateLocked()
	p.mu.Unlock()
	old.Fire()
}

func (p *Provider) rotateLocked() *signal.Signal {
	old := p.sig
	p.sig = signal.New()
	return old
}
