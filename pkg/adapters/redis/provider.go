package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/junction/internal/logging"
	"github.com/aretw0/junction/pkg/domain"
	"github.com/aretw0/junction/pkg/signal"
	backend "github.com/redis/go-redis/v9"
)

// Provider reads endpoints from a Redis key and invalidates through a
// pub/sub channel: writers store the new set, then publish on the channel,
// and every listening provider rotates its signal.
type Provider struct {
	client  *backend.Client
	key     string
	channel string
	logger  *slog.Logger

	mu  sync.Mutex
	sig *signal.Signal
}

// Option defines a functional option for configuring the Provider.
type Option func(*Provider)

// WithPrefix sets the namespace for the endpoint key and pub/sub channel.
func WithPrefix(prefix string) Option {
	return func(p *Provider) {
		p.key = prefix + "endpoints"
		p.channel = prefix + "changed"
	}
}

// WithLogger sets the logger used by the pub/sub loop.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New creates a provider with its own client connection.
func New(address, password string, db int, opts ...Option) *Provider {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a provider from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Provider {
	p := &Provider{
		client:  client,
		key:     "junction:endpoints",
		channel: "junction:changed",
		logger:  logging.NewNop(),
		sig:     signal.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Items fetches the current endpoint set from Redis. A missing key is an
// empty set, not an error.
func (p *Provider) Items(ctx context.Context) ([]domain.Endpoint, error) {
	raw, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.key, err)
	}
	var endpoints []domain.Endpoint
	if err := json.Unmarshal(raw, &endpoints); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p.key, err)
	}
	return endpoints, nil
}

// ChangeSignal returns the current generation's signal.
func (p *Provider) ChangeSignal() *signal.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sig
}

// Listen subscribes to the invalidation channel and starts the rotation
// loop. It returns once the subscription is confirmed, so publishes after a
// successful Listen are never missed. The loop runs until ctx is done.
func (p *Provider) Listen(ctx context.Context) error {
	pubsub := p.client.Subscribe(ctx, p.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribing to %s: %w", p.channel, err)
	}

	go func() {
		defer func() { _ = pubsub.Close() }()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					p.logger.Warn("Invalidation channel closed", "channel", p.channel)
					return
				}
				p.invalidate()
			}
		}
	}()
	return nil
}

// SetEndpoints stores a new endpoint set and publishes the invalidation,
// waking every listening provider (including this one).
func (p *Provider) SetEndpoints(ctx context.Context, endpoints []domain.Endpoint) error {
	raw, err := json.Marshal(endpoints)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, p.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", p.key, err)
	}
	if err := p.client.Publish(ctx, p.channel, "changed").Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.channel, err)
	}
	return nil
}

// invalidate rotates to a fresh signal and fires the superseded one.
// Firing happens outside the provider lock so subscribers may read back in.
func (p *Provider) invalidate() {
	p.mu.Lock()
	old := p.sig
	p.sig = signal.New()
	p.mu.Unlock()
	old.Fire()
}
