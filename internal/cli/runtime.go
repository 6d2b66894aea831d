package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/junction/internal/logging"
	fileAdapter "github.com/aretw0/junction/pkg/adapters/file"
	"github.com/aretw0/junction/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/junction/pkg/adapters/redis"
	"github.com/aretw0/junction/pkg/domain"
	"github.com/aretw0/junction/pkg/ports"
	"github.com/aretw0/junction/pkg/registry"
	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
)

// Runtime wires the configured sources into a registry plus the background
// loops (file polling, redis pub/sub) they need.
type Runtime struct {
	Config   Config
	Logger   *slog.Logger
	Registry *registry.Registry[domain.Endpoint]

	starters []func(ctx context.Context) error
}

// NewRuntime builds providers from the config and assembles the registry.
// Nothing is scanned or connected yet; Start launches the background loops
// and the registry scans lazily on first read.
func NewRuntime(cfg Config, opts ...registry.Option[domain.Endpoint]) (*Runtime, error) {
	rt := &Runtime{
		Config: cfg,
		Logger: logging.New(logging.ParseLevel(cfg.LogLevel)),
	}

	providers := make([]ports.Provider[domain.Endpoint], 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		p, err := rt.buildProvider(src)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.Name, err)
		}
		providers = append(providers, p)
	}

	regOpts := append([]registry.Option[domain.Endpoint]{
		registry.WithLogger[domain.Endpoint](rt.Logger),
	}, opts...)
	rt.Registry = registry.New(providers, regOpts...)
	return rt, nil
}

// WithDefaultMetrics registers the registry collectors with the process-wide
// prometheus registry. Used by serve; dump skips it.
func WithDefaultMetrics() registry.Option[domain.Endpoint] {
	return registry.WithMetrics[domain.Endpoint](prometheus.DefaultRegisterer)
}

// Start launches the sources' background loops. They stop when ctx ends.
func (rt *Runtime) Start(ctx context.Context) error {
	for _, start := range rt.starters {
		if err := start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) buildProvider(src SourceConfig) (ports.Provider[domain.Endpoint], error) {
	switch src.Type {
	case "static":
		var opts staticOptions
		if err := decodeOptions(src.Options, &opts); err != nil {
			return nil, err
		}
		endpoints := make([]domain.Endpoint, 0, len(opts.Endpoints))
		for _, ep := range opts.Endpoints {
			endpoint := domain.Endpoint{Name: ep.Name, URL: ep.URL, Metadata: ep.Metadata}
			if err := endpoint.Validate(); err != nil {
				return nil, err
			}
			endpoints = append(endpoints, endpoint)
		}
		return memory.New(endpoints...), nil

	case "file":
		var opts fileOptions
		if err := decodeOptions(src.Options, &opts); err != nil {
			return nil, err
		}
		p, err := fileAdapter.New(opts.Path, fileAdapter.WithLogger(rt.Logger))
		if err != nil {
			return nil, err
		}
		if opts.PollInterval > 0 {
			interval := opts.PollInterval
			rt.starters = append(rt.starters, func(ctx context.Context) error {
				go p.Watch(ctx, interval)
				return nil
			})
		}
		return p, nil

	case "redis":
		var opts redisOptions
		if err := decodeOptions(src.Options, &opts); err != nil {
			return nil, err
		}
		adapterOpts := []redisAdapter.Option{redisAdapter.WithLogger(rt.Logger)}
		if opts.Prefix != "" {
			adapterOpts = append(adapterOpts, redisAdapter.WithPrefix(opts.Prefix))
		}
		p := redisAdapter.New(opts.Address, opts.Password, opts.DB, adapterOpts...)
		rt.starters = append(rt.starters, p.Listen)
		return p, nil

	default:
		return nil, fmt.Errorf("unknown source type %q", src.Type)
	}
}

// decodeOptions maps the free-form YAML options onto an adapter option
// struct, tolerating scalar type looseness and "1m30s" durations.
func decodeOptions(in map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(in)
}
