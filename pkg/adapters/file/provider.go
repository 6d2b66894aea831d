package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aretw0/junction/internal/logging"
	"github.com/aretw0/junction/pkg/domain"
	"github.com/aretw0/junction/pkg/signal"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Provider reads endpoints from a YAML manifest on disk.
//
// The manifest shape:
//
//	endpoints:
//	  - name: billing
//	    url: http://billing.internal:8080
//	    metadata:
//	      zone: eu-west-1
//
// Reload re-reads the manifest and announces a change only when the content
// actually differs. Watch runs Reload on an interval until the context ends.
type Provider struct {
	path   string
	logger *slog.Logger

	mu        sync.Mutex
	endpoints []domain.Endpoint
	checksum  [sha256.Size]byte
	sig       *signal.Signal
}

// Option defines a functional option for configuring the Provider.
type Option func(*Provider)

// WithLogger sets the logger used by the polling loop.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// manifest is the on-disk document. Endpoint entries are decoded leniently
// so numeric metadata values in hand-written YAML still land as strings.
type manifest struct {
	Endpoints []map[string]any `yaml:"endpoints"`
}

// New creates a provider for the manifest at path and performs the initial
// read, so a broken manifest fails construction instead of the first scan.
func New(path string, opts ...Option) (*Provider, error) {
	p := &Provider{
		path:   path,
		logger: logging.NewNop(),
		sig:    signal.New(),
	}
	for _, opt := range opts {
		opt(p)
	}

	endpoints, checksum, err := p.read()
	if err != nil {
		return nil, err
	}
	p.endpoints = endpoints
	p.checksum = checksum
	return p, nil
}

// Items returns a copy of the endpoints from the last successful read.
func (p *Provider) Items(ctx context.Context) ([]domain.Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Endpoint(nil), p.endpoints...), nil
}

// ChangeSignal returns the current generation's signal.
func (p *Provider) ChangeSignal() *signal.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sig
}

// Reload re-reads the manifest. If the content changed since the last read,
// the provider rotates to a fresh signal and fires the superseded one;
// otherwise it is a no-op. Read or parse failures leave the last good set in
// place and are returned.
func (p *Provider) Reload(ctx context.Context) error {
	endpoints, checksum, err := p.read()
	if err != nil {
		return err
	}

	p.mu.Lock()
	if checksum == p.checksum {
		p.mu.Unlock()
		return nil
	}
	p.endpoints = endpoints
	p.checksum = checksum
	old := p.sig
	p.sig = signal.New()
	p.mu.Unlock()

	old.Fire()
	return nil
}

// Watch polls the manifest every interval until ctx is done. Reload errors
// are logged and polling continues; a fixed manifest picks back up.
func (p *Provider) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Reload(ctx); err != nil {
				p.logger.Warn("Manifest reload failed", "path", p.path, "err", err)
			}
		}
	}
}

func (p *Provider) read() ([]domain.Endpoint, [sha256.Size]byte, error) {
	var checksum [sha256.Size]byte

	raw, err := os.ReadFile(p.path)
	if err != nil {
		return nil, checksum, fmt.Errorf("reading manifest %s: %w", p.path, err)
	}
	checksum = sha256.Sum256(bytes.TrimSpace(raw))

	var doc manifest
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, checksum, fmt.Errorf("parsing manifest %s: %w", p.path, err)
	}

	endpoints := make([]domain.Endpoint, 0, len(doc.Endpoints))
	for i, entry := range doc.Endpoints {
		var ep domain.Endpoint
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &ep,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, checksum, err
		}
		if err := decoder.Decode(entry); err != nil {
			return nil, checksum, fmt.Errorf("manifest %s entry %d: %w", p.path, i, err)
		}
		if err := ep.Validate(); err != nil {
			return nil, checksum, fmt.Errorf("manifest %s entry %d: %w", p.path, i, err)
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, checksum, nil
}
