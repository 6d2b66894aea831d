package junction

import (
	"github.com/aretw0/junction/pkg/domain"
	"github.com/aretw0/junction/pkg/ports"
	"github.com/aretw0/junction/pkg/registry"
)

// Version is the library version, reported by the CLI and the MCP server.
const Version = "0.3.0"

// Endpoint is the item type aggregated by the bundled adapters.
type Endpoint = domain.Endpoint

// Provider is a source of endpoints with a rotating change signal.
type Provider = ports.Provider[Endpoint]

// Registry is the endpoint instantiation of the generic aggregation core.
type Registry = registry.Registry[Endpoint]

// Option configures the registry (see registry.WithLogger, registry.WithMetrics).
type Option = registry.Option[Endpoint]

// New creates an endpoint registry over the given providers. Provider order
// determines the snapshot's concatenation order; nothing is scanned until
// the first read.
func New(providers []Provider, opts ...Option) *Registry {
	return registry.New(providers, opts...)
}
