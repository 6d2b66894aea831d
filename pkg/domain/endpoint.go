package domain

import "fmt"

// Endpoint is a single addressable entry contributed by a source.
// It is the item type the bundled adapters and the CLI aggregate; the
// registry core itself is generic and does not depend on it.
type Endpoint struct {
	// Name identifies the endpoint within its source (e.g. "billing-api").
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// URL is the address consumers dial.
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// Metadata carries optional source-specific labels (zone, weight, ...).
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:"metadata"`
}

func (e Endpoint) String() string {
	if e.Name == "" {
		return e.URL
	}
	return fmt.Sprintf("%s (%s)", e.Name, e.URL)
}

// Validate checks the minimal shape required by the adapters.
func (e Endpoint) Validate() error {
	if e.URL == "" {
		return fmt.Errorf("%w: endpoint %q has no url", ErrInvalidEndpoint, e.Name)
	}
	return nil
}
