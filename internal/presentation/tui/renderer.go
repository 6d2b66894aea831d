package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/junction/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// It auto-detects light/dark backgrounds.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// EndpointsMarkdown builds a markdown table of the snapshot, suitable for
// the glamour renderer or plain output.
func EndpointsMarkdown(endpoints []domain.Endpoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Endpoints (%d)\n\n", len(endpoints))
	if len(endpoints) == 0 {
		b.WriteString("_No endpoints configured._\n")
		return b.String()
	}
	b.WriteString("| # | Name | URL | Metadata |\n")
	b.WriteString("|---|------|-----|----------|\n")
	for i, ep := range endpoints {
		meta := make([]string, 0, len(ep.Metadata))
		for k, v := range ep.Metadata {
			meta = append(meta, k+"="+v)
		}
		sort.Strings(meta)
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, ep.Name, ep.URL, strings.Join(meta, ", "))
	}
	return b.String()
}
