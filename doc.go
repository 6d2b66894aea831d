/*
Package junction aggregates endpoint collections from multiple dynamic
sources into a single coherent, cheaply-readable snapshot with a composable
change signal.

Each source implements a small Provider contract: return your current items,
and rotate a one-shot signal whenever they change. Junction merges the items
in source order, caches the result, and hands consumers a token that fires
exactly once when the merged set goes stale.

# Concept

Reads are cheap and changes are explicit. The registry never polls: it scans
lazily on the first read, then recomputes only when a source announces a
change (or membership changes). Consumers hold the current token, fire means
re-fetch, and the token obtained after a fire always belongs to the new
epoch — a consumer re-subscribing from inside its own callback cannot loop.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/junction"
		"github.com/aretw0/junction/pkg/adapters/memory"
	)

	func main() {
		core := memory.New(
			junction.Endpoint{Name: "api", URL: "http://api.internal"},
		)

		reg := junction.New([]junction.Provider{core})

		ctx := context.Background()
		endpoints, err := reg.Endpoints(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, ep := range endpoints {
			fmt.Println(ep)
		}

		// React to changes
		token, _ := reg.ChangeToken(ctx)
		token.Subscribe(func() {
			// Re-fetch and re-subscribe; the fresh token belongs to the
			// new epoch.
		})

		core.SetEndpoints(junction.Endpoint{Name: "api", URL: "http://api.internal:9090"})
	}

Bundled adapters cover static sets (memory), YAML manifests on disk (file)
and Redis-backed sets with pub/sub invalidation (redis). The cmd/junction
CLI serves the merged registry over HTTP with prometheus metrics, or as an
MCP server over stdio.
*/
package junction
