// Package domain defines the core business entities for chronicle.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Scope: A top-level collection of containers (a Discord server)
//   - Container: A paginated message history (a text channel)
//   - Item: A single archived message
//   - Category: One of eight closed classification buckets
//   - Report: The aggregated outcome of a dump run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
