// Package types provides the shared data model used across the mcpmap packages.
//
// It defines the Origin tags identifying upstream registries, the Observation
// type produced by collectors, and the canonical Server record that the
// dedup and merge pipeline consolidates observations into.
//
//nolint:revive // Package name 'types' is appropriate for common type definitions
package types
