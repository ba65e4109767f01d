// Package core defines the shared vocabulary of catalogsync.
//
// This package contains:
//   - Dialect configuration (DialectConfig, IdentifierConfig)
//   - Identifier normalization strategies
//
// pkg/core imports only the standard library. Every other package may
// depend on core, never the reverse.
package core
