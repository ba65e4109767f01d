// Package ansi provides the generic ANSI SQL dialect, used when no dialect
// is specified.
package ansi

import (
	"github.com/leapstack-labs/catalogsync/pkg/core"
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	dialect.Register(ANSI)
}

// Config is the ANSI dialect configuration. Identifiers keep their case.
var Config = &core.DialectConfig{
	Name:    "ansi",
	Aliases: []string{"generic", "sql"},
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Normalization: core.NormCaseSensitive,
	},
}

// ANSI is the generic SQL dialect.
var ANSI = dialect.New(dialect.ANSI, Config).Build()
