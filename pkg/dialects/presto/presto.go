// Package presto provides the Presto/Trino SQL dialect definition, which is
// also what Amazon Athena speaks.
package presto

import (
	"github.com/leapstack-labs/catalogsync/pkg/core"
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	dialect.Register(Presto)
}

// Config is the Presto SQL dialect configuration.
var Config = &core.DialectConfig{
	Name:    "presto",
	Aliases: []string{"athena", "trino"},
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Normalization: core.NormLowercase,
	},
}

// Presto is the Presto SQL dialect. CREATE TABLE accepts a WITH (...)
// property list before AS.
var Presto = dialect.New(dialect.Presto, Config).
	TableOption("WITH", dialect.ParenthesizedOption).
	TableOption("COMMENT", dialect.ValueOption).
	Build()
