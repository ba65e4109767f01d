// Package redshift provides the Amazon Redshift SQL dialect definition.
package redshift

import (
	"github.com/leapstack-labs/catalogsync/pkg/core"
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	dialect.Register(Redshift)
}

// Config is the Redshift SQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "redshift",
	DefaultSchema: "public",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Normalization: core.NormLowercase,
	},
	SupportsCastOperator: true,
}

// Redshift is the Redshift SQL dialect. CREATE TABLE accepts the
// distribution and sort key clauses; views accept WITH NO SCHEMA BINDING.
var Redshift = dialect.New(dialect.Redshift, Config).
	TableOption("DISTKEY", dialect.ParenthesizedOption).
	TableOption("SORTKEY", dialect.ParenthesizedOption).
	TableOption("DISTSTYLE", dialect.ValueOption).
	TableOption("COMPOUND", dialect.KeywordThenParenthesized("SORTKEY")).
	TableOption("INTERLEAVED", dialect.KeywordThenParenthesized("SORTKEY")).
	TableOption("BACKUP", dialect.ValueOption).
	TableOption("ENCODE", dialect.ValueOption).
	StatementSuffix("WITH", dialect.WordSequence("NO", "SCHEMA", "BINDING")).
	Build()
