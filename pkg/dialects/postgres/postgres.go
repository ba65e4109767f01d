// Package postgres provides the PostgreSQL dialect definition.
package postgres

import (
	"github.com/leapstack-labs/catalogsync/pkg/core"
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// Config is the PostgreSQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "postgres",
	Aliases:       []string{"postgresql"},
	DefaultSchema: "public",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Normalization: core.NormLowercase,
	},
	SupportsCastOperator: true,
}

// Postgres is the PostgreSQL dialect.
var Postgres = dialect.New(dialect.Postgres, Config).
	TableOption("TABLESPACE", dialect.ValueOption).
	Build()
