// Package databricks provides the Databricks (Spark SQL) dialect definition.
package databricks

import (
	"github.com/leapstack-labs/catalogsync/pkg/core"
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	dialect.Register(Databricks)
}

// Config is the Databricks SQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "databricks",
	Aliases:       []string{"spark", "hive"},
	DefaultSchema: "default",
	Identifiers: core.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Normalization: core.NormLowercase,
	},
	SupportsCastOperator: true,
}

// Databricks is the Databricks SQL dialect.
var Databricks = dialect.New(dialect.Databricks, Config).
	TableOption("USING", dialect.ValueOption).
	TableOption("PARTITIONED", dialect.KeywordThenParenthesized("BY")).
	TableOption("CLUSTER", dialect.KeywordThenParenthesized("BY")).
	TableOption("TBLPROPERTIES", dialect.ParenthesizedOption).
	TableOption("OPTIONS", dialect.ParenthesizedOption).
	TableOption("LOCATION", dialect.ValueOption).
	TableOption("COMMENT", dialect.ValueOption).
	Build()
