// Package snowflake provides the Snowflake SQL dialect definition.
package snowflake

import "github.com/leapstack-labs/catalogsync/pkg/core"

// Config is the Snowflake SQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "snowflake",
	DefaultSchema: "PUBLIC",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Normalization: core.NormUppercase, // Snowflake folds unquoted names to uppercase
	},
	SupportsCastOperator:  true,
	SupportsTrailingComma: true,
}
