package core

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data; the runtime behavior (table option handlers, statement
// suffix handlers) lives in pkg/dialect.Dialect, which embeds this config.
type DialectConfig struct {
	// Name is the dialect identifier (e.g. "snowflake", "redshift").
	Name string

	// Aliases are alternative names accepted when looking a dialect up
	// ("athena" and "trino" for presto).
	Aliases []string

	// Identifiers defines quoting and normalization rules.
	Identifiers IdentifierConfig

	// DefaultSchema is the schema the engine assumes for unqualified names.
	// Informational only: lineage never fills it in on its own.
	DefaultSchema string

	// SupportsCastOperator enables the postfix :: cast.
	SupportsCastOperator bool

	// SupportsTrailingComma tolerates a trailing comma at the end of a
	// select list ("SELECT a, b, FROM t").
	SupportsTrailingComma bool
}

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormCaseSensitive preserves identifier case exactly.
	NormCaseSensitive NormalizationStrategy = iota
	// NormLowercase folds unquoted identifiers to lowercase (Redshift, Presto).
	NormLowercase
	// NormUppercase folds unquoted identifiers to uppercase (Snowflake, Oracle).
	NormUppercase
)

// String returns the string representation of the strategy.
func (n NormalizationStrategy) String() string {
	switch n {
	case NormLowercase:
		return "lowercase"
	case NormUppercase:
		return "uppercase"
	default:
		return "case-sensitive"
	}
}

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string                // Opening quote: " or `
	QuoteEnd      string                // Closing quote, usually the same as Quote
	Normalization NormalizationStrategy // How to normalize unquoted identifiers

	// SplitQuotedPath splits a quoted identifier on dots, so `p.d.t` names
	// three segments (BigQuery).
	SplitQuotedPath bool
}
