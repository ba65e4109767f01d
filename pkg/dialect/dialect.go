// Package dialect provides the runtime SQL dialect definitions used by the
// parser and the lineage extractor.
//
// The set of supported dialects is closed: every dialect has a Kind, and
// concrete definitions are registered from pkg/dialects/*/ packages in their
// init() functions. The empty dialect name resolves to the generic ANSI
// grammar.
package dialect

import (
	"strings"

	"github.com/leapstack-labs/catalogsync/pkg/core"
	"github.com/leapstack-labs/catalogsync/pkg/spi"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind identifies one of the supported SQL dialects.
type Kind int

const (
	// ANSI is the generic grammar, used when no dialect is given.
	ANSI Kind = iota
	Snowflake
	Redshift
	Presto
	Oracle
	Databricks
	BigQuery
	Postgres
)

var kindNames = [...]string{
	ANSI:       "ansi",
	Snowflake:  "snowflake",
	Redshift:   "redshift",
	Presto:     "presto",
	Oracle:     "oracle",
	Databricks: "databricks",
	BigQuery:   "bigquery",
	Postgres:   "postgres",
}

// String returns the canonical dialect name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds returns every supported dialect kind.
func Kinds() []Kind {
	return []Kind{ANSI, Snowflake, Redshift, Presto, Oracle, Databricks, BigQuery, Postgres}
}

// Dialect represents a SQL dialect configuration plus its parsing hooks.
type Dialect struct {
	core.DialectConfig

	Kind Kind

	tableOptions    map[string]spi.TableOptionHandler
	statementSuffix map[string]spi.StatementSuffixHandler
	reservedAsAlias map[string]struct{}
}

// Config returns the pure data configuration for this dialect.
func (d *Dialect) Config() *core.DialectConfig {
	cfg := d.DialectConfig
	return &cfg
}

// NormalizeName normalizes an unquoted identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case core.NormUppercase:
		return cases.Upper(language.Und).String(name)
	case core.NormLowercase:
		return cases.Lower(language.Und).String(name)
	default:
		return name
	}
}

// Normalize normalizes an identifier, leaving quoted identifiers as written.
func (d *Dialect) Normalize(name string, quoted bool) string {
	if quoted {
		return name
	}
	return d.NormalizeName(name)
}

// TableOptionHandler returns the handler for a CREATE TABLE option keyword,
// or nil when the dialect does not accept it.
func (d *Dialect) TableOptionHandler(word string) spi.TableOptionHandler {
	return d.tableOptions[strings.ToUpper(word)]
}

// StatementSuffixHandler returns the handler for a statement trailer keyword,
// or nil when the dialect does not accept it.
func (d *Dialect) StatementSuffixHandler(word string) spi.StatementSuffixHandler {
	return d.statementSuffix[strings.ToUpper(word)]
}

// IsReservedAlias reports whether an unquoted word may not be used as an
// implicit table alias in this dialect (e.g. DISTKEY after a table name).
func (d *Dialect) IsReservedAlias(word string) bool {
	_, ok := d.reservedAsAlias[strings.ToUpper(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	q, qe := d.Identifiers.Quote, d.Identifiers.QuoteEnd
	if q == "" {
		q, qe = `"`, `"`
	}
	return q + strings.ReplaceAll(name, qe, qe+qe) + qe
}
