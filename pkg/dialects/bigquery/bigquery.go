// Package bigquery provides the Google BigQuery SQL dialect definition.
package bigquery

import (
	"github.com/leapstack-labs/catalogsync/pkg/core"
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/spi"
	"github.com/leapstack-labs/catalogsync/pkg/token"
)

func init() {
	dialect.Register(BigQuery)
}

// Config is the BigQuery SQL dialect configuration. Backtick-quoted paths
// such as `project.dataset.table` name three segments.
var Config = &core.DialectConfig{
	Name: "bigquery",
	Identifiers: core.IdentifierConfig{
		Quote:           "`",
		QuoteEnd:        "`",
		Normalization:   core.NormCaseSensitive,
		SplitQuotedPath: true,
	},
}

// BigQuery is the BigQuery SQL dialect.
var BigQuery = dialect.New(dialect.BigQuery, Config).
	TableOption("OPTIONS", dialect.ParenthesizedOption).
	TableOption("PARTITION", byList).
	TableOption("CLUSTER", byList).
	Build()

// byList accepts PARTITION BY expr / CLUSTER BY a, b. The expression is
// skipped up to the next option or AS.
func byList(p spi.ParserOps) error {
	p.NextToken()
	if err := p.ExpectWord("BY"); err != nil {
		return err
	}
	for {
		switch {
		case p.Check(token.EOF), p.Check(token.AS), p.Check(token.SEMICOLON),
			p.CheckWord("OPTIONS"), p.CheckWord("CLUSTER"), p.CheckWord("PARTITION"):
			return nil
		case p.Check(token.LPAREN):
			if err := p.SkipParenthesized(); err != nil {
				return err
			}
		default:
			p.NextToken()
		}
	}
}
