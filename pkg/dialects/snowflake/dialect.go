package snowflake

import (
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/spi"
	"github.com/leapstack-labs/catalogsync/pkg/token"
)

func init() {
	dialect.Register(Snowflake)
}

// Snowflake is the Snowflake SQL dialect.
var Snowflake = dialect.New(dialect.Snowflake, Config).
	TableOption("CLUSTER", dialect.KeywordThenParenthesized("BY")).
	TableOption("COMMENT", assignmentOption).
	TableOption("DATA_RETENTION_TIME_IN_DAYS", assignmentOption).
	TableOption("COPY", dialect.ValueOption). // COPY GRANTS
	Build()

// assignmentOption accepts KEYWORD [=] value.
func assignmentOption(p spi.ParserOps) error {
	p.NextToken()
	p.Match(token.EQ)
	switch p.Token().Type {
	case token.STRING, token.NUMBER, token.IDENT:
		p.NextToken()
		return nil
	}
	return p.Expect(token.STRING)
}
