package dialect

import (
	"fmt"

	"github.com/leapstack-labs/catalogsync/pkg/spi"
	"github.com/leapstack-labs/catalogsync/pkg/token"
)

// Reusable table option handlers. Each consumes the option keyword itself.

// ParenthesizedOption accepts KEYWORD ( ... ), e.g. DISTKEY (eventid) or
// WITH (format = 'JSON').
func ParenthesizedOption(p spi.ParserOps) error {
	p.NextToken()
	return p.SkipParenthesized()
}

// ValueOption accepts KEYWORD value, where value is a single word, number or
// string, e.g. DISTSTYLE EVEN or LOCATION 's3://bucket/path'.
func ValueOption(p spi.ParserOps) error {
	p.NextToken()
	switch p.Token().Type {
	case token.IDENT, token.STRING, token.NUMBER:
		p.NextToken()
		return nil
	}
	if token.IsKeyword(p.Token().Type) {
		p.NextToken()
		return nil
	}
	return fmt.Errorf("expected option value, got %s", p.Token().Type)
}

// KeywordThenParenthesized accepts KEYWORD NEXT ( ... ), e.g. PARTITIONED BY (col)
// or COMPOUND SORTKEY (a, b).
func KeywordThenParenthesized(next string) spi.TableOptionHandler {
	return func(p spi.ParserOps) error {
		p.NextToken()
		if err := p.ExpectWord(next); err != nil {
			return err
		}
		return p.SkipParenthesized()
	}
}

// WordSequence accepts an exact sequence of words after the trigger keyword,
// e.g. WITH NO SCHEMA BINDING.
func WordSequence(words ...string) spi.StatementSuffixHandler {
	return func(p spi.ParserOps) error {
		p.NextToken()
		for _, w := range words {
			if err := p.ExpectWord(w); err != nil {
				return err
			}
		}
		return nil
	}
}
