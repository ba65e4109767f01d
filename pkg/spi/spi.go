// Package spi provides the Service Provider Interface that dialect handlers
// use to drive the parser without importing it.
package spi

import "github.com/leapstack-labs/catalogsync/pkg/token"

// ParserOps exposes parser operations to dialect handlers.
type ParserOps interface {
	// Token access
	Token() token.Token
	Peek() token.Token

	// Consumption
	NextToken()
	Check(t token.TokenType) bool
	Match(t token.TokenType) bool
	Expect(t token.TokenType) error

	// CheckWord and MatchWord compare an unquoted identifier or keyword
	// against word, ignoring case.
	CheckWord(word string) bool
	MatchWord(word string) bool
	ExpectWord(word string) error

	// SkipParenthesized consumes a balanced "( ... )" group starting at the
	// current token.
	SkipParenthesized() error

	// Error handling
	AddError(msg string)
	Position() token.Position
}

// TableOptionHandler parses a dialect-specific CREATE TABLE option such as
// Redshift's DISTKEY (col). Called with the option keyword as the current
// token; the handler consumes it.
type TableOptionHandler func(p ParserOps) error

// StatementSuffixHandler parses a dialect-specific trailer after a statement
// body, such as Redshift's WITH NO SCHEMA BINDING. Called with the trigger
// keyword as the current token.
type StatementSuffixHandler func(p ParserOps) error

// Precedence constants for operator precedence parsing.
const (
	PrecedenceNone       = 0
	PrecedenceOr         = 1
	PrecedenceAnd        = 2
	PrecedenceNot        = 3
	PrecedenceComparison = 4 // =, <>, <, >, <=, >=, LIKE, IN, BETWEEN, IS
	PrecedenceAddition   = 5 // +, -, ||
	PrecedenceMultiply   = 6 // *, /, %
	PrecedenceUnary      = 7
	PrecedencePostfix    = 8 // ::, [ ]
)
