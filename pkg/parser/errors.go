package parser

import (
	"fmt"

	"github.com/leapstack-labs/catalogsync/pkg/token"
)

// Position is a location in the SQL text.
type Position = token.Position

// ParseError represents a parsing error with position information.
// Malformed or unsupported SQL always surfaces as a *ParseError.
type ParseError struct {
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken     = "unexpected token %s, expected %s"
	ErrUnexpectedWord      = "unexpected %q, expected %s"
	ErrUnterminatedString  = "unterminated string literal"
	ErrUnterminatedQuote   = "unterminated quoted identifier"
	ErrUnbalancedParens    = "unbalanced parentheses"
	ErrUnsupportedStmt     = "unsupported statement starting with %q"
	ErrTrailingInput       = "unexpected %q after end of statement"
	ErrUnsupportedTableOpt = "table option %q is not supported in %s dialect"
	ErrTableNameParts      = "table name %q has more than three parts"
)
