// Package parser provides a dialect-aware SQL parser for the statement
// shapes that move data between tables: CREATE TABLE/VIEW, INSERT, UPDATE,
// MERGE and DELETE, plus the queries they embed.
//
// Dialect specifics (CREATE TABLE options, view trailers, identifier
// quoting) are supplied by pkg/dialect through the spi.ParserOps interface,
// which *Parser implements.
package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/catalogsync/pkg/core"
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/spi"
	"github.com/leapstack-labs/catalogsync/pkg/token"
)

var _ spi.ParserOps = (*Parser)(nil)

// generic is used when no dialect is registered for ANSI.
var generic = dialect.New(dialect.ANSI, &core.DialectConfig{Name: "ansi"}).Build()

// Parser parses SQL statements for one dialect.
type Parser struct {
	lexer   *Lexer
	dialect *dialect.Dialect
	token   token.Token // current token
	peek    token.Token // next token
	errors  []*ParseError
}

// ScriptStatement is one statement of a multi-statement script. Exactly one
// of Statement or Err is set.
type ScriptStatement struct {
	Statement Statement
	Err       error
	Pos       Position
}

// New creates a parser for sql. A nil dialect selects ANSI.
func New(sql string, d *dialect.Dialect) *Parser {
	if d == nil {
		if ansi, ok := dialect.ForKind(dialect.ANSI); ok {
			d = ansi
		} else {
			d = generic
		}
	}
	p := &Parser{
		lexer:   NewLexer(sql, d),
		dialect: d,
	}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses exactly one statement, optionally followed by semicolons.
func Parse(sql string, d *dialect.Dialect) (Statement, error) {
	p := New(sql, d)
	stmt := p.parseStatement()
	if !p.failed() {
		for p.Match(token.SEMICOLON) {
		}
		if !p.Check(token.EOF) {
			p.unexpected("';' or end of input")
		}
	}
	if p.failed() {
		return nil, p.errors[0]
	}
	return stmt, nil
}

// ParseScript parses a semicolon-separated script. A statement that fails
// to parse is reported in place and parsing resumes after the next ';'.
func ParseScript(sql string, d *dialect.Dialect) []ScriptStatement {
	p := New(sql, d)
	var out []ScriptStatement
	for !p.Check(token.EOF) {
		if p.Match(token.SEMICOLON) {
			continue
		}
		start := p.token.Pos
		stmt := p.parseStatement()
		if !p.failed() && !p.Check(token.SEMICOLON) && !p.Check(token.EOF) {
			p.unexpected("';' or end of input")
		}
		if p.failed() {
			out = append(out, ScriptStatement{Err: p.errors[0], Pos: start})
			p.errors = nil
			for !p.Check(token.SEMICOLON) && !p.Check(token.EOF) {
				p.nextToken()
			}
			continue
		}
		out = append(out, ScriptStatement{Statement: stmt, Pos: start})
	}
	return out
}

// Dialect returns the dialect the parser was created with.
func (p *Parser) Dialect() *dialect.Dialect {
	return p.dialect
}

// ---------- spi.ParserOps ----------

// Token returns the current token.
func (p *Parser) Token() token.Token { return p.token }

// Peek returns the token after the current one.
func (p *Parser) Peek() token.Token { return p.peek }

// NextToken advances to the next token.
func (p *Parser) NextToken() { p.nextToken() }

// Check reports whether the current token has type t.
func (p *Parser) Check(t token.TokenType) bool { return p.token.Type == t }

// Match consumes the current token if it has type t.
func (p *Parser) Match(t token.TokenType) bool {
	if p.token.Type == t {
		p.nextToken()
		return true
	}
	return false
}

// Expect consumes a token of type t or returns a *ParseError.
func (p *Parser) Expect(t token.TokenType) error {
	if p.token.Type != t {
		return p.unexpectedError(t.String())
	}
	p.nextToken()
	return nil
}

// CheckWord reports whether the current token is the unquoted word.
func (p *Parser) CheckWord(word string) bool { return p.token.Is(word) }

// MatchWord consumes the current token if it is the unquoted word.
func (p *Parser) MatchWord(word string) bool {
	if p.token.Is(word) {
		p.nextToken()
		return true
	}
	return false
}

// ExpectWord consumes the unquoted word or returns a *ParseError.
func (p *Parser) ExpectWord(word string) error {
	if !p.token.Is(word) {
		return p.unexpectedError(strings.ToUpper(word))
	}
	p.nextToken()
	return nil
}

// SkipParenthesized consumes a balanced "( ... )" group.
func (p *Parser) SkipParenthesized() error {
	if !p.Check(token.LPAREN) {
		return p.unexpectedError("'('")
	}
	depth := 0
	for {
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				p.nextToken()
				return nil
			}
		case token.EOF:
			return p.errorAt(p.token.Pos, ErrUnbalancedParens)
		case token.ILLEGAL:
			return p.unexpectedError("')'")
		}
		p.nextToken()
	}
}

// AddError records an error at the current position.
func (p *Parser) AddError(msg string) {
	p.errors = append(p.errors, p.errorAt(p.token.Pos, msg))
}

// Position returns the position of the current token.
func (p *Parser) Position() token.Position { return p.token.Pos }

// ---------- internal helpers ----------

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

func (p *Parser) ok() bool {
	return len(p.errors) == 0
}

func (p *Parser) errorAt(pos Position, msg string) *ParseError {
	return &ParseError{Pos: pos, Message: msg}
}

// record stores err, converting foreign errors from dialect handlers into
// a *ParseError at the current position.
func (p *Parser) record(err error) {
	if err == nil {
		return
	}
	if pe, ok := err.(*ParseError); ok {
		p.errors = append(p.errors, pe)
		return
	}
	p.AddError(err.Error())
}

func (p *Parser) unexpectedError(expected string) *ParseError {
	tok := p.token
	if tok.Type == token.ILLEGAL {
		switch {
		case strings.HasPrefix(tok.Literal, "'"):
			return p.errorAt(tok.Pos, ErrUnterminatedString)
		case len(tok.Literal) > 1:
			return p.errorAt(tok.Pos, ErrUnterminatedQuote)
		}
	}
	return p.errorAt(tok.Pos, fmt.Sprintf(ErrUnexpectedToken, describe(tok), expected))
}

// unexpected records an "unexpected token" error for the current token.
func (p *Parser) unexpected(expected string) {
	p.errors = append(p.errors, p.unexpectedError(expected))
}

// expect consumes a token of type t, recording an error if it is missing.
func (p *Parser) expect(t token.TokenType) bool {
	if err := p.Expect(t); err != nil {
		p.record(err)
		return false
	}
	return true
}

func (p *Parser) expectWord(word string) bool {
	if err := p.ExpectWord(word); err != nil {
		p.record(err)
		return false
	}
	return true
}

func describe(tok token.Token) string {
	switch {
	case tok.Type == token.EOF:
		return "end of input"
	case tok.Type == token.IDENT:
		return fmt.Sprintf("%q", tok.Literal)
	case tok.Type == token.STRING:
		return fmt.Sprintf("string '%s'", tok.Literal)
	case tok.Type == token.NUMBER:
		return "number " + tok.Literal
	case token.IsKeyword(tok.Type):
		return tok.Type.String()
	}
	return fmt.Sprintf("'%s'", tok.Literal)
}

// isWord reports whether tok is an unquoted identifier or keyword.
func isWord(tok token.Token) bool {
	return !tok.Quoted && (tok.Type == token.IDENT || token.IsKeyword(tok.Type))
}

// parseIdent parses a single identifier.
func (p *Parser) parseIdent() Ident {
	if !p.Check(token.IDENT) {
		p.unexpected("identifier")
		return Ident{}
	}
	id := Ident{Name: p.token.Literal, Quoted: p.token.Quoted}
	p.nextToken()
	return id
}

// parseIdentList parses "( a, b, c )". Each element must be a bare
// identifier.
func (p *Parser) parseIdentList() []Ident {
	if !p.expect(token.LPAREN) {
		return nil
	}
	var ids []Ident
	for p.ok() {
		ids = append(ids, p.parseIdent())
		if p.failed() || !p.Match(token.COMMA) {
			break
		}
	}
	if p.ok() && !p.Check(token.RPAREN) {
		p.unexpected("',' or ')'")
		return nil
	}
	p.expect(token.RPAREN)
	return ids
}

// parseQualifiedName parses ident { . ident }. Keywords are accepted after
// a dot. In dialects with SplitQuotedPath a quoted `a.b.c` yields three parts.
func (p *Parser) parseQualifiedName() []Ident {
	var parts []Ident
	add := func(tok token.Token) {
		if tok.Quoted && p.dialect.Identifiers.SplitQuotedPath && strings.Contains(tok.Literal, ".") {
			for _, seg := range strings.Split(tok.Literal, ".") {
				parts = append(parts, Ident{Name: seg, Quoted: true})
			}
			return
		}
		parts = append(parts, Ident{Name: tok.Literal, Quoted: tok.Quoted})
	}

	if !p.Check(token.IDENT) {
		p.unexpected("name")
		return nil
	}
	add(p.token)
	p.nextToken()
	for p.Check(token.DOT) {
		p.nextToken()
		if p.Check(token.IDENT) || token.IsKeyword(p.token.Type) {
			add(p.token)
			p.nextToken()
			continue
		}
		p.unexpected("name after '.'")
		return nil
	}
	return parts
}

// tableNameFromParts maps up to three parts onto catalog, schema, name.
// Longer paths are recorded as an error at pos.
func (p *Parser) tableNameFromParts(parts []Ident, pos Position) *TableName {
	t := &TableName{}
	switch len(parts) {
	case 3:
		t.Catalog, t.Schema, t.Name = parts[0], parts[1], parts[2]
	case 2:
		t.Schema, t.Name = parts[0], parts[1]
	case 1:
		t.Name = parts[0]
	default:
		p.errors = append(p.errors, p.errorAt(pos, fmt.Sprintf(ErrTableNameParts, joinIdents(parts))))
		return nil
	}
	return t
}

func joinIdents(parts []Ident) string {
	names := make([]string, len(parts))
	for i, id := range parts {
		names[i] = id.Name
	}
	return strings.Join(names, ".")
}

// parseTableName parses a qualified table name without an alias.
func (p *Parser) parseTableName() *TableName {
	pos := p.token.Pos
	parts := p.parseQualifiedName()
	if p.failed() {
		return nil
	}
	return p.tableNameFromParts(parts, pos)
}

// clauseWords are unreserved words that begin a clause, so they are never
// read as an implicit alias.
var clauseWords = map[string]struct{}{
	"QUALIFY": {}, "WINDOW": {}, "OFFSET": {}, "FETCH": {}, "MINUS": {},
	"SAMPLE": {}, "TABLESAMPLE": {}, "PIVOT": {}, "UNPIVOT": {},
	"CONNECT": {}, "START": {}, "RETURNING": {}, "FOR": {},
}

// parseAlias parses [AS] alias. Without AS only an identifier that cannot
// start a clause is taken.
func (p *Parser) parseAlias() Ident {
	if p.Match(token.AS) {
		if p.Check(token.STRING) {
			id := Ident{Name: p.token.Literal, Quoted: true}
			p.nextToken()
			return id
		}
		return p.parseIdent()
	}
	if !p.Check(token.IDENT) {
		return Ident{}
	}
	if !p.token.Quoted {
		upper := strings.ToUpper(p.token.Literal)
		if _, ok := clauseWords[upper]; ok || p.dialect.IsReservedAlias(upper) {
			return Ident{}
		}
	}
	return p.parseIdent()
}

// parseColumnAliases parses an optional "(a, b)" after a table alias.
func (p *Parser) parseColumnAliases(alias Ident) []Ident {
	if alias.IsZero() || !p.Check(token.LPAREN) {
		return nil
	}
	return p.parseIdentList()
}
