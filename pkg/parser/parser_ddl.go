package parser

import (
	"strings"

	"github.com/leapstack-labs/catalogsync/pkg/token"
)

// createModifiers may appear between CREATE [OR REPLACE] and TABLE/VIEW.
var createModifiers = map[string]struct{}{
	"TEMPORARY": {}, "TEMP": {}, "TRANSIENT": {}, "VOLATILE": {}, "GLOBAL": {},
	"LOCAL": {}, "SECURE": {}, "RECURSIVE": {}, "UNLOGGED": {}, "EXTERNAL": {},
	"MULTISET": {}, "MATERIALIZED": {},
}

// columnConstraintStarts begin a table-level constraint rather than a column.
var columnConstraintStarts = map[string]struct{}{
	"CONSTRAINT": {}, "PRIMARY": {}, "UNIQUE": {}, "FOREIGN": {}, "CHECK": {},
	"INDEX": {}, "KEY": {}, "PERIOD": {}, "EXCLUDE": {},
}

// parseCreate parses CREATE [OR REPLACE] [modifiers] TABLE|VIEW ...
func (p *Parser) parseCreate() Statement {
	p.expect(token.CREATE)
	orReplace := false
	if p.Match(token.OR) {
		if !p.expectWord("REPLACE") {
			return nil
		}
		orReplace = true
	}

	var modifiers []string
	for p.Check(token.IDENT) && !p.token.Quoted {
		upper := strings.ToUpper(p.token.Literal)
		if _, ok := createModifiers[upper]; !ok {
			break
		}
		modifiers = append(modifiers, upper)
		p.nextToken()
	}

	switch {
	case p.Match(token.TABLE):
		return p.parseCreateTable(orReplace, modifiers)
	case p.Match(token.VIEW):
		return p.parseCreateView(orReplace, modifiers)
	}
	p.unexpected("TABLE or VIEW")
	return nil
}

// parseIfNotExists consumes IF NOT EXISTS.
func (p *Parser) parseIfNotExists() bool {
	if !p.CheckWord("IF") {
		return false
	}
	p.nextToken()
	if !p.expect(token.NOT) || !p.expect(token.EXISTS) {
		return false
	}
	return true
}

func (p *Parser) parseCreateTable(orReplace bool, modifiers []string) Statement {
	stmt := &CreateTableStmt{OrReplace: orReplace, Modifiers: modifiers}
	stmt.IfNotExists = p.parseIfNotExists()
	stmt.Name = p.parseTableName()
	if p.failed() {
		return nil
	}

	if p.Check(token.LPAREN) && !p.isQueryStart() {
		stmt.Columns = p.parseColumnDefs()
	}

	p.parseTableOptions()
	if p.failed() {
		return nil
	}

	switch {
	case p.Match(token.AS):
		stmt.Query = p.parseSelectStmt()
	case p.isQueryStart():
		// Redshift/Databricks allow the query without AS in some forms.
		stmt.Query = p.parseSelectStmt()
	case p.Match(token.LIKE):
		stmt.Like = p.parseTableName()
	case p.MatchWord("CLONE"):
		stmt.Clone = p.parseTableName()
		p.skipTableModifiers()
	}
	if p.failed() {
		return nil
	}
	// Options may also trail the query (Databricks, BigQuery).
	p.parseTableOptions()
	if p.failed() {
		return nil
	}
	return stmt
}

// parseColumnDefs parses a CREATE TABLE element list and returns the column
// names. Column types and constraints are skipped up to the next top-level
// comma.
func (p *Parser) parseColumnDefs() []Ident {
	p.expect(token.LPAREN)
	var cols []Ident
	for p.ok() {
		first := p.token
		isColumn := first.Type == token.IDENT
		if isColumn && !first.Quoted {
			if _, ok := columnConstraintStarts[strings.ToUpper(first.Literal)]; ok {
				isColumn = false
			}
		}
		if isColumn {
			cols = append(cols, Ident{Name: first.Literal, Quoted: first.Quoted})
		}
		p.skipElement()
		if !p.Match(token.COMMA) {
			break
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return cols
}

// skipElement consumes tokens up to a ',' or ')' at the current nesting
// level.
func (p *Parser) skipElement() {
	for p.ok() {
		switch p.token.Type {
		case token.COMMA, token.RPAREN:
			return
		case token.LPAREN:
			p.record(p.SkipParenthesized())
			continue
		case token.EOF, token.SEMICOLON:
			p.unexpected("',' or ')'")
			return
		case token.ILLEGAL:
			p.unexpected("column definition")
			return
		}
		p.nextToken()
	}
}

// parseTableOptions runs the dialect's CREATE TABLE option handlers for as
// long as the current word names one.
func (p *Parser) parseTableOptions() {
	for p.ok() && isWord(p.token) {
		handler := p.dialect.TableOptionHandler(p.token.Literal)
		if handler == nil {
			return
		}
		if err := handler(p); err != nil {
			p.record(err)
			return
		}
	}
}

func (p *Parser) parseCreateView(orReplace bool, modifiers []string) Statement {
	stmt := &CreateViewStmt{OrReplace: orReplace, Modifiers: modifiers}
	for _, m := range modifiers {
		if m == "MATERIALIZED" {
			stmt.Materialized = true
		}
	}
	stmt.IfNotExists = p.parseIfNotExists()
	stmt.Name = p.parseTableName()
	if p.failed() {
		return nil
	}

	if p.Check(token.LPAREN) {
		stmt.Columns = p.parseViewColumns()
	}
	p.parseViewOptions()
	if !p.expect(token.AS) {
		return nil
	}
	stmt.Query = p.parseSelectStmt()
	if p.failed() {
		return nil
	}

	if isWord(p.token) {
		if handler := p.dialect.StatementSuffixHandler(p.token.Literal); handler != nil {
			p.record(handler(p))
		}
	}
	if p.failed() {
		return nil
	}
	return stmt
}

// parseViewColumns parses a view column list. Each entry is a bare name,
// optionally followed by COMMENT 'text'; constraints are not accepted.
func (p *Parser) parseViewColumns() []Ident {
	p.expect(token.LPAREN)
	var cols []Ident
	for p.ok() {
		cols = append(cols, p.parseIdent())
		if p.MatchWord("COMMENT") {
			if p.Check(token.STRING) {
				p.nextToken()
			} else {
				p.unexpected("comment string")
			}
		}
		if !p.Match(token.COMMA) {
			break
		}
	}
	if p.ok() && !p.Check(token.RPAREN) {
		p.unexpected("',' or ')'")
		return nil
	}
	p.expect(token.RPAREN)
	return cols
}

// parseViewOptions accepts COMMENT [=] 'text' and the dialect's table
// options between a view name and AS.
func (p *Parser) parseViewOptions() {
	for p.ok() {
		if p.MatchWord("COMMENT") {
			p.Match(token.EQ)
			if !p.expect(token.STRING) {
				return
			}
			continue
		}
		if p.Check(token.WITH) || !isWord(p.token) {
			return
		}
		handler := p.dialect.TableOptionHandler(p.token.Literal)
		if handler == nil {
			return
		}
		p.record(handler(p))
	}
}
