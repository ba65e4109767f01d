package parser

import (
	"github.com/leapstack-labs/catalogsync/pkg/token"
)

// parseInsert parses
//
//	INSERT [INTO | OVERWRITE [INTO]] [TABLE] name [PARTITION (...)] [(cols)]
//	       query | VALUES (...), ... | DEFAULT VALUES
func (p *Parser) parseInsert(with *WithClause) Statement {
	p.expect(token.INSERT)
	stmt := &InsertStmt{With: with}

	switch {
	case p.Match(token.INTO):
	case p.MatchWord("OVERWRITE"):
		stmt.Overwrite = true
		p.Match(token.INTO)
	default:
		p.unexpected("INTO or OVERWRITE")
		return nil
	}
	p.Match(token.TABLE)

	stmt.Table = p.parseTableName()
	if p.failed() {
		return nil
	}
	if p.Match(token.AS) {
		stmt.Table.Alias = p.parseIdent()
	}
	if p.CheckWord("PARTITION") && p.peek.Type == token.LPAREN {
		p.nextToken()
		p.record(p.SkipParenthesized())
	}
	// "(" starts a column list unless it opens a query.
	if p.Check(token.LPAREN) && !p.isQueryStart() {
		stmt.Columns = p.parseIdentList()
	}
	if p.Check(token.BY) && p.peek.Is("NAME") {
		p.nextToken()
		p.nextToken()
	}
	if p.failed() {
		return nil
	}

	switch {
	case p.Match(token.VALUES):
		stmt.Values = p.parseValuesRows()
	case p.CheckWord("DEFAULT") && p.peek.Type == token.VALUES:
		p.nextToken()
		p.nextToken()
	case p.isQueryStart():
		stmt.Query = p.parseSelectStmt()
	default:
		p.unexpected("SELECT or VALUES")
	}
	if p.failed() {
		return nil
	}
	p.skipOnConflict()
	if p.failed() {
		return nil
	}
	return stmt
}

// skipOnConflict consumes a Postgres ON CONFLICT clause and a RETURNING
// list. Neither adds a source table.
func (p *Parser) skipOnConflict() {
	if p.Check(token.ON) && p.peek.Is("CONFLICT") {
		p.nextToken()
		p.nextToken()
		if p.Check(token.LPAREN) {
			p.record(p.SkipParenthesized())
		}
		if !p.expectWord("DO") {
			return
		}
		if !p.MatchWord("NOTHING") {
			if !p.expect(token.UPDATE) || !p.expect(token.SET) {
				return
			}
			p.parseSetList()
			if p.Match(token.WHERE) {
				p.parseExpression()
			}
		}
	}
	if p.MatchWord("RETURNING") {
		p.parseExprList()
	}
}

// parseUpdate parses UPDATE t [[AS] alias] SET ... [FROM ...] [WHERE ...].
func (p *Parser) parseUpdate() Statement {
	p.expect(token.UPDATE)
	stmt := &UpdateStmt{Table: p.parseTableName()}
	if p.failed() {
		return nil
	}
	stmt.Table.Alias = p.parseAlias()
	if !p.expect(token.SET) {
		return nil
	}
	stmt.Sets = p.parseSetList()
	if p.Match(token.FROM) {
		stmt.From = p.parseFromClause()
	}
	if p.Match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}
	if p.MatchWord("RETURNING") {
		p.parseExprList()
	}
	if p.failed() {
		return nil
	}
	return stmt
}

// parseSetList parses col = expr, (c1, c2) = (subquery | tuple), ...
func (p *Parser) parseSetList() []*SetClause {
	var sets []*SetClause
	for p.ok() {
		set := &SetClause{}
		if p.Match(token.LPAREN) {
			for p.ok() {
				set.Columns = append(set.Columns, p.parseColumnName())
				if !p.Match(token.COMMA) {
					break
				}
			}
			if !p.expect(token.RPAREN) {
				return nil
			}
		} else {
			set.Columns = []*ColumnRef{p.parseColumnName()}
		}
		if !p.expect(token.EQ) {
			return nil
		}
		set.Value = p.parseExpression()
		sets = append(sets, set)
		if !p.Match(token.COMMA) {
			break
		}
	}
	return sets
}

// parseColumnName parses a possibly qualified column reference.
func (p *Parser) parseColumnName() *ColumnRef {
	parts := p.parseQualifiedName()
	if p.failed() {
		return nil
	}
	return &ColumnRef{Parts: parts}
}

// parseMerge parses
//
//	MERGE INTO target [[AS] alias] USING source ON cond
//	WHEN [NOT] MATCHED [BY TARGET|SOURCE] [AND cond] THEN action ...
func (p *Parser) parseMerge(with *WithClause) Statement {
	p.expect(token.MERGE)
	p.Match(token.INTO)
	stmt := &MergeStmt{With: with, Target: p.parseTableName()}
	if p.failed() {
		return nil
	}
	stmt.Target.Alias = p.parseAlias()
	if !p.expect(token.USING) {
		return nil
	}
	stmt.Source = p.parseTableRef()
	if p.failed() || !p.expect(token.ON) {
		return nil
	}
	stmt.On = p.parseExpression()
	if p.failed() {
		return nil
	}

	if !p.Check(token.WHEN) {
		p.unexpected("WHEN")
		return nil
	}
	for p.ok() && p.Match(token.WHEN) {
		stmt.Clauses = append(stmt.Clauses, p.parseMergeClause())
	}
	if p.failed() {
		return nil
	}
	return stmt
}

func (p *Parser) parseMergeClause() *MergeClause {
	clause := &MergeClause{Matched: true}
	if p.Match(token.NOT) {
		clause.Matched = false
	}
	if !p.expectWord("MATCHED") {
		return nil
	}
	if p.Match(token.BY) {
		switch {
		case p.MatchWord("SOURCE"):
			clause.BySource = true
		case p.MatchWord("TARGET"):
		default:
			p.unexpected("SOURCE or TARGET")
			return nil
		}
	}
	if p.Match(token.AND) {
		clause.Condition = p.parseExpression()
	}
	if !p.expect(token.THEN) {
		return nil
	}

	switch {
	case p.Match(token.UPDATE):
		clause.Action = MergeUpdate
		if !p.expect(token.SET) {
			return nil
		}
		if p.Match(token.STAR) {
			clause.Star = true
		} else {
			clause.Sets = p.parseSetList()
		}
	case p.Match(token.DELETE):
		clause.Action = MergeDelete
	case p.Match(token.INSERT):
		clause.Action = MergeInsert
		p.parseMergeInsert(clause)
	case p.CheckWord("DO") && p.peek.Is("NOTHING"):
		p.nextToken()
		p.nextToken()
		clause.Action = MergeDoNothing
	default:
		p.unexpected("UPDATE, DELETE or INSERT")
		return nil
	}
	if p.failed() {
		return nil
	}
	return clause
}

// parseMergeInsert parses the tail of THEN INSERT:
// [(cols)] VALUES (...) | * | ROW | DEFAULT VALUES.
func (p *Parser) parseMergeInsert(clause *MergeClause) {
	switch {
	case p.Match(token.STAR):
		clause.Star = true
		return
	case p.MatchWord("ROW"):
		clause.Star = true
		return
	case p.CheckWord("DEFAULT") && p.peek.Type == token.VALUES:
		p.nextToken()
		p.nextToken()
		return
	}
	if p.Check(token.LPAREN) {
		clause.Columns = p.parseIdentList()
	}
	if !p.expect(token.VALUES) || !p.expect(token.LPAREN) {
		return
	}
	if !p.Check(token.RPAREN) {
		clause.Values = p.parseExprList()
	}
	p.expect(token.RPAREN)
}

// parseDelete parses DELETE [FROM] t [[AS] alias] [USING ...] [WHERE ...].
func (p *Parser) parseDelete() Statement {
	p.expect(token.DELETE)
	p.Match(token.FROM)
	stmt := &DeleteStmt{Table: p.parseTableName()}
	if p.failed() {
		return nil
	}
	stmt.Table.Alias = p.parseAlias()
	if p.Match(token.USING) {
		stmt.Using = p.parseFromClause()
	}
	if p.Match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}
	if p.MatchWord("RETURNING") {
		p.parseExprList()
	}
	if p.failed() {
		return nil
	}
	return stmt
}
