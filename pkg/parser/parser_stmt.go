package parser

import (
	"fmt"

	"github.com/leapstack-labs/catalogsync/pkg/token"
)

// parseStatement dispatches on the leading keyword.
func (p *Parser) parseStatement() Statement {
	switch p.token.Type {
	case token.SELECT, token.LPAREN:
		return p.parseSelectStmt()
	case token.WITH:
		return p.parseWithStatement()
	case token.CREATE:
		return p.parseCreate()
	case token.INSERT:
		return p.parseInsert(nil)
	case token.UPDATE:
		return p.parseUpdate()
	case token.MERGE:
		return p.parseMerge(nil)
	case token.DELETE:
		return p.parseDelete()
	case token.EOF:
		p.unexpected("statement")
		return nil
	}
	p.AddError(fmt.Sprintf(ErrUnsupportedStmt, p.token.Literal))
	return nil
}

// parseWithStatement parses a WITH clause followed by a query, INSERT or
// MERGE.
func (p *Parser) parseWithStatement() Statement {
	with := p.parseWithClause()
	if p.failed() {
		return nil
	}
	switch p.token.Type {
	case token.INSERT:
		return p.parseInsert(with)
	case token.MERGE:
		return p.parseMerge(with)
	}
	body := p.parseSelectBody()
	if p.failed() {
		return nil
	}
	return &SelectStmt{With: with, Body: body}
}

// isQueryStart reports whether the current token can begin a query.
func (p *Parser) isQueryStart() bool {
	switch p.token.Type {
	case token.SELECT, token.WITH:
		return true
	case token.LPAREN:
		return p.peek.Type == token.SELECT || p.peek.Type == token.WITH
	}
	return false
}

// parseSelectStmt parses [WITH ...] select_body.
func (p *Parser) parseSelectStmt() *SelectStmt {
	stmt := &SelectStmt{}
	if p.Check(token.WITH) {
		stmt.With = p.parseWithClause()
		if p.failed() {
			return nil
		}
	}
	stmt.Body = p.parseSelectBody()
	if p.failed() {
		return nil
	}
	return stmt
}

// parseWithClause parses WITH [RECURSIVE] name [(cols)] AS (query), ...
func (p *Parser) parseWithClause() *WithClause {
	p.expect(token.WITH)
	with := &WithClause{Recursive: p.MatchWord("RECURSIVE")}
	for p.ok() {
		cte := &CTE{Name: p.parseIdent()}
		if p.Check(token.LPAREN) {
			cte.Columns = p.parseIdentList()
		}
		if !p.expect(token.AS) {
			return nil
		}
		// Postgres: AS [NOT] MATERIALIZED (...)
		if p.Check(token.NOT) && p.peek.Is("MATERIALIZED") {
			p.nextToken()
		}
		p.MatchWord("MATERIALIZED")
		if !p.expect(token.LPAREN) {
			return nil
		}
		cte.Select = p.parseSelectStmt()
		if !p.expect(token.RPAREN) {
			return nil
		}
		with.CTEs = append(with.CTEs, cte)
		if !p.Match(token.COMMA) {
			break
		}
	}
	if p.failed() {
		return nil
	}
	return with
}

// parseSelectBody parses a query operand and any set operations after it.
func (p *Parser) parseSelectBody() *SelectBody {
	body := &SelectBody{}
	switch {
	case p.Check(token.LPAREN):
		p.nextToken()
		body.Nested = p.parseSelectStmt()
		if !p.expect(token.RPAREN) {
			return nil
		}
		body.OrderBy, body.Limit, body.Offset = p.parseOrderLimit()
	case p.Check(token.SELECT):
		body.Left = p.parseSelectCore()
	default:
		p.unexpected("SELECT")
		return nil
	}
	if p.failed() {
		return nil
	}

	switch {
	case p.Check(token.UNION):
		body.Op = SetOpUnion
	case p.Check(token.INTERSECT):
		body.Op = SetOpIntersect
	case p.Check(token.EXCEPT), p.CheckWord("MINUS"):
		body.Op = SetOpExcept
	default:
		return body
	}
	p.nextToken()
	if p.Match(token.ALL) {
		body.All = true
	} else {
		p.Match(token.DISTINCT)
	}
	// Databricks/DuckDB: UNION [ALL] BY NAME
	if p.Check(token.BY) && p.peek.Is("NAME") {
		p.nextToken()
		p.nextToken()
	}
	body.Right = p.parseSelectBody()
	if p.failed() {
		return nil
	}
	return body
}

// parseSelectCore parses SELECT ... up to (not including) a set operator.
func (p *Parser) parseSelectCore() *SelectCore {
	p.expect(token.SELECT)
	core := &SelectCore{}

	switch {
	case p.Match(token.DISTINCT):
		core.Distinct = true
		if p.Match(token.ON) {
			if p.expect(token.LPAREN) {
				core.DistinctOn = p.parseExprList()
				p.expect(token.RPAREN)
			}
		}
	case p.Match(token.ALL):
	}
	if p.CheckWord("TOP") && p.peek.Type == token.NUMBER {
		p.nextToken()
		p.nextToken()
	}

	core.Columns = p.parseSelectList()
	if p.failed() {
		return nil
	}

	if p.Match(token.FROM) {
		core.From = p.parseFromClause()
	}
	if p.Match(token.WHERE) {
		core.Where = p.parseExpression()
	}
	if p.Check(token.GROUP) {
		p.nextToken()
		p.expect(token.BY)
		core.GroupBy = p.parseGroupBy()
	}
	if p.Match(token.HAVING) {
		core.Having = p.parseExpression()
	}
	if p.MatchWord("WINDOW") {
		p.skipWindowDefinitions()
	}
	if p.MatchWord("QUALIFY") {
		core.Qualify = p.parseExpression()
	}
	core.OrderBy, core.Limit, core.Offset = p.parseOrderLimit()
	if p.failed() {
		return nil
	}
	return core
}

// parseSelectList parses the projection list. Snowflake tolerates a
// trailing comma before FROM.
func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem
	for p.ok() {
		items = append(items, p.parseSelectItem())
		if !p.Match(token.COMMA) {
			break
		}
		if p.dialect.SupportsTrailingComma && p.endsSelectList() {
			break
		}
	}
	return items
}

func (p *Parser) endsSelectList() bool {
	switch p.token.Type {
	case token.FROM, token.EOF, token.SEMICOLON, token.RPAREN:
		return true
	}
	return false
}

func (p *Parser) parseSelectItem() SelectItem {
	if p.Match(token.STAR) {
		p.skipStarModifiers()
		return SelectItem{Star: true}
	}
	item := SelectItem{Expr: p.parseExpression()}
	if star, ok := item.Expr.(*StarExpr); ok && len(star.Table) > 0 {
		p.skipStarModifiers()
		return SelectItem{TableStar: star.Table}
	}
	if p.ok() {
		item.Alias = p.parseAlias()
	}
	return item
}

// skipStarModifiers consumes EXCLUDE (...), EXCEPT (...), REPLACE (...)
// and RENAME (...) after a star.
func (p *Parser) skipStarModifiers() {
	for p.ok() {
		if (p.CheckWord("EXCLUDE") || p.Check(token.EXCEPT) || p.CheckWord("REPLACE") || p.CheckWord("RENAME")) &&
			p.peek.Type == token.LPAREN {
			p.nextToken()
			p.record(p.SkipParenthesized())
			continue
		}
		return
	}
}

// parseGroupBy parses GROUP BY [ALL] items, including ROLLUP/CUBE calls and
// GROUPING SETS.
func (p *Parser) parseGroupBy() []Expr {
	if p.Match(token.ALL) {
		return nil
	}
	var exprs []Expr
	for p.ok() {
		if p.CheckWord("GROUPING") && p.peek.Is("SETS") {
			p.nextToken()
			p.nextToken()
		}
		exprs = append(exprs, p.parseExpression())
		if !p.Match(token.COMMA) {
			break
		}
	}
	return exprs
}

// skipWindowDefinitions consumes "name AS (...) [, ...]" after WINDOW.
func (p *Parser) skipWindowDefinitions() {
	for p.ok() {
		p.parseIdent()
		if !p.expect(token.AS) {
			return
		}
		p.record(p.SkipParenthesized())
		if !p.Match(token.COMMA) {
			return
		}
	}
}

// parseOrderLimit parses optional ORDER BY, LIMIT, OFFSET and FETCH.
func (p *Parser) parseOrderLimit() (orderBy []OrderByItem, limit, offset Expr) {
	if p.Check(token.ORDER) {
		p.nextToken()
		if !p.expect(token.BY) {
			return nil, nil, nil
		}
		orderBy = p.parseOrderByList()
	}
	if p.Match(token.LIMIT) && !p.Match(token.ALL) {
		limit = p.parseExpression()
		// MySQL-style LIMIT offset, count
		if p.Match(token.COMMA) {
			offset, limit = limit, p.parseExpression()
		}
	}
	if p.MatchWord("OFFSET") {
		offset = p.parseExpression()
		if !p.MatchWord("ROWS") {
			p.MatchWord("ROW")
		}
	}
	if p.MatchWord("FETCH") {
		if !p.MatchWord("FIRST") {
			p.expectWord("NEXT")
		}
		if p.ok() && !p.CheckWord("ROWS") && !p.CheckWord("ROW") {
			limit = p.parseExpression()
		}
		if p.ok() && !p.MatchWord("ROWS") {
			p.expectWord("ROW")
		}
		if p.ok() && !p.MatchWord("ONLY") {
			if p.Check(token.WITH) && p.peek.Is("TIES") {
				p.nextToken()
				p.nextToken()
			} else {
				p.unexpected("ONLY")
			}
		}
	}
	return orderBy, limit, offset
}

// parseOrderByList parses expr [ASC|DESC] [NULLS FIRST|LAST], ...
func (p *Parser) parseOrderByList() []OrderByItem {
	var items []OrderByItem
	for p.ok() {
		item := OrderByItem{Expr: p.parseExpression()}
		if p.Match(token.DESC) {
			item.Desc = true
		} else {
			p.Match(token.ASC)
		}
		if p.MatchWord("NULLS") {
			if !p.MatchWord("FIRST") {
				p.expectWord("LAST")
			}
		}
		items = append(items, item)
		if !p.Match(token.COMMA) {
			break
		}
	}
	return items
}
