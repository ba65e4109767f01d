package parser

import (
	"github.com/leapstack-labs/catalogsync/pkg/token"
)

// parseFromClause parses a source and its joins.
func (p *Parser) parseFromClause() *FromClause {
	from := &FromClause{Source: p.parseTableRef()}
	for p.ok() {
		join := p.parseJoin()
		if join == nil {
			break
		}
		from.Joins = append(from.Joins, join)
	}
	if p.failed() {
		return nil
	}
	return from
}

// parseJoin parses one join, or returns nil when no join follows.
func (p *Parser) parseJoin() *Join {
	if p.Match(token.COMMA) {
		return &Join{Type: JoinComma, Right: p.parseTableRef()}
	}

	// Hive: LATERAL VIEW [OUTER] explode(arr) alias [AS col, ...]
	if p.Check(token.LATERAL) && p.peek.Type == token.VIEW {
		return &Join{Type: JoinCross, Right: p.parseLateralView()}
	}

	join := &Join{Type: JoinInner}
	if p.Match(token.NATURAL) {
		join.Natural = true
	}
	switch {
	case p.Match(token.INNER):
	case p.Match(token.CROSS):
		join.Type = JoinCross
	case p.Match(token.LEFT):
		join.Type = JoinLeft
		p.Match(token.OUTER)
		if !p.MatchWord("SEMI") {
			p.MatchWord("ANTI")
		}
	case p.Match(token.RIGHT):
		join.Type = JoinRight
		p.Match(token.OUTER)
	case p.Match(token.FULL):
		join.Type = JoinFull
		p.Match(token.OUTER)
	default:
		if !p.Check(token.JOIN) {
			if join.Natural {
				p.unexpected("JOIN")
			}
			return nil
		}
	}
	if !p.expect(token.JOIN) {
		return nil
	}

	join.Right = p.parseTableRef()
	if p.failed() {
		return nil
	}
	switch {
	case p.Match(token.ON):
		join.Condition = p.parseExpression()
	case p.Match(token.USING):
		join.Using = p.parseIdentList()
	}
	return join
}

// parseTableRef parses a single FROM source.
func (p *Parser) parseTableRef() TableRef {
	lateral := p.Match(token.LATERAL)

	switch {
	case p.Check(token.LPAREN):
		return p.parseParenTableRef(lateral)
	case p.Check(token.TABLE) && p.peek.Type == token.LPAREN:
		// Snowflake: TABLE(FLATTEN(...)) / TABLE(GENERATOR(...))
		p.nextToken()
		p.nextToken()
		fn, _ := p.parsePrimary().(*FuncCall)
		if !p.expect(token.RPAREN) {
			return nil
		}
		if fn == nil {
			p.AddError("expected table function call")
			return nil
		}
		return p.finishTableFunction(&TableFunction{Func: fn, Lateral: lateral})
	case p.Check(token.IDENT):
	default:
		p.unexpected("table name")
		return nil
	}

	pos := p.token.Pos
	parts := p.parseQualifiedName()
	if p.failed() {
		return nil
	}
	if p.Check(token.LPAREN) {
		fn := p.parseFuncCall(parts)
		if p.failed() {
			return nil
		}
		return p.finishTableFunction(&TableFunction{Func: fn, Lateral: lateral})
	}

	t := p.tableNameFromParts(parts, pos)
	if t == nil {
		return nil
	}
	p.skipTableModifiers()
	t.Alias = p.parseAlias()
	t.ColumnAliases = p.parseColumnAliases(t.Alias)
	p.skipTableModifiers()
	if p.failed() {
		return nil
	}
	return t
}

// parseParenTableRef parses "(query)", "(VALUES ...)" or "(join tree)".
func (p *Parser) parseParenTableRef(lateral bool) TableRef {
	if p.isQueryStart() {
		dt := &DerivedTable{Lateral: lateral, Select: p.parseSubquery()}
		if p.failed() {
			return nil
		}
		dt.Alias = p.parseAlias()
		dt.ColumnAliases = p.parseColumnAliases(dt.Alias)
		return dt
	}

	p.expect(token.LPAREN)
	if p.Match(token.VALUES) {
		dt := &DerivedTable{Lateral: lateral, Values: p.parseValuesRows()}
		if !p.expect(token.RPAREN) {
			return nil
		}
		dt.Alias = p.parseAlias()
		dt.ColumnAliases = p.parseColumnAliases(dt.Alias)
		return dt
	}

	ref := &ParenTableRef{From: p.parseFromClause()}
	if !p.expect(token.RPAREN) {
		return nil
	}
	ref.Alias = p.parseAlias()
	return ref
}

// parseSubquery parses "( query )".
func (p *Parser) parseSubquery() *SelectStmt {
	if !p.expect(token.LPAREN) {
		return nil
	}
	stmt := p.parseSelectStmt()
	if !p.expect(token.RPAREN) {
		return nil
	}
	return stmt
}

// parseValuesRows parses (a, b), (c, d), ... after VALUES.
func (p *Parser) parseValuesRows() [][]Expr {
	var rows [][]Expr
	for p.ok() {
		if !p.expect(token.LPAREN) {
			return nil
		}
		var row []Expr
		if !p.Check(token.RPAREN) {
			row = p.parseExprList()
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		rows = append(rows, row)
		if !p.Match(token.COMMA) {
			break
		}
	}
	return rows
}

func (p *Parser) finishTableFunction(tf *TableFunction) TableRef {
	tf.Alias = p.parseAlias()
	tf.ColumnAliases = p.parseColumnAliases(tf.Alias)
	if p.failed() {
		return nil
	}
	return tf
}

// parseLateralView parses LATERAL VIEW [OUTER] func(args) alias [AS c1, c2].
func (p *Parser) parseLateralView() TableRef {
	p.expect(token.LATERAL)
	p.expect(token.VIEW)
	p.Match(token.OUTER)
	parts := p.parseQualifiedName()
	if p.failed() {
		return nil
	}
	tf := &TableFunction{Func: p.parseFuncCall(parts), Lateral: true}
	if p.Check(token.IDENT) {
		tf.Alias = p.parseIdent()
	}
	if p.Match(token.AS) {
		for p.ok() {
			tf.ColumnAliases = append(tf.ColumnAliases, p.parseIdent())
			if !p.Match(token.COMMA) {
				break
			}
		}
	}
	if p.failed() {
		return nil
	}
	return tf
}

// skipTableModifiers consumes sampling, time travel and pivot clauses that
// follow a table name, none of which change which table is read.
func (p *Parser) skipTableModifiers() {
	for p.ok() {
		switch {
		case p.CheckWord("SAMPLE") || p.CheckWord("TABLESAMPLE"):
			p.nextToken()
			for _, w := range []string{"BERNOULLI", "SYSTEM", "BLOCK", "ROW"} {
				if p.MatchWord(w) {
					break
				}
			}
			p.record(p.SkipParenthesized())
			if p.MatchWord("REPEATABLE") || p.MatchWord("SEED") {
				p.record(p.SkipParenthesized())
			}
		case (p.CheckWord("AT") || p.CheckWord("BEFORE") || p.CheckWord("CHANGES")) && p.peek.Type == token.LPAREN:
			p.nextToken()
			p.record(p.SkipParenthesized())
		case (p.CheckWord("PIVOT") || p.CheckWord("UNPIVOT")) && p.peek.Type == token.LPAREN:
			p.nextToken()
			p.record(p.SkipParenthesized())
		default:
			return
		}
	}
}
