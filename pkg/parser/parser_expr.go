package parser

import (
	"strings"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/spi"
	"github.com/leapstack-labs/catalogsync/pkg/token"
)

// Expression parsing uses a Pratt parser over the spi precedence levels:
//
//	PrecedenceOr         = 1  OR
//	PrecedenceAnd        = 2  AND
//	PrecedenceNot        = 3  prefix NOT
//	PrecedenceComparison = 4  =, <>, <, >, IS, IN, BETWEEN, LIKE, ILIKE
//	PrecedenceAddition   = 5  +, -, ||
//	PrecedenceMultiply   = 6  *, /, %
//	PrecedenceUnary      = 7  prefix -, +, ~
//	PrecedencePostfix    = 8  ::, [], :path

// parseExpression parses a full expression.
func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(spi.PrecedenceNone + 1)
}

// parseExpressionWithPrecedence parses operators binding at least as
// tightly as minPrecedence.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	left := p.parsePrefixExpr()
	if left == nil || p.failed() {
		return nil
	}

	for p.ok() {
		prec := p.infixPrecedence()
		if prec == spi.PrecedenceNone || prec < minPrecedence {
			break
		}
		left = p.parseInfixExpr(left, prec)
		if left == nil {
			return nil
		}
	}
	return left
}

// parseExprList parses expr, expr, ...
func (p *Parser) parseExprList() []Expr {
	var exprs []Expr
	for p.ok() {
		exprs = append(exprs, p.parseExpression())
		if !p.Match(token.COMMA) {
			break
		}
	}
	return exprs
}

func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		return &UnaryExpr{Op: "NOT", Expr: p.parseExpressionWithPrecedence(spi.PrecedenceNot)}
	case token.MINUS, token.PLUS, token.TILDE:
		op := p.token.Literal
		p.nextToken()
		return &UnaryExpr{Op: op, Expr: p.parseExpressionWithPrecedence(spi.PrecedenceUnary)}
	}
	return p.parsePrimary()
}

// infixPrecedence returns the binding power of the current token as an
// infix or postfix operator, or PrecedenceNone.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return spi.PrecedenceOr
	case token.AND:
		return spi.PrecedenceAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE,
		token.IS, token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
		return spi.PrecedenceComparison
	case token.NOT:
		switch p.peek.Type {
		case token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
			return spi.PrecedenceComparison
		}
		if isLikeWord(p.peek) {
			return spi.PrecedenceComparison
		}
	case token.PLUS, token.MINUS, token.DPIPE:
		return spi.PrecedenceAddition
	case token.STAR, token.SLASH, token.PERCENT, token.CARET, token.AMP, token.PIPE:
		return spi.PrecedenceMultiply
	case token.ARROW:
		return spi.PrecedenceComparison
	case token.DCOLON:
		if p.dialect.SupportsCastOperator {
			return spi.PrecedencePostfix
		}
	case token.LBRACKET:
		return spi.PrecedencePostfix
	case token.COLON:
		if p.supportsPathAccess() && (p.peek.Type == token.IDENT || token.IsKeyword(p.peek.Type)) {
			return spi.PrecedencePostfix
		}
	case token.IDENT:
		if isLikeWord(p.token) {
			return spi.PrecedenceComparison
		}
		if p.token.Is("AT") && p.peek.Is("TIME") {
			return spi.PrecedencePostfix
		}
		if p.token.Is("COLLATE") && p.peek.Type == token.STRING {
			return spi.PrecedencePostfix
		}
	}
	return spi.PrecedenceNone
}

// isLikeWord matches pattern operators lexed as plain identifiers.
func isLikeWord(tok token.Token) bool {
	return tok.Is("RLIKE") || tok.Is("REGEXP") || tok.Is("SIMILAR")
}

// supportsPathAccess reports whether col:field semi-structured access is
// part of the dialect.
func (p *Parser) supportsPathAccess() bool {
	return p.dialect.Kind == dialect.Snowflake || p.dialect.Kind == dialect.Databricks
}

func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		return p.parsePredicate(left, true)
	case token.IN, token.BETWEEN, token.LIKE, token.ILIKE:
		return p.parsePredicate(left, false)
	case token.IS:
		return p.parseIsExpr(left)
	case token.DCOLON:
		p.nextToken()
		return &CastExpr{Expr: left, Type: p.parseTypeName()}
	case token.LBRACKET:
		p.nextToken()
		idx := p.parseExpression()
		if !p.expect(token.RBRACKET) {
			return nil
		}
		return &IndexExpr{Expr: left, Index: idx}
	case token.COLON:
		p.nextToken()
		field := p.token.Literal
		p.nextToken()
		return &IndexExpr{Expr: left, Field: field}
	case token.IDENT:
		switch {
		case isLikeWord(p.token):
			return p.parsePredicate(left, false)
		case p.token.Is("AT"):
			// ts AT TIME ZONE 'UTC'
			p.nextToken()
			p.nextToken()
			if !p.expectWord("ZONE") {
				return nil
			}
			zone := p.parsePrimary()
			return &FuncCall{Name: []Ident{{Name: "TIMEZONE"}}, Args: []Expr{zone, left}}
		case p.token.Is("COLLATE"):
			p.nextToken()
			p.nextToken()
			return left
		}
	}

	op := p.token.Literal
	if p.token.Type == token.NE {
		op = "<>"
	}
	p.nextToken()
	right := p.parseExpressionWithPrecedence(prec + 1)
	if right == nil {
		if p.ok() {
			p.unexpected("expression")
		}
		return nil
	}
	return &BinaryExpr{Left: left, Op: strings.ToUpper(op), Right: right}
}

// parsePredicate parses IN, BETWEEN and the LIKE family after an optional
// NOT.
func (p *Parser) parsePredicate(left Expr, not bool) Expr {
	switch {
	case p.Match(token.IN):
		return p.parseInExpr(left, not)
	case p.Match(token.BETWEEN):
		low := p.parseExpressionWithPrecedence(spi.PrecedenceComparison + 1)
		if !p.expect(token.AND) {
			return nil
		}
		high := p.parseExpressionWithPrecedence(spi.PrecedenceComparison + 1)
		return &BetweenExpr{Expr: left, Not: not, Low: low, High: high}
	case p.Check(token.LIKE), p.Check(token.ILIKE), isLikeWord(p.token):
		op := strings.ToUpper(p.token.Literal)
		p.nextToken()
		if op == "SIMILAR" {
			if !p.expectWord("TO") {
				return nil
			}
		}
		// LIKE ANY (...) / LIKE ALL (...)
		if (p.CheckWord("ANY") || p.Check(token.ALL)) && p.peek.Type == token.LPAREN {
			p.nextToken()
		}
		like := &LikeExpr{Expr: left, Not: not, Op: op, Pattern: p.parseExpressionWithPrecedence(spi.PrecedenceComparison + 1)}
		if p.MatchWord("ESCAPE") {
			like.Escape = p.parsePrimary()
		}
		return like
	}
	p.unexpected("IN, BETWEEN or LIKE")
	return nil
}

// parseInExpr parses the list or subquery after [NOT] IN.
func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	in := &InExpr{Expr: left, Not: not}
	if !p.Check(token.LPAREN) {
		// POSITION('a' IN s), BigQuery IN UNNEST(arr)
		in.Values = []Expr{p.parsePrimary()}
		return in
	}
	if p.isQueryStart() {
		in.Query = p.parseSubquery()
		return in
	}
	p.nextToken()
	if !p.Check(token.RPAREN) {
		in.Values = p.parseExprList()
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return in
}

// parseIsExpr parses IS [NOT] NULL|TRUE|FALSE|UNKNOWN|DISTINCT FROM x.
func (p *Parser) parseIsExpr(left Expr) Expr {
	p.expect(token.IS)
	is := &IsExpr{Expr: left, Not: p.Match(token.NOT)}
	switch {
	case p.Match(token.NULL):
		is.Value = "NULL"
	case p.Match(token.TRUE):
		is.Value = "TRUE"
	case p.Match(token.FALSE):
		is.Value = "FALSE"
	case p.MatchWord("UNKNOWN"):
		is.Value = "UNKNOWN"
	case p.Match(token.DISTINCT):
		if !p.expect(token.FROM) {
			return nil
		}
		is.Value = "DISTINCT FROM"
		is.From = p.parseExpressionWithPrecedence(spi.PrecedenceComparison + 1)
	default:
		p.unexpected("NULL, TRUE, FALSE or DISTINCT FROM")
		return nil
	}
	return is
}

// parseTypeName parses a data type after :: or AS in a cast and returns it
// as written, e.g. "VARCHAR(10)", "TIMESTAMP WITH TIME ZONE", "ARRAY<INT>".
func (p *Parser) parseTypeName() string {
	if !p.Check(token.IDENT) && !token.IsKeyword(p.token.Type) {
		p.unexpected("type name")
		return ""
	}
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(p.token.Literal))
	p.nextToken()

	// Multi-word types
	for p.CheckWord("PRECISION") || p.CheckWord("VARYING") || p.CheckWord("UNSIGNED") {
		sb.WriteString(" " + strings.ToUpper(p.token.Literal))
		p.nextToken()
	}

	start := p.token.Pos.Offset
	if p.Check(token.LPAREN) {
		p.record(p.SkipParenthesized())
		sb.WriteString(strings.TrimSpace(p.lexer.input[start:p.token.Pos.Offset]))
	}
	if p.Check(token.LT) {
		p.skipAngleBrackets()
		sb.WriteString("<...>")
	}

	if (p.Check(token.WITH) || p.CheckWord("WITHOUT")) && p.peek.Is("TIME") {
		sb.WriteString(" " + strings.ToUpper(p.token.Literal))
		p.nextToken()
		p.nextToken()
		if p.expectWord("ZONE") {
			sb.WriteString(" TIME ZONE")
		}
	}

	for p.Check(token.LBRACKET) && p.peek.Type == token.RBRACKET {
		p.nextToken()
		p.nextToken()
		sb.WriteString("[]")
	}
	return strings.TrimSpace(sb.String())
}

// skipAngleBrackets consumes a nested generic type argument list such as
// <STRUCT<a INT, b ARRAY<STRING>>>.
func (p *Parser) skipAngleBrackets() {
	depth := 0
	for p.ok() {
		switch p.token.Type {
		case token.LT:
			depth++
		case token.GT:
			depth--
			if depth == 0 {
				p.nextToken()
				return
			}
		case token.EOF, token.SEMICOLON:
			p.unexpected("'>'")
			return
		}
		p.nextToken()
	}
}
