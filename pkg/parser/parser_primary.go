package parser

import (
	"strings"

	"github.com/leapstack-labs/catalogsync/pkg/token"
)

// typedLiteralPrefixes are words that turn a following string into a typed
// literal: DATE '2024-01-01'.
var typedLiteralPrefixes = map[string]struct{}{
	"DATE": {}, "TIME": {}, "TIMESTAMP": {}, "TIMESTAMPTZ": {}, "TIMESTAMP_NTZ": {},
	"TIMESTAMP_LTZ": {}, "TIMESTAMP_TZ": {}, "DATETIME": {}, "JSON": {}, "NUMERIC": {},
	"BOTH": {}, "LEADING": {}, "TRAILING": {},
}

// intervalUnits are accepted after an INTERVAL value.
var intervalUnits = map[string]struct{}{
	"YEAR": {}, "YEARS": {}, "QUARTER": {}, "MONTH": {}, "MONTHS": {}, "WEEK": {}, "WEEKS": {},
	"DAY": {}, "DAYS": {}, "HOUR": {}, "HOURS": {}, "MINUTE": {}, "MINUTES": {},
	"SECOND": {}, "SECONDS": {}, "MILLISECOND": {}, "MICROSECOND": {},
}

// parsePrimary parses literals, column references, function calls and
// parenthesized forms.
func (p *Parser) parsePrimary() Expr {
	tok := p.token
	switch tok.Type {
	case token.NUMBER:
		p.nextToken()
		return &Literal{Kind: LiteralNumber, Value: tok.Literal}
	case token.STRING:
		p.nextToken()
		return &Literal{Kind: LiteralString, Value: tok.Literal}
	case token.TRUE, token.FALSE:
		p.nextToken()
		return &Literal{Kind: LiteralBool, Value: strings.ToUpper(tok.Literal)}
	case token.NULL:
		p.nextToken()
		return &Literal{Kind: LiteralNull, Value: "NULL"}
	case token.PARAM, token.QUESTION:
		p.nextToken()
		return &Literal{Kind: LiteralParam, Value: tok.Literal}
	case token.STAR:
		p.nextToken()
		return &StarExpr{}
	case token.CASE:
		return p.parseCase()
	case token.CAST:
		return p.parseCast()
	case token.EXISTS:
		p.nextToken()
		return &ExistsExpr{Select: p.parseSubquery()}
	case token.LPAREN:
		return p.parseParenExpr()
	case token.LBRACKET:
		p.nextToken()
		return p.finishArray()
	case token.LBRACE:
		// {'k': v} object constants are opaque to lineage.
		p.skipBraces()
		return &Literal{Kind: LiteralString, Value: "{}"}
	case token.LEFT, token.RIGHT, token.ALL:
		// LEFT(s, 3), RIGHT(s, 3), ALL (subquery)
		if p.peek.Type == token.LPAREN {
			p.nextToken()
			return p.parseFuncCall([]Ident{{Name: strings.ToUpper(tok.Literal)}})
		}
	case token.IDENT:
		return p.parseIdentExpr()
	}
	p.unexpected("expression")
	return nil
}

// parseIdentExpr parses expressions that begin with an identifier: column
// references, t.*, function calls, typed literals, INTERVAL and ARRAY[...].
func (p *Parser) parseIdentExpr() Expr {
	tok := p.token
	if !tok.Quoted {
		upper := strings.ToUpper(tok.Literal)
		switch {
		case upper == "INTERVAL" && (p.peek.Type == token.STRING || p.peek.Type == token.NUMBER):
			p.nextToken()
			iv := &IntervalExpr{Value: p.parsePrimary()}
			if _, ok := intervalUnits[strings.ToUpper(p.token.Literal)]; ok && p.Check(token.IDENT) {
				iv.Unit = strings.ToUpper(p.token.Literal)
				p.nextToken()
			}
			return iv
		case upper == "ARRAY" && p.peek.Type == token.LBRACKET:
			p.nextToken()
			p.nextToken()
			return p.finishArray()
		case p.peek.Type == token.STRING:
			if _, ok := typedLiteralPrefixes[upper]; ok {
				p.nextToken()
				lit := &Literal{Kind: LiteralString, Value: p.token.Literal, Type: upper}
				p.nextToken()
				return lit
			}
		}
	}

	var parts []Ident
	parts = append(parts, Ident{Name: tok.Literal, Quoted: tok.Quoted})
	p.nextToken()
	for p.Check(token.DOT) {
		p.nextToken()
		switch {
		case p.Check(token.STAR):
			p.nextToken()
			return &StarExpr{Table: parts}
		case p.Check(token.IDENT) || token.IsKeyword(p.token.Type):
			parts = append(parts, Ident{Name: p.token.Literal, Quoted: p.token.Quoted})
			p.nextToken()
		default:
			p.unexpected("name after '.'")
			return nil
		}
	}

	if p.Check(token.LPAREN) {
		return p.parseFuncCall(parts)
	}
	return &ColumnRef{Parts: parts}
}

// parseFuncCall parses "(args) [WITHIN GROUP (...)] [FILTER (...)] [OVER ...]"
// after a function name.
func (p *Parser) parseFuncCall(name []Ident) *FuncCall {
	fn := &FuncCall{Name: name}
	if !p.expect(token.LPAREN) {
		return nil
	}

	switch {
	case p.Check(token.STAR) && p.peek.Type == token.RPAREN:
		p.nextToken()
		fn.Star = true
	case p.Check(token.RPAREN):
	default:
		if p.Match(token.DISTINCT) {
			fn.Distinct = true
		} else {
			p.Match(token.ALL)
		}
		fn.Args = p.parseFuncArgs()
		if p.Check(token.ORDER) {
			p.nextToken()
			if p.expect(token.BY) {
				fn.OrderBy = p.parseOrderByList()
			}
		}
		p.skipNullTreatment()
		if p.MatchWord("SEPARATOR") || p.Match(token.LIMIT) {
			p.parsePrimary()
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}

	if p.CheckWord("WITHIN") && p.peek.Type == token.GROUP {
		p.nextToken()
		p.nextToken()
		if p.expect(token.LPAREN) && p.expect(token.ORDER) && p.expect(token.BY) {
			fn.OrderBy = p.parseOrderByList()
			p.expect(token.RPAREN)
		}
	}
	if p.CheckWord("FILTER") && p.peek.Type == token.LPAREN {
		p.nextToken()
		p.nextToken()
		if p.expect(token.WHERE) {
			fn.Filter = p.parseExpression()
			p.expect(token.RPAREN)
		}
	}
	p.skipNullTreatment()
	if p.Match(token.OVER) {
		fn.Window = true
		if p.Check(token.LPAREN) {
			p.record(p.SkipParenthesized())
		} else {
			p.parseIdent()
		}
	}
	if p.failed() {
		return nil
	}
	return fn
}

// parseFuncArgs parses call arguments. Besides plain expressions it
// accepts named arguments (name => value), subqueries, and the keyword
// forms of EXTRACT, SUBSTRING and TRY_CAST: x FROM y, x FOR n, x AS type.
func (p *Parser) parseFuncArgs() []Expr {
	var args []Expr
	for p.ok() {
		var arg Expr
		switch {
		case p.Check(token.IDENT) && p.peek.Type == token.FATARROW:
			name := p.token.Literal
			p.nextToken()
			p.nextToken()
			arg = &NamedArg{Name: name, Value: p.parseExpression()}
		case p.Check(token.SELECT) || p.Check(token.WITH):
			arg = &SubqueryExpr{Select: p.parseSelectStmt()}
		default:
			arg = p.parseExpression()
		}
		args = append(args, arg)

		for p.ok() {
			switch {
			case p.Match(token.FROM), p.MatchWord("FOR"):
				args = append(args, p.parseExpression())
				continue
			case p.Match(token.AS):
				args[len(args)-1] = &CastExpr{Expr: args[len(args)-1], Type: p.parseTypeName()}
				continue
			}
			break
		}
		if !p.Match(token.COMMA) {
			break
		}
	}
	return args
}

// skipNullTreatment consumes IGNORE NULLS / RESPECT NULLS.
func (p *Parser) skipNullTreatment() {
	if (p.CheckWord("IGNORE") || p.CheckWord("RESPECT")) && p.peek.Is("NULLS") {
		p.nextToken()
		p.nextToken()
	}
}

// parseCase parses CASE [operand] WHEN ... THEN ... [ELSE ...] END.
func (p *Parser) parseCase() Expr {
	p.expect(token.CASE)
	c := &CaseExpr{}
	if !p.Check(token.WHEN) {
		c.Operand = p.parseExpression()
	}
	for p.ok() && p.Match(token.WHEN) {
		w := WhenClause{Cond: p.parseExpression()}
		if !p.expect(token.THEN) {
			return nil
		}
		w.Result = p.parseExpression()
		c.Whens = append(c.Whens, w)
	}
	if p.failed() {
		return nil
	}
	if len(c.Whens) == 0 {
		p.unexpected("WHEN")
		return nil
	}
	if p.Match(token.ELSE) {
		c.Else = p.parseExpression()
	}
	if !p.expect(token.END) {
		return nil
	}
	return c
}

// parseCast parses CAST(expr AS type).
func (p *Parser) parseCast() Expr {
	p.expect(token.CAST)
	if !p.expect(token.LPAREN) {
		return nil
	}
	expr := p.parseExpression()
	if !p.expect(token.AS) {
		return nil
	}
	typ := p.parseTypeName()
	// Oracle/Teradata: CAST(x AS DATE FORMAT 'YYYY')
	if p.MatchWord("FORMAT") {
		p.parsePrimary()
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return &CastExpr{Expr: expr, Type: typ}
}

// parseParenExpr parses a scalar subquery, a parenthesized expression or a
// tuple.
func (p *Parser) parseParenExpr() Expr {
	if p.isQueryStart() {
		stmt := p.parseSubquery()
		if stmt == nil {
			return nil
		}
		return &SubqueryExpr{Select: stmt}
	}
	p.expect(token.LPAREN)
	first := p.parseExpression()
	if p.failed() {
		return nil
	}
	if p.Match(token.COMMA) {
		tuple := &TupleExpr{Items: append([]Expr{first}, p.parseExprList()...)}
		if !p.expect(token.RPAREN) {
			return nil
		}
		return tuple
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return &ParenExpr{Expr: first}
}

// finishArray parses the items and closing bracket of an array literal.
func (p *Parser) finishArray() Expr {
	arr := &ArrayExpr{}
	if !p.Check(token.RBRACKET) {
		arr.Items = p.parseExprList()
	}
	if !p.expect(token.RBRACKET) {
		return nil
	}
	return arr
}

// skipBraces consumes a balanced "{ ... }" group.
func (p *Parser) skipBraces() {
	depth := 0
	for p.ok() {
		switch p.token.Type {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
			if depth == 0 {
				p.nextToken()
				return
			}
		case token.EOF:
			p.AddError(ErrUnbalancedParens)
			return
		}
		p.nextToken()
	}
}
