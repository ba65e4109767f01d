package parser

import (
	"strings"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/token"
)

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	quote    byte // opening identifier quote
	quoteEnd byte // closing identifier quote

	prev token.TokenType // type of the last emitted token
}

// NewLexer creates a new Lexer for the given input. Identifier quoting
// follows d; a nil dialect uses ANSI double quotes.
func NewLexer(input string, d *dialect.Dialect) *Lexer {
	l := &Lexer{
		input:    input,
		line:     1,
		quote:    '"',
		quoteEnd: '"',
		prev:     token.ILLEGAL,
	}
	if d != nil && d.Identifiers.Quote != "" {
		l.quote = d.Identifiers.Quote[0]
		l.quoteEnd = l.quote
		if d.Identifiers.QuoteEnd != "" {
			l.quoteEnd = d.Identifiers.QuoteEnd[0]
		}
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	tok := l.next()
	l.prev = tok.Type
	return tok
}

func (l *Lexer) next() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	if l.pos >= len(l.input) {
		return token.Token{Type: token.EOF, Pos: pos}
	}

	two := func(t token.TokenType, lit string) token.Token {
		l.readChar()
		l.readChar()
		return token.Token{Type: t, Literal: lit, Pos: pos}
	}
	one := func(t token.TokenType) token.Token {
		lit := string(l.ch)
		l.readChar()
		return token.Token{Type: t, Literal: lit, Pos: pos}
	}

	// Quoted identifiers take priority so backtick and double-quote
	// dialects share the switch below.
	if l.ch == l.quote {
		return l.readQuotedIdentifier(pos)
	}

	switch l.ch {
	case '\'':
		return l.readString(pos)
	case '"':
		// Double quotes are string literals in backtick-quoting dialects.
		return l.readDelimited(pos, '"', token.STRING)
	case '+':
		return one(token.PLUS)
	case '-':
		if l.peekChar() == '>' {
			return two(token.ARROW, "->")
		}
		return one(token.MINUS)
	case '*':
		return one(token.STAR)
	case '/':
		return one(token.SLASH)
	case '%':
		return one(token.PERCENT)
	case '^':
		return one(token.CARET)
	case '&':
		return one(token.AMP)
	case '~':
		return one(token.TILDE)
	case '?':
		return one(token.QUESTION)
	case '=':
		switch l.peekChar() {
		case '>':
			return two(token.FATARROW, "=>")
		case '=':
			return two(token.EQ, "==")
		}
		return one(token.EQ)
	case '<':
		switch l.peekChar() {
		case '=':
			return two(token.LE, "<=")
		case '>':
			return two(token.NE, "<>")
		}
		return one(token.LT)
	case '>':
		if l.peekChar() == '=' {
			return two(token.GE, ">=")
		}
		return one(token.GT)
	case '!':
		if l.peekChar() == '=' {
			return two(token.NE, "!=")
		}
		return one(token.ILLEGAL)
	case '|':
		if l.peekChar() == '|' {
			return two(token.DPIPE, "||")
		}
		return one(token.PIPE)
	case ':':
		if l.peekChar() == ':' {
			return two(token.DCOLON, "::")
		}
		if isLetter(l.peekChar()) && !l.afterOperand() {
			return l.readParam(pos)
		}
		return one(token.COLON)
	case '$', '@':
		if isDigit(l.peekChar()) || isLetter(l.peekChar()) {
			return l.readParam(pos)
		}
		return one(token.ILLEGAL)
	case '.':
		// ".01" is a number unless it follows something it could qualify.
		if isDigit(l.peekChar()) && !l.afterOperand() {
			return token.Token{Type: token.NUMBER, Literal: l.readNumber(), Pos: pos}
		}
		return one(token.DOT)
	case ',':
		return one(token.COMMA)
	case ';':
		return one(token.SEMICOLON)
	case '(':
		return one(token.LPAREN)
	case ')':
		return one(token.RPAREN)
	case '[':
		return one(token.LBRACKET)
	case ']':
		return one(token.RBRACKET)
	case '{':
		return one(token.LBRACE)
	case '}':
		return one(token.RBRACE)
	}

	switch {
	case isLetter(l.ch):
		lit := l.readIdentifier()
		return token.Token{Type: token.LookupIdent(strings.ToLower(lit)), Literal: lit, Pos: pos}
	case isDigit(l.ch):
		return token.Token{Type: token.NUMBER, Literal: l.readNumber(), Pos: pos}
	}
	return one(token.ILLEGAL)
}

// afterOperand reports whether the previous token ends an operand, in which
// case a following '.' or ':' is an operator rather than a literal prefix.
func (l *Lexer) afterOperand() bool {
	switch l.prev {
	case token.IDENT, token.RPAREN, token.RBRACKET:
		return true
	}
	return false
}

// skipWhitespaceAndComments skips whitespace, -- line comments and
// /* block */ comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.pos < len(l.input) {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.pos < len(l.input) {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
			continue
		}

		break
	}
}

// readString reads a single-quoted string literal. A doubled quote inside
// the literal stands for one quote. An unterminated literal yields ILLEGAL.
func (l *Lexer) readString(pos Position) token.Token {
	return l.readDelimited(pos, '\'', token.STRING)
}

// readQuotedIdentifier reads a quoted identifier using the dialect's quote
// characters. The literal is the unescaped name.
func (l *Lexer) readQuotedIdentifier(pos Position) token.Token {
	tok := l.readDelimited(pos, l.quoteEnd, token.IDENT)
	if tok.Type == token.IDENT {
		tok.Quoted = true
	}
	return tok
}

// readDelimited reads text up to the closing delimiter end, treating a
// doubled delimiter as an escaped one.
func (l *Lexer) readDelimited(pos Position, end byte, t token.TokenType) token.Token {
	start := l.pos
	l.readChar() // skip opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		if l.ch == end {
			if l.peekChar() == end {
				sb.WriteByte(end)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return token.Token{Type: t, Literal: sb.String(), Pos: pos}
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	return token.Token{Type: token.ILLEGAL, Literal: l.input[start:], Pos: pos}
}

// readIdentifier reads an unquoted identifier. '$' is allowed after the
// first character (Oracle and Snowflake system names such as V$SESSION).
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readParam reads a bind parameter such as $1, :name or @var.
func (l *Lexer) readParam(pos Position) token.Token {
	start := l.pos
	l.readChar() // skip sigil
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return token.Token{Type: token.PARAM, Literal: l.input[start:l.pos], Pos: pos}
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && l.readPos+1 < len(l.input) && isDigit(l.input[l.readPos+1])) {
			l.readChar() // skip 'e'
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	return l.input[start:l.pos]
}

// isLetter accepts ASCII letters, underscore and any byte of a multi-byte
// UTF-8 sequence, so non-ASCII identifiers lex as a single word.
func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
