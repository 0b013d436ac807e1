package config

// tokenType enumerates the DSL's lexical vocabulary.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenString
	tokenLParen
	tokenRParen
	tokenComma
	tokenSemicolon
	tokenUnknown
)

type token struct {
	typ    tokenType
	value  string
	line   int
	column int
}

// lexer produces line/column-tracked tokens from rule-file source. It
// skips whitespace, // line comments and /* */ block comments.
type lexer struct {
	input  string
	pos    int
	line   int
	column int
}

func newLexer(input string) *lexer {
	return &lexer{input: input, line: 1, column: 1}
}

func (l *lexer) next() token {
	l.skipWhitespaceAndComments()

	if l.pos >= len(l.input) {
		return l.make(tokenEOF, "")
	}

	c := l.peek()
	if isIdentStart(c) {
		return l.scanIdent()
	}
	if c == '"' {
		return l.scanString()
	}

	l.advance()
	switch c {
	case '(':
		return l.make(tokenLParen, "(")
	case ')':
		return l.make(tokenRParen, ")")
	case ',':
		return l.make(tokenComma, ",")
	case ';':
		return l.make(tokenSemicolon, ";")
	default:
		return l.make(tokenUnknown, string(c))
	}
}

func (l *lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.lookahead() == '/':
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.lookahead() == '*':
			l.advance() // '/'
			l.advance() // '*'
			for l.pos < len(l.input) {
				if l.peek() == '*' && l.lookahead() == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) lookahead() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	c := l.input[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else if c&0xC0 != 0x80 {
		// Skip UTF-8 continuation bytes so columns count code points.
		l.column++
	}
	return c
}

func (l *lexer) make(typ tokenType, value string) token {
	return token{typ: typ, value: value, line: l.line, column: l.column - len([]rune(value))}
}

func (l *lexer) makeAt(typ tokenType, value string, line, column int) token {
	return token{typ: typ, value: value, line: line, column: column}
}

func (l *lexer) scanIdent() token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	return l.make(tokenIdent, l.input[start:l.pos])
}

func (l *lexer) scanString() token {
	startLine, startColumn := l.line, l.column
	l.advance() // opening quote

	var value []byte
	for l.pos < len(l.input) && l.peek() != '"' {
		c := l.advance()
		if c == '\\' && l.peek() == '"' {
			value = append(value, '"')
			l.advance()
			continue
		}
		value = append(value, c)
	}

	if l.pos >= len(l.input) {
		// Unterminated string literal.
		return l.makeAt(tokenUnknown, string(value), startLine, startColumn)
	}

	l.advance() // closing quote
	return l.makeAt(tokenString, string(value), startLine, startColumn)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
