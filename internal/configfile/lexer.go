// Package configfile implements the brace-grouped config grammar,
// plus the ambient host-config loading
// (env + .env + YAML) this runtime needs to boot, grounded on a
// pkg/config-style layout: an env-tagged struct decoded via envdecode,
// overlaid on a godotenv-loaded .env file.
package configfile

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokBool
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	line int
}

type lexer struct {
	src  string
	pos  int
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) advance() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
	}
	return b
}

func (l *lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.src) {
		c := l.peekByte()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.' || c == '-'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// next returns the next token in the stream, or a tokEOF token once the
// input is exhausted.
func (l *lexer) next() (token, error) {
	l.skipWhitespaceAndComments()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}, nil
	}

	startLine := l.line
	c := l.peekByte()

	switch c {
	case '{':
		l.advance()
		return token{kind: tokLBrace, line: startLine}, nil
	case '}':
		l.advance()
		return token{kind: tokRBrace, line: startLine}, nil
	case '[':
		l.advance()
		return token{kind: tokLBracket, line: startLine}, nil
	case ']':
		l.advance()
		return token{kind: tokRBracket, line: startLine}, nil
	case '(':
		l.advance()
		return token{kind: tokLParen, line: startLine}, nil
	case ')':
		l.advance()
		return token{kind: tokRParen, line: startLine}, nil
	case '"':
		return l.lexString(startLine)
	}

	if c == '-' || isDigit(c) {
		return l.lexNumber(startLine)
	}

	if isIdentStart(c) {
		return l.lexIdentOrBool(startLine)
	}

	return token{}, fmt.Errorf("configfile: unexpected character %q at line %d", c, startLine)
}

func (l *lexer) lexString(startLine int) (token, error) {
	l.advance() // opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("configfile: unterminated string starting at line %d", startLine)
		}
		c := l.advance()
		if c == '"' {
			return token{kind: tokString, text: b.String(), line: startLine}, nil
		}
		if c == '\\' && l.pos < len(l.src) {
			b.WriteByte(l.advance())
			continue
		}
		b.WriteByte(c)
	}
}

func (l *lexer) lexNumber(startLine int) (token, error) {
	start := l.pos
	if l.peekByte() == '-' {
		l.advance()
	}
	for l.pos < len(l.src) && isDigit(l.peekByte()) {
		l.advance()
	}
	if l.peekByte() == '.' {
		l.advance()
		for l.pos < len(l.src) && isDigit(l.peekByte()) {
			l.advance()
		}
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], line: startLine}, nil
}

func (l *lexer) lexIdentOrBool(startLine int) (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.peekByte()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	lower := strings.ToLower(text)
	if lower == "true" || lower == "false" {
		return token{kind: tokBool, text: lower, line: startLine}, nil
	}
	return token{kind: tokIdent, text: text, line: startLine}, nil
}
