package compile

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokDot
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexer tokenizes the modern DSL (spec §4.3 grammar). It is a small
// hand-rolled scanner, not backed by a parser-combinator library,
// mirroring the teacher's hand-rolled byte-level parsing in
// tools/forge/parse.
type lexer struct {
	src  string
	pos  int
	toks []token
}

func newLexer(src string) *lexer { return &lexer{src: src} }

func (l *lexer) tokenize() ([]token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '+':
			l.emit(tokPlus, "+", 1)
		case c == '-':
			l.emit(tokMinus, "-", 1)
		case c == '*':
			l.emit(tokStar, "*", 1)
		case c == '/':
			l.emit(tokSlash, "/", 1)
		case c == '^':
			l.emit(tokCaret, "^", 1)
		case c == '.':
			l.emit(tokDot, ".", 1)
		case c == '(':
			l.emit(tokLParen, "(", 1)
		case c == ')':
			l.emit(tokRParen, ")", 1)
		case c == '[':
			l.emit(tokLBracket, "[", 1)
		case c == ']':
			l.emit(tokRBracket, "]", 1)
		case c >= '0' && c <= '9':
			l.number()
		case isIdentStart(c):
			l.ident()
		default:
			return nil, fmt.Errorf("compile: unexpected character %q at offset %d", c, l.pos)
		}
	}
	l.toks = append(l.toks, token{kind: tokEOF, pos: l.pos})
	return l.toks, nil
}

func (l *lexer) emit(kind tokenKind, text string, width int) {
	l.toks = append(l.toks, token{kind: kind, text: text, pos: l.pos})
	l.pos += width
}

func (l *lexer) number() {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.pos++
		}
	}
	l.toks = append(l.toks, token{kind: tokNumber, text: l.src[start:l.pos], pos: start})
}

func (l *lexer) ident() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	l.toks = append(l.toks, token{kind: tokIdent, text: l.src[start:l.pos], pos: start})
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// looksLegacy applies the textual detector of spec §4.3/§9: legacy
// source is recognized by tokens that never appear in the modern DSL.
func looksLegacy(src string) bool {
	return strings.Contains(src, ".getVariable") ||
		strings.Contains(src, "new Fraction(") ||
		strings.Contains(src, "module.")
}
