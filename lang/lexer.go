package lang

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

// twoCharOperators are matched before single-character operators so that the
// longest operator always wins.
var twoCharOperators = []string{
	"<<", ">>", "<=", ">=", "<>", "==", "!=", "&&", "||",
}

const singleCharOperators = "+-*/%!~&|^=<>?:"

// lexer splits source text into tokens.
type lexer struct {
	src  string
	off  int
	line int
	col  int
}

// lex tokenizes src. The returned slice always ends with a tokenEOF token.
// Lexing stops at the first malformed token.
func lex(src string) ([]token, error) {
	lx := lexer{src: src, line: 1, col: 1}

	var toks []token

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}

		toks = append(toks, tok)

		if tok.kind == tokenEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) pos() Position {
	return Position{Offset: lx.off, Line: lx.line, Column: lx.col}
}

// peek returns the rune at byte offset off+ahead without consuming it.
func (lx *lexer) peek(ahead int) rune {
	if lx.off+ahead >= len(lx.src) {
		return utf8.RuneError
	}

	r, _ := utf8.DecodeRuneInString(lx.src[lx.off+ahead:])

	return r
}

func (lx *lexer) eof() bool { return lx.off >= len(lx.src) }

func (lx *lexer) advance() rune {
	r, n := utf8.DecodeRuneInString(lx.src[lx.off:])
	lx.off += n

	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}

	return r
}

func (lx *lexer) errorf(pos Position, reason string) *LexError {
	return &LexError{Pos: pos, Reason: reason, Source: lx.src}
}

func (lx *lexer) next() (token, error) {
	for !lx.eof() && unicode.IsSpace(lx.peek(0)) {
		lx.advance()
	}

	start := lx.pos()
	if lx.eof() {
		return token{kind: tokenEOF, pos: start}, nil
	}

	r := lx.peek(0)

	switch {
	case isDigit(r) || (r == '.' && isDigit(lx.peek(1))):
		return lx.number(start)
	case r == '\'' || r == '"':
		return lx.quoted(start, r)
	case r == '#':
		return lx.date(start)
	case r == '[':
		return lx.bracketed(start)
	case isIdentStart(r):
		for !lx.eof() && isIdentPart(lx.peek(0)) {
			lx.advance()
		}

		text := lx.src[start.Offset:lx.off]

		return token{kind: tokenIdent, text: text, pos: start}, nil
	case r == '(':
		lx.advance()

		return token{kind: tokenLParen, text: "(", pos: start}, nil
	case r == ')':
		lx.advance()

		return token{kind: tokenRParen, text: ")", pos: start}, nil
	case r == ',':
		lx.advance()

		return token{kind: tokenComma, text: ",", pos: start}, nil
	}

	for _, op := range twoCharOperators {
		if strings.HasPrefix(lx.src[lx.off:], op) {
			lx.advance()
			lx.advance()

			return token{kind: tokenOperator, text: op, pos: start}, nil
		}
	}

	if strings.ContainsRune(singleCharOperators, r) {
		lx.advance()

		return token{kind: tokenOperator, text: string(r), pos: start}, nil
	}

	return token{}, lx.errorf(start, "unexpected character "+strconv.QuoteRune(r))
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (lx *lexer) digits() {
	for !lx.eof() && isDigit(lx.peek(0)) {
		lx.advance()
	}
}

// number scans an integer or floating-point literal.
//
//	integer  = digit { digit } .
//	float    = ( digits "." digits | "." digits | digits ) [ exponent ] .
//	exponent = ( "e" | "E" ) [ "+" | "-" ] digits .
func (lx *lexer) number(start Position) (token, error) {
	isFloat := false

	lx.digits()

	if lx.peek(0) == '.' {
		if !isDigit(lx.peek(1)) {
			lx.advance()

			return token{}, lx.errorf(start, "malformed number: missing digits after decimal point")
		}

		isFloat = true

		lx.advance()
		lx.digits()
	}

	if r := lx.peek(0); r == 'e' || r == 'E' {
		ahead := 1
		if s := lx.peek(1); s == '+' || s == '-' {
			ahead = 2
		}

		if !isDigit(lx.peek(ahead)) {
			return token{}, lx.errorf(start, "malformed number: missing exponent digits")
		}

		isFloat = true

		for range ahead {
			lx.advance()
		}

		lx.digits()
	}

	if !lx.eof() && (isIdentPart(lx.peek(0)) || lx.peek(0) == '.') {
		return token{}, lx.errorf(start, "malformed number")
	}

	text := lx.src[start.Offset:lx.off]

	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, lx.errorf(start, "number out of range")
		}

		return token{kind: tokenFloat, text: text, value: f, pos: start}, nil
	}

	return token{kind: tokenInteger, text: text, value: integerValue(text), pos: start}, nil
}

// integerValue returns the narrowest representation of a decimal integer:
// int32 when it fits, then int64, then decimal.
func integerValue(text string) any {
	n, err := strconv.ParseInt(text, 10, 64)
	if err == nil {
		if int64(int32(n)) == n {
			return int32(n)
		}

		return n
	}

	return decimal.RequireFromString(text)
}

// quoted scans a string literal delimited by quote.
func (lx *lexer) quoted(start Position, quote rune) (token, error) {
	lx.advance()

	var buf strings.Builder

	for {
		if lx.eof() {
			return token{}, lx.errorf(start, "unterminated string")
		}

		at := lx.pos()
		r := lx.advance()

		switch r {
		case quote:
			return token{kind: tokenString, text: buf.String(), value: buf.String(), pos: start}, nil
		case '\\':
			esc, err := lx.escape(at)
			if err != nil {
				return token{}, err
			}

			buf.WriteRune(esc)
		default:
			buf.WriteRune(r)
		}
	}
}

func (lx *lexer) escape(at Position) (rune, error) {
	if lx.eof() {
		return 0, lx.errorf(at, "unterminated string")
	}

	switch r := lx.advance(); r {
	case '\\', '\'', '"':
		return r, nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		if lx.off+4 > len(lx.src) {
			return 0, lx.errorf(at, "malformed unicode escape")
		}

		n, err := strconv.ParseUint(lx.src[lx.off:lx.off+4], 16, 32)
		if err != nil {
			return 0, lx.errorf(at, "malformed unicode escape")
		}

		for range 4 {
			lx.advance()
		}

		return rune(n), nil
	default:
		return 0, lx.errorf(at, "unknown escape sequence \\"+string(r))
	}
}

// date scans a #...# date-time literal. The content is interpreted in UTC,
// month first when ambiguous.
func (lx *lexer) date(start Position) (token, error) {
	lx.advance()

	begin := lx.off

	for !lx.eof() && lx.peek(0) != '#' {
		lx.advance()
	}

	if lx.eof() {
		return token{}, lx.errorf(start, "unterminated date")
	}

	text := strings.TrimSpace(lx.src[begin:lx.off])

	lx.advance()

	t, err := parseDate(text)
	if err != nil {
		return token{}, lx.errorf(start, "malformed date "+strconv.Quote(text))
	}

	return token{kind: tokenDate, text: text, value: t, pos: start}, nil
}

var errEmptyDate = errors.New("empty date")

func parseDate(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, errEmptyDate
	}

	return dateparse.ParseIn(text, time.UTC, dateparse.PreferMonthFirst(true))
}

// bracketed scans a [name] identifier. Brackets may nest; the outermost pair
// is stripped.
func (lx *lexer) bracketed(start Position) (token, error) {
	lx.advance()

	begin := lx.off
	depth := 1

	for !lx.eof() {
		switch lx.peek(0) {
		case '[':
			depth++
		case ']':
			depth--
		}

		if depth == 0 {
			break
		}

		lx.advance()
	}

	if depth != 0 {
		return token{}, lx.errorf(start, "unterminated identifier")
	}

	text := lx.src[begin:lx.off]

	lx.advance()

	if text == "" {
		return token{}, lx.errorf(start, "empty identifier")
	}

	return token{kind: tokenIdent, text: text, quoted: true, pos: start}, nil
}
