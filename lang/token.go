package lang

import "strconv"

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenInteger
	tokenFloat
	tokenString
	tokenDate
	tokenIdent
	tokenOperator
	tokenLParen
	tokenRParen
	tokenComma
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of input"
	case tokenInteger:
		return "integer"
	case tokenFloat:
		return "number"
	case tokenString:
		return "string"
	case tokenDate:
		return "date"
	case tokenIdent:
		return "identifier"
	case tokenOperator:
		return "operator"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenComma:
		return "','"
	default:
		return "tokenKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// token is a lexeme with its decoded value.
//
// For literals, value holds the decoded Go value (int32, int64,
// decimal.Decimal, float64, string or time.Time). For bracketed identifiers,
// quoted is set and text holds the name without brackets.
type token struct {
	value  any
	text   string
	pos    Position
	kind   tokenKind
	quoted bool
}

// describe returns a short human-readable description for error messages.
func (t token) describe() string {
	switch t.kind {
	case tokenEOF:
		return t.kind.String()
	case tokenString:
		return "string " + strconv.Quote(t.text)
	case tokenIdent:
		if t.quoted {
			return "identifier [" + t.text + "]"
		}

		return "identifier " + strconv.Quote(t.text)
	default:
		return strconv.Quote(t.text)
	}
}

// is reports whether t is the operator or punctuation spelled s.
func (t token) is(s string) bool {
	switch t.kind {
	case tokenOperator, tokenLParen, tokenRParen, tokenComma:
		return t.text == s
	}

	return false
}
