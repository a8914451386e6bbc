package repl

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/formula/lang"
)

// keywords complete alongside function and parameter names.
var keywords = []string{"and", "or", "not", "true", "false"}

// isWordBoundary reports whether r separates words for completion: the
// operators, brackets, punctuation and whitespace of the formula grammar.
func isWordBoundary(r rune) bool {
	switch r {
	case ' ', '\t',
		'(', ')', '[', ']', ',', '?', ':',
		'+', '-', '*', '/', '%',
		'<', '>', '=', '!', '~',
		'&', '|', '^':
		return true
	}

	return false
}

// wordBounds returns the word around byte offset cursor in input and its
// byte range. The word is empty when the cursor sits between boundaries.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(max(cursor, 0), len(input))

	start = cursor
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor
	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// candidates returns the names matching word, best first. Built-in functions
// come first among equal scores, then bound parameters, then keywords.
func candidates(s *Session, word string) fuzzy.Matches {
	if word == "" || strings.ContainsAny(word, `'"#`) || isNumber(word) {
		return nil
	}

	names := slices.Concat(lang.Builtins(), s.Names(), keywords)

	return fuzzy.Find(word, names)
}

func isNumber(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)

	return r >= '0' && r <= '9' || r == '.'
}

// call describes the innermost function call enclosing the cursor.
type call struct {
	name string
	arg  int
}

// callAt finds the innermost unclosed call before byte offset cursor and the
// index of the argument the cursor is in. String and date literals are
// skipped.
func callAt(input string, cursor int) (call, bool) {
	cursor = min(max(cursor, 0), len(input))

	type frame struct {
		name string
		arg  int
	}

	var (
		stack []frame
		quote rune
	)

	for i, r := range input[:cursor] {
		if quote != 0 {
			if r == quote {
				quote = 0
			}

			continue
		}

		switch r {
		case '\'', '"', '#':
			quote = r

		case '(':
			name, _, _ := wordBounds(input[:i], i)
			stack = append(stack, frame{name: strings.TrimSpace(name)})

		case ')':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case ',':
			if len(stack) > 0 {
				stack[len(stack)-1].arg++
			}
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].name != "" {
			return call{name: stack[i].name, arg: stack[i].arg}, true
		}
	}

	return call{}, false
}

// signature returns the parameter names of a built-in for display, or nil
// for names that are not built-ins.
func signature(name string, ignoreCase bool) []string {
	b, ok := lang.LookupBuiltin(name, ignoreCase)
	if !ok {
		return nil
	}

	switch b {
	case lang.BuiltinIf:
		return []string{"condition", "then", "else"}
	case lang.BuiltinIn:
		return []string{"value", "candidate", "..."}
	case lang.BuiltinRound:
		return []string{"value", "[digits]"}
	case lang.BuiltinLog:
		return []string{"value", "base"}
	case lang.BuiltinPow:
		return []string{"base", "exponent"}
	}

	_, hi := b.Arity()
	if hi == 1 {
		return []string{"value"}
	}

	return []string{"a", "b"}
}
