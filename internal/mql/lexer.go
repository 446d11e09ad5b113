package mql

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokString
	tokNumber
	tokOp
	tokComma
	tokLParen
	tokRParen
	tokStar
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// is reports whether the token is the keyword kw, case insensitively.
func (t token) is(kw string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, kw)
}

// lex splits src into tokens. Quoted strings use ' or " and may contain the
// other quote. Bare words may contain letters, digits, '_', '-', '.' and '#'.
func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == '*':
			toks = append(toks, token{tokStar, "*", i})
			i++
		case r == '=':
			toks = append(toks, token{tokOp, "=", i})
			i++
		case r == '!' || r == '<' || r == '>':
			start := i
			i++
			if i < len(rs) && rs[i] == '=' {
				i++
			} else if r == '!' {
				return nil, newSyntaxError(start, "expected '=' after '!'")
			}
			toks = append(toks, token{tokOp, string(rs[start:i]), start})
		case r == '\'' || r == '"':
			start := i
			i++
			var b strings.Builder
			for i < len(rs) && rs[i] != r {
				b.WriteRune(rs[i])
				i++
			}
			if i == len(rs) {
				return nil, newSyntaxError(start, "unterminated string")
			}
			i++
			toks = append(toks, token{tokString, b.String(), start})
		case isNumberStart(rs, i):
			start := i
			i++
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.') {
				i++
			}
			if i < len(rs) && isWordRune(rs[i]) {
				// "2nd" or "1-2" are words.
				for i < len(rs) && isWordRune(rs[i]) {
					i++
				}
				toks = append(toks, token{tokWord, string(rs[start:i]), start})
				continue
			}
			toks = append(toks, token{tokNumber, string(rs[start:i]), start})
		case isWordRune(r):
			start := i
			for i < len(rs) && isWordRune(rs[i]) {
				i++
			}
			toks = append(toks, token{tokWord, string(rs[start:i]), start})
		default:
			return nil, newSyntaxError(i, "unexpected character %q", r)
		}
	}
	return append(toks, token{tokEOF, "", len(rs)}), nil
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' || r == '#'
}

func isNumberStart(rs []rune, i int) bool {
	if unicode.IsDigit(rs[i]) {
		return true
	}
	return rs[i] == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])
}
