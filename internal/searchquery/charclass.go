package searchquery

import (
	"strings"
	"unicode"
)

// wordTables are the Unicode categories a search word is made of: letters
// of every script, combining marks (so Devanagari or decomposed Latin stay
// in one word) and decimal digits.
var wordTables = []*unicode.RangeTable{
	unicode.L,
	unicode.M,
	unicode.Nd,
}

const (
	runeOpenParen  = '('
	runeCloseParen = ')'
	runeQuote      = '"'
)

func isWordRune(r rune) bool {
	if r < 0x80 {
		return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
	}
	return unicode.IsOneOf(wordTables, r)
}

// isEmailRune reports runes that may appear inside a word only when e-mail
// literals are kept as single tokens.
func isEmailRune(r rune) bool {
	return r < 0x80 && strings.IndexByte(emailPunct, byte(r)) >= 0
}

func isStructural(r rune) bool {
	return r == runeOpenParen || r == runeCloseParen || r == runeQuote
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if isWordRune(r) {
			return true
		}
	}
	return false
}
