package searchquery

import (
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokQuote
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokWord:
		return "word"
	case tokAnd:
		return "and"
	case tokOr:
		return "or"
	case tokNot:
		return "negation"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokQuote:
		return "'\"'"
	default:
		return "unknown"
	}
}

// token is a lexeme of sanitized input. pos is a byte offset into that input.
type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits sanitized input into tokens. Runes the grammar has no use for
// are skipped, so lex accepts unsanitized text as well. It stops after
// limit+1 tokens so the caller can tell an over-long query apart; the
// trailing EOF token is always present.
func (p *Parser) lex(input string, limit int) []token {
	tokens := make([]token, 0, min(len(input)/3, limit+1)+1)
	for i := 0; i < len(input) && len(tokens) <= limit; {
		r, size := utf8.DecodeRuneInString(input[i:])
		switch {
		case r == runeOpenParen:
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
		case r == runeCloseParen:
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
		case r == runeQuote && p.opts.Phrases:
			tokens = append(tokens, token{kind: tokQuote, text: `"`, pos: i})
		case r == p.opts.Negation:
			tokens = append(tokens, token{kind: tokNot, text: string(r), pos: i})
		case isWordRune(r):
			end := p.scanWord(input, i)
			tokens = append(tokens, p.classify(input[i:end], i))
			i = end
			continue
		}
		i += size
	}
	return append(tokens, token{kind: tokEOF, pos: len(input)})
}

// scanWord returns the end offset of the word starting at start.
func (p *Parser) scanWord(input string, start int) int {
	i := start
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		if !isWordRune(r) && !(p.opts.EmailsAsTokens && isEmailRune(r)) {
			break
		}
		i += size
	}
	return i
}

func (p *Parser) classify(text string, pos int) token {
	switch {
	case strings.EqualFold(text, p.opts.OrKeyword):
		return token{kind: tokOr, text: text, pos: pos}
	case strings.EqualFold(text, p.opts.AndKeyword):
		return token{kind: tokAnd, text: text, pos: pos}
	default:
		return token{kind: tokWord, text: text, pos: pos}
	}
}
