package searchquery

import "strings"

// Sanitize reduces raw user input to the characters the grammar accepts.
// It never fails: input with nothing searchable left in it becomes "".
//
// Word runes, parentheses, the phrase quote (when phrases are enabled) and a
// negation rune that starts a token survive. Every other rune, including a
// hyphen joining two words, turns into a word separator. With
// EmailsAsTokens, a whitespace-delimited e-mail address, optionally negated,
// is kept verbatim.
// Sanitize is idempotent.
func (p *Parser) Sanitize(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(query))
	for _, field := range fields {
		if p.opts.EmailsAsTokens && IsEmail(strings.TrimLeft(field, string(p.opts.Negation))) {
			writeSeparated(&b, field)
			continue
		}
		p.sanitizeField(&b, field)
	}
	out := b.String()
	if !hasWordRune(out) {
		return ""
	}
	return out
}

// sanitizeField appends the cleaned pieces of one whitespace-free field.
func (p *Parser) sanitizeField(b *strings.Builder, field string) {
	var piece strings.Builder
	// tokenStart holds at the start of the field, right after '(', '"' or a
	// kept negation, and after a stripped rune, which separates like a space.
	// Only there does a negation rune survive. A negation rune stripped
	// between words clears it, so star--wars stays two plain words.
	tokenStart := true
	flush := func() {
		if piece.Len() > 0 {
			writeSeparated(b, piece.String())
			piece.Reset()
		}
	}
	for _, r := range field {
		switch {
		case isWordRune(r):
			piece.WriteRune(r)
			tokenStart = false
		case r == runeOpenParen, r == runeCloseParen:
			piece.WriteRune(r)
			tokenStart = r == runeOpenParen
		case r == runeQuote && p.opts.Phrases:
			piece.WriteRune(r)
			tokenStart = true
		case r == p.opts.Negation && tokenStart:
			piece.WriteRune(r)
		case r == p.opts.Negation:
			flush()
			tokenStart = false
		default:
			flush()
			tokenStart = true
		}
	}
	flush()
}

func writeSeparated(b *strings.Builder, s string) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(s)
}
