package searchquery

import (
	"errors"
	"fmt"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/errors"
)

var (
	ErrEmptyQuery    = errors.New("nothing to search for")
	ErrEmptyGroup    = errors.New("empty parenthesis group")
	ErrUnclosed      = errors.New("unclosed parenthesis")
	ErrUnopened      = errors.New("unmatched closing parenthesis")
	ErrTooDeep       = errors.New("parentheses nested too deeply")
	ErrUnclosedQuote = errors.New("unclosed phrase quote")
	ErrTooLong       = errors.New("too many terms")
)

// ParseError describes why a query was rejected in strict mode. Pos is a
// byte offset into the sanitized query and Near the text starting there.
type ParseError struct {
	Query string
	Pos   int
	Near  string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("%s: %v at position %d", apperrors.ErrMalformedQuery, e.Err, e.Pos)
	}
	return fmt.Sprintf("%s: %v at position %d near %q", apperrors.ErrMalformedQuery, e.Err, e.Pos, e.Near)
}

// Unwrap exposes both the specific cause and ErrMalformedQuery, so callers
// can test for either with errors.Is.
func (e *ParseError) Unwrap() []error {
	return []error{e.Err, apperrors.ErrMalformedQuery}
}

const maxNear = 16

func newParseError(query string, pos int, err error) *ParseError {
	if pos > len(query) {
		pos = len(query)
	}
	near := query[pos:]
	if len(near) > maxNear {
		near = near[:maxNear]
		for len(near) > 0 && !utf8.ValidString(near) {
			near = near[:len(near)-1]
		}
	}
	return &ParseError{Query: query, Pos: pos, Near: near, Err: err}
}
