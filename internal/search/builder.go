package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/searchquery"
	apperrors "github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/errors"
)

// Request is one search against a named target.
type Request struct {
	Target string
	Query  string
	Sort   bool
	Limit  int
	Offset int
}

// Statement is ready-to-run SQL with its positional arguments.
type Statement struct {
	SQL       string
	Args      []any
	Compiled  string
	Sanitized string
	Limit     int
	Offset    int
}

// Builder compiles requests into statements.
type Builder struct {
	parser       *searchquery.Parser
	defaultLimit int
	maxResults   int
}

// NewBuilder returns a Builder. Requests without a limit get defaultLimit;
// larger limits are clamped to maxResults.
func NewBuilder(parser *searchquery.Parser, defaultLimit, maxResults int) *Builder {
	if maxResults <= 0 {
		maxResults = 100
	}
	if defaultLimit <= 0 || defaultLimit > maxResults {
		defaultLimit = maxResults
	}
	return &Builder{parser: parser, defaultLimit: defaultLimit, maxResults: maxResults}
}

// Parser returns the query parser the builder compiles with.
func (b *Builder) Parser() *searchquery.Parser {
	return b.parser
}

// Filter returns the full-text predicate for vector against a compiled
// query, numbering its placeholders from argIndex. An empty compiled query
// yields no predicate, which matches every row.
func Filter(vector, regconfig, compiled string, argIndex int) (clause string, args []any) {
	if compiled == "" {
		return "", nil
	}
	return fmt.Sprintf("%s @@ %s", vector, tsquery(argIndex)), []any{regconfig, compiled}
}

// Rank returns the ts_rank_cd expression matching Filter's placeholders.
func Rank(vector string, argIndex int) string {
	return fmt.Sprintf("ts_rank_cd(%s, %s)", vector, tsquery(argIndex))
}

func tsquery(argIndex int) string {
	return fmt.Sprintf("to_tsquery($%d::regconfig, $%d)", argIndex, argIndex+1)
}

// Build compiles req against target.
func (b *Builder) Build(target Target, req Request) (*Statement, error) {
	limit, err := b.limit(req.Limit)
	if err != nil {
		return nil, err
	}
	if req.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", apperrors.ErrInvalidInput)
	}
	compiled, err := b.parser.Parse(req.Query)
	if err != nil {
		return nil, err
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	sql.WriteString(target.SelectList())
	sql.WriteString(" FROM ")
	sql.WriteString(target.Relation())

	clause, args := Filter(target.VectorColumn(), target.Regconfig, compiled, 1)
	if clause != "" {
		sql.WriteString(" WHERE ")
		sql.WriteString(clause)
		if req.Sort {
			sql.WriteString(" ORDER BY ")
			sql.WriteString(Rank(target.VectorColumn(), 1))
			sql.WriteString(" DESC")
		}
	}
	next := len(args) + 1
	sql.WriteString(" LIMIT $" + strconv.Itoa(next))
	sql.WriteString(" OFFSET $" + strconv.Itoa(next+1))
	args = append(args, limit, req.Offset)

	return &Statement{
		SQL:       sql.String(),
		Args:      args,
		Compiled:  compiled,
		Sanitized: b.parser.Sanitize(req.Query),
		Limit:     limit,
		Offset:    req.Offset,
	}, nil
}

func (b *Builder) limit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: limit must not be negative", apperrors.ErrInvalidInput)
	case requested == 0:
		return b.defaultLimit, nil
	case requested > b.maxResults:
		return b.maxResults, nil
	default:
		return requested, nil
	}
}
