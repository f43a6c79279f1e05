package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/resilience"
	"github.com/lib/pq"
)

// Querier runs read queries. *postgres.Client and *sql.DB satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Row is one result row keyed by column name.
type Row map[string]any

// Result is what a search returns.
type Result struct {
	Target   string `json:"target"`
	Query    string `json:"query"`
	Compiled string `json:"compiled"`
	Count    int    `json:"count"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
	Rows     []Row  `json:"rows"`
}

// Searcher resolves targets, builds statements and runs them.
type Searcher struct {
	db      Querier
	builder *Builder
	targets Targets
	breaker *resilience.CircuitBreaker
	timeout time.Duration
	logger  *slog.Logger
}

// NewSearcher returns a Searcher. breaker may be nil; a non-positive timeout
// leaves the caller's deadline in charge.
func NewSearcher(db Querier, builder *Builder, targets Targets, breaker *resilience.CircuitBreaker, timeout time.Duration) *Searcher {
	return &Searcher{
		db:      db,
		builder: builder,
		targets: targets,
		breaker: breaker,
		timeout: timeout,
		logger:  slog.Default().With("component", "searcher"),
	}
}

// Builder returns the statement builder.
func (s *Searcher) Builder() *Builder {
	return s.builder
}

// Targets returns the configured targets.
func (s *Searcher) Targets() Targets {
	return s.targets
}

// Target resolves a target by name. An empty name selects the only target
// when exactly one is configured.
func (s *Searcher) Target(name string) (Target, error) {
	if name == "" {
		if len(s.targets) == 1 {
			for _, t := range s.targets {
				return t, nil
			}
		}
		return Target{}, fmt.Errorf("%w: target is required", apperrors.ErrInvalidInput)
	}
	t, ok := s.targets[name]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownTarget, name)
	}
	return t, nil
}

// Prepare resolves the target and compiles the statement without touching
// the database.
func (s *Searcher) Prepare(req Request) (Target, *Statement, error) {
	target, err := s.Target(req.Target)
	if err != nil {
		return Target{}, nil, err
	}
	stmt, err := s.builder.Build(target, req)
	if err != nil {
		return Target{}, nil, err
	}
	return target, stmt, nil
}

// Search prepares and executes req.
func (s *Searcher) Search(ctx context.Context, req Request) (*Result, error) {
	target, stmt, err := s.Prepare(req)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, target, req.Query, stmt)
}

// Execute runs a prepared statement.
func (s *Searcher) Execute(ctx context.Context, target Target, query string, stmt *Statement) (*Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var rows []Row
	run := func(ctx context.Context) error {
		var err error
		rows, err = s.query(ctx, stmt)
		return err
	}
	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, run, isBackendFailure)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, s.classify(target, stmt, err)
	}

	return &Result{
		Target:   target.Name,
		Query:    query,
		Compiled: stmt.Compiled,
		Count:    len(rows),
		Limit:    stmt.Limit,
		Offset:   stmt.Offset,
		Rows:     rows,
	}, nil
}

func (s *Searcher) query(ctx context.Context, stmt *Statement) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	out := make([]Row, 0, stmt.Limit)
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Searcher) classify(target Target, stmt *Statement, err error) error {
	log := s.logger.With("target", target.Name, "compiled", stmt.Compiled)
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("search timed out", "timeout", s.timeout)
		return fmt.Errorf("%w: search on %q: %v", apperrors.ErrTimeout, target.Name, err)
	case errors.Is(err, context.Canceled):
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		log.Error("search query rejected",
			"code", string(pqErr.Code),
			"message", pqErr.Message,
		)
		if pqErr.Code == "42P01" || pqErr.Code == "42703" {
			return fmt.Errorf("%w: target %q is misconfigured: %s", apperrors.ErrInternal, target.Name, pqErr.Message)
		}
		return fmt.Errorf("%w: %s", apperrors.ErrInternal, pqErr.Message)
	}
	log.Error("search query failed", "error", err)
	return fmt.Errorf("%w: search on %q: %v", apperrors.ErrUnavailable, target.Name, err)
}

// isBackendFailure reports whether err says something about database health.
// Errors PostgreSQL raised about the statement itself (syntax, data, or
// undefined objects) leave the breaker alone.
func isBackendFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "42":
			return false
		}
	}
	return true
}
