package search

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/searchquery"
	apperrors "github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/resilience"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedConn answers every query with the configured response.
type scriptedConn struct {
	mu      sync.Mutex
	columns []string
	rows    [][]driver.Value
	err     error
	block   bool
	queries []string
	args    [][]driver.NamedValue
}

func (c *scriptedConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements not supported")
}
func (c *scriptedConn) Close() error              { return nil }
func (c *scriptedConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

func (c *scriptedConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.args = append(c.args, args)
	block, err := c.block, c.err
	c.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &scriptedRows{columns: c.columns, rows: c.rows}, nil
}

type scriptedRows struct {
	columns []string
	rows    [][]driver.Value
	i       int
}

func (r *scriptedRows) Columns() []string { return r.columns }
func (r *scriptedRows) Close() error      { return nil }
func (r *scriptedRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}

type scriptedConnector struct{ conn *scriptedConn }

func (c scriptedConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c scriptedConnector) Driver() driver.Driver                        { return c }
func (c scriptedConnector) Open(string) (driver.Conn, error)             { return c.conn, nil }

func newScriptedDB(t *testing.T, conn *scriptedConn) *sql.DB {
	t.Helper()
	db := sql.OpenDB(scriptedConnector{conn: conn})
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSearcher(db Querier, breaker *resilience.CircuitBreaker, timeout time.Duration) *Searcher {
	return NewSearcher(db, NewBuilder(searchquery.New(), 20, 100), Targets{"articles": articles}, breaker, timeout)
}

func TestSearchScansRows(t *testing.T) {
	conn := &scriptedConn{
		columns: []string{"id", "name"},
		rows: [][]driver.Value{
			{int64(1), []byte("Star Wars")},
			{int64(2), "Star Trek"},
		},
	}
	s := newTestSearcher(newScriptedDB(t, conn), nil, time.Second)

	result, err := s.Search(context.Background(), Request{Target: "articles", Query: "star", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "articles", result.Target)
	assert.Equal(t, "star:*", result.Compiled)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 5, result.Limit)
	assert.Equal(t, Row{"id": int64(1), "name": "Star Wars"}, result.Rows[0])
	assert.Equal(t, "Star Trek", result.Rows[1]["name"])

	require.Len(t, conn.args, 1)
	assert.Equal(t, "star:*", conn.args[0][1].Value)
}

func TestSearchDefaultsToOnlyTarget(t *testing.T) {
	s := newTestSearcher(newScriptedDB(t, &scriptedConn{columns: []string{"id"}}), nil, 0)
	result, err := s.Search(context.Background(), Request{Query: "star"})
	require.NoError(t, err)
	assert.Equal(t, "articles", result.Target)
	assert.Empty(t, result.Rows)
}

func TestSearchUnknownTarget(t *testing.T) {
	s := newTestSearcher(newScriptedDB(t, &scriptedConn{}), nil, 0)
	_, err := s.Search(context.Background(), Request{Target: "books", Query: "star"})
	assert.ErrorIs(t, err, apperrors.ErrUnknownTarget)

	s.targets["books"] = Target{Name: "books", Table: "book", Vector: "tsv"}
	_, err = s.Search(context.Background(), Request{Query: "star"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSearchTimeout(t *testing.T) {
	s := newTestSearcher(newScriptedDB(t, &scriptedConn{block: true}), nil, 10*time.Millisecond)
	_, err := s.Search(context.Background(), Request{Target: "articles", Query: "star"})
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestSearchBreaker(t *testing.T) {
	conn := &scriptedConn{err: errors.New("connection refused")}
	breaker := resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	s := newTestSearcher(newScriptedDB(t, conn), breaker, time.Second)
	req := Request{Target: "articles", Query: "star"}

	_, err := s.Search(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, resilience.StateOpen, breaker.State())

	_, err = s.Search(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Len(t, conn.queries, 1)
}

func TestSearchStatementErrorKeepsBreakerClosed(t *testing.T) {
	conn := &scriptedConn{err: &pq.Error{Code: "42P01", Message: `relation "article" does not exist`}}
	breaker := resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{FailureThreshold: 1})
	s := newTestSearcher(newScriptedDB(t, conn), breaker, time.Second)

	_, err := s.Search(context.Background(), Request{Target: "articles", Query: "star"})
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	assert.Contains(t, err.Error(), "misconfigured")
	assert.Equal(t, resilience.StateClosed, breaker.State())
}

func TestTargetsFromConfigDefaults(t *testing.T) {
	targets, err := TargetsFromConfig(testSearchConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"articles", "users"}, targets.Names())
	assert.Equal(t, DefaultVector, targets["users"].Vector)
	assert.Equal(t, "pg_catalog.english", targets["users"].Regconfig)
	assert.Equal(t, "simple", targets["articles"].Regconfig)
}
