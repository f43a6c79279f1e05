package search

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/resilience"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "pgsearchable_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "pgsearchable"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func createArticles(t *testing.T, db *postgres.Client) Target {
	t.Helper()
	ctx := context.Background()
	table := fmt.Sprintf("search_test_%d", time.Now().UnixNano())
	quoted := pq.QuoteIdentifier(table)
	_, err := db.DB.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (
		id serial PRIMARY KEY,
		name text NOT NULL,
		search_vector tsvector GENERATED ALWAYS AS (to_tsvector('pg_catalog.english', name)) STORED
	)`, quoted))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.DB.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+quoted)
	})
	for _, name := range []string{
		"index",
		"the index is something",
		"Star Wars: A New Hope",
		"Star Trek",
		"john@fastmonkeys.com wrote this",
	} {
		_, err := db.DB.ExecContext(ctx, "INSERT INTO "+quoted+" (name) VALUES ($1)", name)
		require.NoError(t, err)
	}
	return Target{Name: "articles", Table: table, Vector: "search_vector", Regconfig: "pg_catalog.english", Columns: []string{"id", "name"}}
}

func TestSearchPostgres(t *testing.T) {
	db := skipIfNoPostgres(t)
	target := createArticles(t, db)
	parser := ParserFromConfig(config.SearchConfig{Wildcard: ":*"})
	breaker := resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{})
	s := NewSearcher(db, NewBuilder(parser, 20, 100), Targets{"articles": target}, breaker, 5*time.Second)

	names := func(r *Result) []string {
		out := make([]string, 0, len(r.Rows))
		for _, row := range r.Rows {
			out = append(out, row["name"].(string))
		}
		return out
	}

	tests := []struct {
		query string
		sort  bool
		want  []string
	}{
		{"star", true, []string{"Star Wars: A New Hope", "Star Trek"}},
		{"star -trek", false, []string{"Star Wars: A New Hope"}},
		{"wars or trek", false, []string{"Star Wars: A New Hope", "Star Trek"}},
		{"(wars or trek) -hope", false, []string{"Star Trek"}},
		{"ind", false, []string{"index", "the index is something"}},
		{"', DROP TABLE --", false, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			result, err := s.Search(context.Background(), Request{Target: "articles", Query: tt.query, Sort: tt.sort})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, names(result))
		})
	}

	all, err := s.Search(context.Background(), Request{Target: "articles", Query: "!!!"})
	require.NoError(t, err)
	assert.Equal(t, 5, all.Count)
}
