package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/search"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/search/cache"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/search/handler"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "targets", len(cfg.Search.Targets))

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("postgres connected", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)

	targets, err := search.TargetsFromConfig(cfg.Search)
	if err != nil {
		slog.Error("invalid search targets", "error", err)
		os.Exit(1)
	}
	parser := search.ParserFromConfig(cfg.Search)
	breaker := resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{
		OnStateChange: func(name string, from, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	searcher := search.NewSearcher(
		db,
		search.NewBuilder(parser, cfg.Search.DefaultLimit, cfg.Search.MaxResults),
		targets,
		breaker,
		cfg.Search.QueryTimeout,
	)

	checker := health.NewChecker(0)
	checker.Register("postgres", db, true)

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			checker.Register("redis", redisClient, false)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tracker handler.Tracker
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.CollectorConfig{
			BufferSize: cfg.Kafka.AnalyticsBuffer,
		}, m)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		slog.Info("search analytics enabled", "topic", cfg.Kafka.AnalyticsTopic)
	}

	h := handler.New(searcher, parser, queryCache, tracker, m)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mw := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Metrics(m),
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		limiter := ratelimit.New(rl.Requests, rl.Window)
		go limiter.Run(ctx)
		mw = append(mw, middleware.RateLimit(limiter))
		slog.Info("rate limiting enabled", "requests", rl.Requests, "window", rl.Window)
	}
	mw = append(mw, middleware.Timeout(cfg.Server.WriteTimeout))
	chain := middleware.Chain(mux, mw...)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
