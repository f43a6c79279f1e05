// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Redis, Kafka, Search, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig bounds API requests per client address.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds the brokers and topic used for search analytics.
type KafkaConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Brokers         []string `yaml:"brokers"`
	AnalyticsTopic  string   `yaml:"analyticsTopic"`
	AnalyticsBuffer int      `yaml:"analyticsBuffer"`
}

// SearchConfig holds the query parser settings, result limits and the
// tables that can be searched.
type SearchConfig struct {
	Wildcard       string         `yaml:"wildcard"`
	EmailsAsTokens bool           `yaml:"emailsAsTokens"`
	Strict         bool           `yaml:"strict"`
	Phrases        bool           `yaml:"phrases"`
	Negation       string         `yaml:"negation"`
	AndKeyword     string         `yaml:"andKeyword"`
	OrKeyword      string         `yaml:"orKeyword"`
	MaxDepth       int            `yaml:"maxDepth"`
	MaxTerms       int            `yaml:"maxTerms"`
	Regconfig      string         `yaml:"regconfig"`
	DefaultLimit   int            `yaml:"defaultLimit"`
	MaxResults     int            `yaml:"maxResults"`
	QueryTimeout   time.Duration  `yaml:"queryTimeout"`
	Targets        []TargetConfig `yaml:"targets"`
}

// TargetConfig describes one table with a tsvector column.
type TargetConfig struct {
	Name      string   `yaml:"name"`
	Schema    string   `yaml:"schema"`
	Table     string   `yaml:"table"`
	Vector    string   `yaml:"vector"`
	Regconfig string   `yaml:"regconfig"`
	Columns   []string `yaml:"columns"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first search setting the service cannot run with.
func (c *Config) Validate() error {
	if rl := c.Server.RateLimit; rl.Enabled && (rl.Requests < 1 || rl.Window <= 0) {
		return fmt.Errorf("server.rateLimit needs positive requests and window when enabled")
	}
	s := c.Search
	if s.Negation != "" && utf8.RuneCountInString(s.Negation) != 1 {
		return fmt.Errorf("search.negation must be a single character, got %q", s.Negation)
	}
	if s.DefaultLimit < 1 || s.MaxResults < 1 {
		return fmt.Errorf("search.defaultLimit and search.maxResults must be positive")
	}
	if s.DefaultLimit > s.MaxResults {
		return fmt.Errorf("search.defaultLimit (%d) exceeds search.maxResults (%d)", s.DefaultLimit, s.MaxResults)
	}
	seen := make(map[string]struct{}, len(s.Targets))
	for i, t := range s.Targets {
		if t.Name == "" || t.Table == "" {
			return fmt.Errorf("search.targets[%d]: name and table are required", i)
		}
		if strings.ContainsAny(t.Name, ": \t") {
			return fmt.Errorf("search.targets[%d]: name %q must not contain ':' or whitespace", i, t.Name)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("search.targets[%d]: duplicate target name %q", i, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Requests: 600,
				Window:   time.Minute,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "pgsearchable",
			User:            "pgsearchable",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:         []string{"localhost:9092"},
			AnalyticsTopic:  "search-analytics",
			AnalyticsBuffer: 10000,
		},
		Search: SearchConfig{
			Wildcard:     ":*",
			Negation:     "-",
			AndKeyword:   "and",
			OrKeyword:    "or",
			MaxDepth:     32,
			MaxTerms:     256,
			Regconfig:    "pg_catalog.english",
			DefaultLimit: 20,
			MaxResults:   100,
			QueryTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads PGS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PGS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PGS_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit.Enabled = n > 0
			cfg.Server.RateLimit.Requests = n
		}
	}
	if v := os.Getenv("PGS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("PGS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("PGS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("PGS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("PGS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("PGS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("PGS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PGS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PGS_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("PGS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PGS_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("PGS_SEARCH_REGCONFIG"); v != "" {
		cfg.Search.Regconfig = v
	}
	if v := os.Getenv("PGS_SEARCH_STRICT"); v != "" {
		if strict, err := strconv.ParseBool(v); err == nil {
			cfg.Search.Strict = strict
		}
	}
	if v := os.Getenv("PGS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PGS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
