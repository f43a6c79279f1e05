// Package health runs dependency probes for liveness and readiness
// endpoints. A failing critical dependency marks the service down; a failing
// optional one only degrades it.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the health state of a component or the system overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

const (
	defaultCheckTimeout = 2 * time.Second
	maxConcurrentChecks = 8
)

// Pinger is anything with a context-aware Ping, e.g. the postgres and redis
// clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ComponentHealth holds the result of a single component check.
type ComponentHealth struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type check struct {
	name     string
	pinger   Pinger
	critical bool
}

// Checker holds registered dependencies and probes them on demand.
type Checker struct {
	mu      sync.RWMutex
	checks  []check
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker creates an empty Checker. A non-positive timeout selects the
// default per-check timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &Checker{
		timeout: timeout,
		logger:  slog.Default().With("component", "health"),
	}
}

// Register adds a named dependency. Registering a name twice replaces the
// earlier entry.
func (c *Checker) Register(name string, p Pinger, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i] = check{name: name, pinger: p, critical: critical}
			return
		}
	}
	c.checks = append(c.checks, check{name: name, pinger: p, critical: critical})
	sort.Slice(c.checks, func(i, j int) bool { return c.checks[i].name < c.checks[j].name })
}

// Run probes all dependencies concurrently and aggregates the results.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]check(nil), c.checks...)
	c.mu.RUnlock()

	results := make([]ComponentHealth, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChecks)
	for i, ch := range checks {
		i, ch := i, ch
		g.Go(func() error {
			results[i] = c.probe(gctx, ch)
			return nil
		})
	}
	g.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, ch := range checks {
		result := results[i]
		report.Components[ch.name] = result
		if result.Status != StatusDown {
			continue
		}
		if ch.critical {
			report.Status = StatusDown
		} else if report.Status == StatusUp {
			report.Status = StatusDegraded
		}
	}
	return report
}

func (c *Checker) probe(ctx context.Context, ch check) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	err := ch.pinger.Ping(ctx)
	result := ComponentHealth{
		Status:   StatusUp,
		Critical: ch.critical,
		Latency:  time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		result.Status = StatusDown
		result.Message = err.Error()
		c.logger.Warn("health check failed", "dependency", ch.name, "error", err)
	}
	return result
}

// LiveHandler returns an HTTP handler for liveness probes.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
		})
	}
}

// ReadyHandler returns an HTTP handler for readiness probes. Degraded still
// counts as ready.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}
