// Package tracing times the phases of a request as a tree of spans carried
// in the context. Finished trees are written to slog; no exporter is
// involved.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/logger"
)

type contextKey struct{}

// Span is one timed phase.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	attrs    []any
	children []*Span
}

// Start opens a span under the span already in ctx, or a root span whose
// trace ID is the request ID when there is none.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else {
		span.TraceID = logger.RequestID(ctx)
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// FromContext returns the innermost span in ctx, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End records the span duration.
func (s *Span) End() {
	s.mu.Lock()
	s.Duration = time.Since(s.Start)
	s.mu.Unlock()
}

// SetAttr attaches a key-value pair that is logged with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// Timings returns the duration of each direct child by name, in
// milliseconds. Repeated names accumulate.
func (s *Span) Timings() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.children))
	for _, child := range s.children {
		child.mu.Lock()
		out[child.Name] += float64(child.Duration.Microseconds()) / 1000
		child.mu.Unlock()
	}
	return out
}

// Log writes the span and its descendants at debug level.
func (s *Span) Log(log *slog.Logger) {
	s.log(log, "", 0)
}

func (s *Span) log(log *slog.Logger, parent string, depth int) {
	s.mu.Lock()
	attrs := append([]any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"parent", parent,
		"depth", depth,
		"duration_ms", float64(s.Duration.Microseconds()) / 1000,
	}, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	log.Debug("span", attrs...)
	for _, child := range children {
		child.log(log, s.Name, depth+1)
	}
}
