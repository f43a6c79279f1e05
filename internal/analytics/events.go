// Package analytics records what users search for. Events are buffered in
// memory and shipped to Kafka in batches; losing events under pressure is
// preferred to slowing down a search request.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventZeroResult EventType = "zero_result"
	EventMalformed  EventType = "malformed_query"
	EventError      EventType = "error"
)

// SearchEvent describes one search request after it completed.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Target    string    `json:"target"`
	Query     string    `json:"query"`
	Compiled  string    `json:"compiled"`
	Terms     []string  `json:"terms,omitempty"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Classify picks the event type from the outcome fields.
func (e *SearchEvent) Classify() {
	switch {
	case e.Type == EventMalformed || e.Type == EventError:
	case e.CacheHit:
		e.Type = EventCacheHit
	case e.Returned == 0:
		e.Type = EventZeroResult
	default:
		e.Type = EventSearch
	}
}
