package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/resilience"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
	defaultBufferSize    = 10000
	shutdownFlushTimeout = 5 * time.Second
)

// Publisher ships a batch of events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// CollectorConfig sizes the in-memory buffer and batching.
type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	Retry         resilience.RetryConfig
}

// Collector accepts events from request goroutines without blocking and
// publishes them from a single background loop.
type Collector struct {
	publisher Publisher
	cfg       CollectorConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger

	events    chan SearchEvent
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewCollector builds a Collector. m may be nil.
func NewCollector(publisher Publisher, cfg CollectorConfig, m *metrics.Metrics) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	return &Collector{
		publisher: publisher,
		cfg:       cfg,
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
		events:    make(chan SearchEvent, cfg.BufferSize),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. Cancelling ctx stops intake and flushes
// what is buffered.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", c.cfg.BufferSize,
		"batch_size", c.cfg.BatchSize,
		"flush_interval", c.cfg.FlushInterval,
	)
}

// Track enqueues an event. It never blocks; when the buffer is full or the
// collector is closed the event is dropped and false is returned.
func (c *Collector) Track(event SearchEvent) bool {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Classify()

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.count("dropped", 1)
		return false
	}
	select {
	case c.events <- event:
		c.count("tracked", 1)
		return true
	default:
		c.count("dropped", 1)
		return false
	}
}

// Close stops intake and waits for the publish loop to drain.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.events)
		c.mu.Unlock()
	})
	<-c.done
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.cfg.BatchSize)
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				c.shutdownFlush(batch)
				return
			}
			batch = append(batch, kafka.Event{Key: event.Target, Value: event})
			if len(batch) >= c.cfg.BatchSize {
				c.publish(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				c.publish(ctx, batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			go c.Close()
			for event := range c.events {
				batch = append(batch, kafka.Event{Key: event.Target, Value: event})
			}
			c.shutdownFlush(batch)
			return
		}
	}
}

func (c *Collector) shutdownFlush(batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()
	c.publish(ctx, batch)
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	err := resilience.Retry(ctx, "analytics-publish", c.cfg.Retry, func(ctx context.Context) error {
		return c.publisher.PublishBatch(ctx, batch)
	})
	if err != nil {
		c.count("failed", len(batch))
		c.logger.Error("analytics batch dropped", "events", len(batch), "error", err)
		return
	}
	c.count("published", len(batch))
	c.logger.Debug("analytics batch published", "events", len(batch))
}

func (c *Collector) count(status string, n int) {
	if c.metrics != nil {
		c.metrics.AnalyticsEventsTotal.WithLabelValues(status).Add(float64(n))
	}
}
