package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/mcdev12/liveballot/go/internal/models"
)

// MetricsCollector records publish outcomes
type MetricsCollector interface {
	RecordEventPublished(table string, success bool, duration time.Duration)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventPublished(table string, success bool, duration time.Duration) {}

// TableCounters counts published and failed events per table
type TableCounters struct {
	mu        sync.Mutex
	published map[string]uint64
	failed    map[string]uint64
	slowest   time.Duration
}

func NewTableCounters() *TableCounters {
	return &TableCounters{
		published: make(map[string]uint64),
		failed:    make(map[string]uint64),
	}
}

func (c *TableCounters) RecordEventPublished(table string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		c.published[table]++
	} else {
		c.failed[table]++
	}
	if duration > c.slowest {
		c.slowest = duration
	}
}

// Snapshot is a copy of the counters
type CountersSnapshot struct {
	Published map[string]uint64 `json:"published"`
	Failed    map[string]uint64 `json:"failed"`
	Slowest   time.Duration     `json:"slowest_ns"`
}

func (c *TableCounters) Snapshot() CountersSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := CountersSnapshot{
		Published: make(map[string]uint64, len(c.published)),
		Failed:    make(map[string]uint64, len(c.failed)),
		Slowest:   c.slowest,
	}
	for k, v := range c.published {
		s.Published[k] = v
	}
	for k, v := range c.failed {
		s.Failed[k] = v
	}
	return s
}

// MetricPublisher wraps a Publisher with metrics collection
type MetricPublisher struct {
	publisher Publisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher Publisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, event models.ChangeEvent) error {
	start := time.Now()

	err := p.publisher.Publish(ctx, event)

	p.metrics.RecordEventPublished(event.Table, err == nil, time.Since(start))
	return err
}
