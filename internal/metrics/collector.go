// Package metrics provides in-memory runtime statistics collection,
// mirrored into a Prometheus registry for scraping.
package metrics

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics holds aggregated metrics for a single remote operation.
type OperationMetrics struct {
	Count     int64
	Failures  int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Name        string
	Count       int64
	Failures    int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot represents the collected statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Operations    []OperationSnapshot // sorted by name
	Events        map[string]int64
}

// Operation names for remote calls.
const (
	OpChat           = "chat"
	OpTicketsList    = "tickets_list"
	OpTicketsStats   = "tickets_stats"
	OpTicketsResolve = "tickets_resolve"
	OpTicketsDelete  = "tickets_delete"
	OpAdminMe        = "admin_me"
	OpAdminLogin     = "admin_login"
	OpAdminLogout    = "admin_logout"
	OpAdminActivity  = "admin_activity"
	OpDocsList       = "documents_list"
	OpDocsUpload     = "documents_upload"
	OpDocsDelete     = "documents_delete"
)

// Event names for counters that are not timed.
const (
	EventPoll         = "poll"
	EventPollFailure  = "poll_failure"
	EventAlert        = "alert"
	EventNewTickets   = "new_tickets"
	EventTurnStale    = "turn_stale"
	EventUnauthorized = "unauthorized"
)

// Collector aggregates runtime statistics.
// All methods are thread-safe and safe to call on a nil *Collector.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	events    map[string]int64

	registry *prometheus.Registry
	latency  *prometheus.HistogramVec
	counters *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with its own Prometheus registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "supportdesk",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the support backend.",
		Buckets: []float64{
			0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10, 30,
		},
	}, []string{"operation", "result"})

	counters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "supportdesk",
		Name:      "events_total",
		Help:      "Client-side events such as polls and new ticket alerts.",
	}, []string{"event"})

	reg.MustRegister(latency, counters)

	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		events:    make(map[string]int64),
		registry:  reg,
		latency:   latency,
		counters:  counters,
	}
}

// Registry exposes the Prometheus registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records a successful call.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.RecordCall(op, duration, nil)
}

// RecordCall records timing and outcome for a remote call.
func (c *Collector) RecordCall(op string, duration time.Duration, err error) {
	if c == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	c.latency.WithLabelValues(op, result).Observe(duration.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	if err != nil {
		m.Failures++
	}
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Add increments an event counter by n.
func (c *Collector) Add(event string, n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.counters.WithLabelValues(event).Add(float64(n))

	c.mu.Lock()
	c.events[event] += n
	c.mu.Unlock()
}

// Inc increments an event counter by one.
func (c *Collector) Inc(event string) {
	c.Add(event, 1)
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(name string, m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Name:        name,
		Count:       m.Count,
		Failures:    m.Failures,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{Events: map[string]int64{}}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Events:        make(map[string]int64, len(c.events)),
	}
	for name, m := range c.ops {
		if s := snapshotOp(name, m); s != nil {
			snap.Operations = append(snap.Operations, *s)
		}
	}
	slices.SortFunc(snap.Operations, func(a, b OperationSnapshot) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	for k, v := range c.events {
		snap.Events[k] = v
	}
	return snap
}
