// Package metrics provides performance tracking for blockstream operators
// using Prometheus metrics.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("NullableAdapter")
//	timer := metrics.NewTimer()
//	rec, err := op.Next(ctx)
//	collector.ObserveBatch(rec.NumRows(), timer.Stop())
//
// All metrics are registered once on the default Prometheus registry and are
// safe for concurrent use. Collectors only bind label values.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector binds the package metrics to one operator kind.
type Collector struct {
	operator string
	batches  prometheus.Counter
	rows     prometheus.Counter
	latency  prometheus.Observer
}

// NewCollector creates a collector labelled with the operator name.
func NewCollector(operator string) *Collector {
	return &Collector{
		operator: operator,
		batches:  BatchesProduced.WithLabelValues(operator),
		rows:     RowsProduced.WithLabelValues(operator),
		latency:  PullLatency.WithLabelValues(operator),
	}
}

// ObserveBatch records one produced batch.
func (c *Collector) ObserveBatch(rows int64, d time.Duration) {
	c.batches.Inc()
	c.rows.Add(float64(rows))
	c.latency.Observe(float64(d.Nanoseconds()))
}

// ColumnAction counts a column transformed with the named action.
func (c *Collector) ColumnAction(action string) {
	ColumnActions.WithLabelValues(action).Inc()
}

// NullViolation counts a batch rejected for nulls in a non-nullable column.
func (c *Collector) NullViolation() {
	NullViolations.WithLabelValues(c.operator).Inc()
}

var (
	// BatchesProduced counts batches returned by operators.
	// Labels: operator (operator kind)
	BatchesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockstream_batches_total",
			Help: "Total number of batches produced by stream operators",
		},
		[]string{"operator"},
	)

	// RowsProduced counts rows returned by operators.
	RowsProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockstream_rows_total",
			Help: "Total number of rows produced by stream operators",
		},
		[]string{"operator"},
	)

	// ColumnActions counts per-column transformations applied by the nullable adapter.
	// Labels: action (TO_NULLABLE, TO_ORDINARY)
	ColumnActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockstream_column_actions_total",
			Help: "Total number of column transformations applied",
		},
		[]string{"action"},
	)

	// NullViolations counts batches rejected because a null reached a non-nullable column.
	NullViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockstream_null_violations_total",
			Help: "Total number of batches rejected for nulls in non-nullable columns",
		},
		[]string{"operator"},
	)

	// PullLatency tracks the distribution of pull latencies in nanoseconds.
	PullLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "blockstream_pull_latency_nanoseconds",
			Help: "Time spent producing one batch in nanoseconds",
			Buckets: []float64{
				1000,  // 1μs - pass-through
				10000, // 10μs
				1e5,   // 100μs
				1e6,   // 1ms
				1e7,   // 10ms
				1e8,   // 100ms - upstream I/O
				1e9,   // 1s
			},
		},
		[]string{"operator"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. It can be called
// multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
