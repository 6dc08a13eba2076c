// Package metrics provides performance tracking and observability for
// Tessera's batch re-chunking pipeline using Prometheus metrics.
//
// # Overview
//
// The metrics package provides:
//   - Prometheus-compatible metrics collection
//   - Pre-defined metrics for batch flow and flush behavior
//   - Memory admission wait tracking
//   - Thread-safe metric recording
//   - Automatic metric registration via promauto
//
// # Basic Usage
//
//	metrics.BatchesIn.WithLabelValues("balancer").Inc()
//	metrics.FlushesTotal.WithLabelValues("squasher", "threshold").Inc()
//
//	timer := prometheus.NewTimer(metrics.AdmissionWaitSeconds)
//	gate.Admit(ctx, bytes)
//	timer.ObserveDuration()
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Flush reason labels used with FlushesTotal.
const (
	FlushReasonThreshold = "threshold"
	FlushReasonSentinel  = "sentinel"
	FlushReasonRestart   = "restart"
)

var (
	// BatchesIn counts batches entering a squashing component.
	// Labels: component (squasher/balancer/deferred_squasher)
	BatchesIn = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_squash_batches_in_total",
			Help: "Total number of batches fed into a squashing component",
		},
		[]string{"component"},
	)

	// BatchesOut counts batches emitted by a squashing component.
	BatchesOut = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_squash_batches_out_total",
			Help: "Total number of batches emitted by a squashing component",
		},
		[]string{"component"},
	)

	// RowsIn counts rows entering a squashing component.
	RowsIn = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_squash_rows_in_total",
			Help: "Total number of rows fed into a squashing component",
		},
		[]string{"component"},
	)

	// RowsOut counts rows emitted by a squashing component.
	RowsOut = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_squash_rows_out_total",
			Help: "Total number of rows emitted by a squashing component",
		},
		[]string{"component"},
	)

	// FlushesTotal counts flushes by reason.
	// Labels: component, reason (threshold/sentinel/restart)
	FlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_squash_flushes_total",
			Help: "Total number of accumulation flushes",
		},
		[]string{"component", "reason"},
	)

	// PendingBytes tracks bytes currently held in accumulation buffers.
	PendingBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tessera_squash_pending_bytes",
			Help: "Bytes currently accumulated and not yet flushed",
		},
		[]string{"component"},
	)

	// AdmissionWaitSeconds tracks how long callers block in the memory
	// admission gate. The buckets cover the sub-millisecond fast path up
	// to multi-second stalls.
	AdmissionWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tessera_memory_admission_wait_seconds",
			Help:    "Time spent waiting for memory admission",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
	)

	// AdmissionStalls counts admissions that had to wait at least once.
	AdmissionStalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tessera_memory_admission_stalls_total",
			Help: "Number of memory admissions that blocked before proceeding",
		},
	)

	// MemoryUsedBytes mirrors the tracker's current usage.
	MemoryUsedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tessera_memory_used_bytes",
			Help: "Current usage reported by the memory tracker",
		},
	)
)

// Collector provides a component-scoped view over the squash metrics so
// call sites don't repeat label plumbing.
type Collector struct {
	component string
	startTime time.Time
}

// NewCollector creates a metrics collector for one squashing component.
func NewCollector(component string) *Collector {
	return &Collector{component: component, startTime: time.Now()}
}

// ObserveInput records an incoming batch.
func (c *Collector) ObserveInput(rows int) {
	BatchesIn.WithLabelValues(c.component).Inc()
	RowsIn.WithLabelValues(c.component).Add(float64(rows))
}

// ObserveOutput records an emitted batch.
func (c *Collector) ObserveOutput(rows int) {
	BatchesOut.WithLabelValues(c.component).Inc()
	RowsOut.WithLabelValues(c.component).Add(float64(rows))
}

// ObserveFlush records a flush and the reason it happened.
func (c *Collector) ObserveFlush(reason string) {
	FlushesTotal.WithLabelValues(c.component, reason).Inc()
}

// SetPendingBytes updates the accumulation gauge.
func (c *Collector) SetPendingBytes(bytes int64) {
	PendingBytes.WithLabelValues(c.component).Set(float64(bytes))
}

// StartTime returns when the collector was created.
func (c *Collector) StartTime() time.Time {
	return c.startTime
}
