// Package metrics provides Prometheus metrics for slkv
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for an slkv environment, registered
// in its own Registry so several environments can coexist in one process.
// There is no bundled HTTP exporter: network access is out of scope for
// this library, so a host process that wants /metrics serves Registry
// with its own handler.
type Metrics struct {
	Registry *prometheus.Registry

	// Transaction metrics
	CommitsTotal   prometheus.Counter
	AbortsTotal    prometheus.Counter
	CommitDuration prometheus.Histogram
	ActiveReaders  prometheus.Gauge
	WriteLockWait  prometheus.Histogram

	// Page store metrics
	PagesAllocatedTotal prometheus.Counter
	PagesFreedTotal     prometheus.Counter
	PagesReusedTotal    prometheus.Counter
	FreeListLength      prometheus.Gauge
	EnvSizeBytes        prometheus.Gauge

	// Tree shape metrics
	SplitsTotal    prometheus.Counter
	MergesTotal    prometheus.Counter
	OverflowChains prometheus.Counter

	// Operation counters
	GetsTotal  *prometheus.CounterVec
	PutsTotal  prometheus.Counter
	DelsTotal  prometheus.Counter
	ForksTotal prometheus.Counter
}

// NewMetrics creates all Prometheus metrics and registers them in a new
// Registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{Registry: reg}
	// Shadows the package so every promauto.New* call below registers in reg.
	promauto := promauto.With(reg)

	m.CommitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_commits_total",
		Help: "Total number of write transactions committed",
	})

	m.AbortsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_aborts_total",
		Help: "Total number of write transactions dropped without committing",
	})

	m.CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slkv_commit_duration_seconds",
		Help:    "Duration of write transaction commits in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
	})

	m.ActiveReaders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slkv_active_readers",
		Help: "Number of currently open read transactions",
	})

	m.WriteLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slkv_write_lock_wait_seconds",
		Help:    "Time spent waiting to acquire the single writer lock",
		Buckets: prometheus.DefBuckets,
	})

	m.PagesAllocatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_pages_allocated_total",
		Help: "Total number of pages bump-allocated (never reused from the free list)",
	})

	m.PagesFreedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_pages_freed_total",
		Help: "Total number of pages released to the free list",
	})

	m.PagesReusedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_pages_reused_total",
		Help: "Total number of pages reused from the free list",
	})

	m.FreeListLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slkv_free_list_length",
		Help: "Approximate number of pages currently on the persistent free list",
	})

	m.EnvSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slkv_env_size_bytes",
		Help: "Fixed size of the backing file in bytes",
	})

	m.SplitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_page_splits_total",
		Help: "Total number of page splits performed during put()",
	})

	m.MergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_page_merges_total",
		Help: "Total number of page merges performed during delete()",
	})

	m.OverflowChains = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_overflow_chains_total",
		Help: "Total number of overflow value chains created",
	})

	m.GetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slkv_gets_total",
			Help: "Total number of Get calls by hit/miss",
		},
		[]string{"result"},
	)

	m.PutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_puts_total",
		Help: "Total number of Put calls",
	})

	m.DelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_dels_total",
		Help: "Total number of Del calls",
	})

	m.ForksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slkv_forks_total",
		Help: "Total number of Fork calls",
	})

	return m
}

// RecordCommit records a completed write transaction.
func (m *Metrics) RecordCommit(duration time.Duration, dirtyPages, freedPages int) {
	m.CommitsTotal.Inc()
	m.CommitDuration.Observe(duration.Seconds())
	m.PagesFreedTotal.Add(float64(freedPages))
}

// RecordAbort records a write transaction dropped without committing.
func (m *Metrics) RecordAbort() {
	m.AbortsTotal.Inc()
}
