package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	reconcileRuns   *prometheus.CounterVec // startup reconciliations
	reconcileOps    *prometheus.CounterVec // planned record operations
	watchCycles     *prometheus.CounterVec // drift checks by outcome
	dnsRequests     *prometheus.CounterVec // dns provider requests
	batchDuration   prometheus.Histogram   // time per batch write
	ipLookups       *prometheus.CounterVec // public ip lookups
	ipChanges       prometheus.Counter     // applied ip changes
	badgerRequests  *prometheus.CounterVec // badgerdb requests
	suppressedError prometheus.Counter     // errors collapsed by grouping
}

// Public interface for metrics operations
func (m *Metrics) IncReconcileRun(success bool) {
	m.reconcileRuns.WithLabelValues(boolToResult(success)).Inc()
}

func (m *Metrics) AddReconcileOperations(operation string, count int) {
	if !isValidOperation(operation) || count <= 0 {
		return
	}
	m.reconcileOps.WithLabelValues(operation).Add(float64(count))
}

func (m *Metrics) IncWatchCycle(outcome string) {
	switch outcome {
	case "unchanged", "updated", "failed":
		m.watchCycles.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncDNSRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	m.dnsRequests.WithLabelValues(operation, boolToResult(success)).Inc()
}

func (m *Metrics) ObserveBatchDuration(duration time.Duration) {
	m.batchDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncIPLookup(success bool) {
	m.ipLookups.WithLabelValues(boolToResult(success)).Inc()
}

func (m *Metrics) IncIPChange() {
	m.ipChanges.Inc()
}

func (m *Metrics) IncBadgerRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	m.badgerRequests.WithLabelValues(operation, boolToResult(success)).Inc()
}

func (m *Metrics) IncSuppressedError() {
	m.suppressedError.Inc()
}

// Validation helpers
func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOperation(op string) bool {
	switch op {
	case "create", "read", "update", "batch":
		return true
	}
	return false
}

func New(register bool) *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "dynaflare"

	m := &Metrics{
		registry: registry,

		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Total number of startup reconciliations",
		}, []string{"status"}),

		reconcileOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_operations_total",
			Help:      "Record operations planned by reconciliation",
		}, []string{"operation"}),

		watchCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_cycles_total",
			Help:      "Total drift checks by outcome",
		}, []string{"outcome"}),

		dnsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_requests_total",
			Help:      "Total DNS provider requests",
		}, []string{"operation", "status"}),

		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dns_batch_duration_seconds",
			Help:      "Duration of DNS batch writes in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		ipLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "public_ip_lookups_total",
			Help:      "Total public IP lookups",
		}, []string{"status"}),

		ipChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "public_ip_changes_total",
			Help:      "Public IP changes applied to DNS records",
		}),

		badgerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badgerdb_requests_total",
			Help:      "Total badgerdb requests",
		}, []string{"operation", "status"}),

		suppressedError: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressed_errors_total",
			Help:      "Repeated errors collapsed into a summary line",
		}),
	}

	if register {
		registry.MustRegister(
			m.reconcileRuns,
			m.reconcileOps,
			m.watchCycles,
			m.dnsRequests,
			m.batchDuration,
			m.ipLookups,
			m.ipChanges,
			m.badgerRequests,
			m.suppressedError,
		)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
