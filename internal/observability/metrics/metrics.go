// Package metrics registers Prometheus metrics for dispatch and
// reconciliation runs. Helpers are nil-guarded so packages can record
// metrics without caring whether Init ran (tests never call it).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "bee_console_"

	resultSuccess = "success"
	resultFailed  = "failed"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	uploadsTotal prometheus.Counter

	dispatchBatches *prometheus.CounterVec
	dispatchRows    *prometheus.CounterVec

	reconcileBatches *prometheus.CounterVec
	statusRows       *prometheus.CounterVec

	remoteLatency *prometheus.HistogramVec

	reportExports *prometheus.CounterVec
)

// Init registers all metrics exactly once.
func Init() {
	registerOnce.Do(func() {
		uploadsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "uploads_total",
				Help: "Total accepted identifier uploads",
			},
		)

		dispatchBatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dispatch_batches_total",
				Help: "Total command dispatch batches by result",
			},
			[]string{"result"},
		)
		dispatchRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dispatch_rows_total",
				Help: "Total per-identifier command results by status",
			},
			[]string{"status"},
		)

		reconcileBatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconcile_batches_total",
				Help: "Total status reconciliation batches by result",
			},
			[]string{"result"},
		)
		statusRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "status_rows_total",
				Help: "Total status rows by counter bucket",
			},
			[]string{"bucket"},
		)

		remoteLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "remote_call_latency_seconds",
				Help:    "Fleet API call latency by endpoint and result",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "result"},
		)

		reportExports = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_exports_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			uploadsTotal,
			dispatchBatches,
			dispatchRows,
			reconcileBatches,
			statusRows,
			remoteLatency,
			reportExports,
		)
	})
}

// IncUpload counts an accepted upload.
func IncUpload() {
	if uploadsTotal != nil {
		uploadsTotal.Inc()
	}
}

// IncDispatchBatch counts one dispatched batch by result.
func IncDispatchBatch(result string) {
	if result == "" {
		result = "unknown"
	}
	if dispatchBatches != nil {
		dispatchBatches.WithLabelValues(result).Inc()
	}
}

// AddDispatchRows counts emitted command result rows by status.
func AddDispatchRows(status string, count int) {
	if count <= 0 {
		return
	}
	if status == "" {
		status = "unknown"
	}
	if dispatchRows != nil {
		dispatchRows.WithLabelValues(status).Add(float64(count))
	}
}

// IncReconcileBatch counts one reconciliation batch by result.
func IncReconcileBatch(result string) {
	if result == "" {
		result = "unknown"
	}
	if reconcileBatches != nil {
		reconcileBatches.WithLabelValues(result).Inc()
	}
}

// AddStatusRows counts status rows in their counter bucket.
func AddStatusRows(bucket string, count int) {
	if count <= 0 {
		return
	}
	if bucket == "" {
		bucket = "unknown"
	}
	if statusRows != nil {
		statusRows.WithLabelValues(bucket).Add(float64(count))
	}
}

// ObserveRemoteCall records a fleet API call duration.
func ObserveRemoteCall(endpoint, result string, duration time.Duration) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if remoteLatency != nil {
		remoteLatency.WithLabelValues(endpoint, result).Observe(duration.Seconds())
	}
}

// IncReportExport counts a rendered report by format and result.
func IncReportExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExports != nil {
		reportExports.WithLabelValues(format, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultFailed  = resultFailed
	ResultError   = resultError
)
