// Package telemetry provides application-level observability for Outstaff.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by the serve command:
//
//	GET http://<host>:<OUTSTAFF_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Time entry writes and approval decisions
//   - Best-effort write failures (activity log, audit log, audit shipping)
//   - Certificate expiry sweeper counters
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/orgs/:org_id/notes)
// rather than the raw request URL so organization and record ids never become labels.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Timesheet metrics.
//
// TimeEntryWritesTotal counts successful create/update/delete operations by op.
// ApprovalDecisionsTotal counts workflow transitions by action (submit, approve, return).
//
// Example PromQL queries:
//   - Approval throughput:  sum by (action) (rate(outstaff_approval_decisions_total[1h]))
var (
	TimeEntryWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outstaff_time_entry_writes_total",
			Help: "Total number of time entry writes, by operation.",
		},
		[]string{"op"},
	)

	ApprovalDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outstaff_approval_decisions_total",
			Help: "Total number of approval workflow transitions, by action.",
		},
		[]string{"action"},
	)
)

// BestEffortWriteFailuresTotal counts fire-and-forget writes that failed, by kind
// (activity_log, audit_log, audit_ship). These never fail the originating request,
// so this counter is the only signal that they are being lost.
//
// Example PromQL queries:
//   - Alert expression:  increase(outstaff_best_effort_write_failures_total[15m]) > 0
var BestEffortWriteFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "outstaff_best_effort_write_failures_total",
		Help: "Total number of failed best-effort writes, by kind.",
	},
	[]string{"kind"},
)

// Certificate sweeper metrics, recorded by the certificate expiry background job.
var (
	CertificatesSweptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outstaff_certificates_swept_total",
			Help: "Total number of certificates moved to a new status by the expiry sweeper, by target status.",
		},
		[]string{"status"},
	)

	CertificateSweepErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outstaff_certificate_sweep_errors_total",
			Help: "Total number of failed certificate expiry sweep cycles.",
		},
	)
)

// DBOpenConnections tracks the number of open connections held by the sql.DB pool.
// It is sampled every 30 seconds by StartDBStatsCollector rather than per-request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits when the database becomes unreachable, which happens when the
// process shuts down and closes the pool.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
