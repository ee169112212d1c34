// Package metrics defines the Prometheus collectors for the write path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WriterAcquisitions counts writer checkouts by outcome (ok, busy, denied, missing).
	WriterAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldb_writer_acquisitions_total",
			Help: "Total number of table writer checkout attempts",
		},
		[]string{"outcome"},
	)
	// WriterWait is the time spent waiting for a table writer.
	WriterWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coldb_writer_wait_seconds",
			Help:    "Time spent waiting to check out a table writer",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
	// RowsCommitted counts rows made visible by commits, per table.
	RowsCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldb_rows_committed_total",
			Help: "Total number of rows committed",
		},
		[]string{"table"},
	)
	// InsertExecutions counts insert operation executions by outcome
	// (ok, stale_schema, writer_unavailable, bind_error, append_error, error).
	InsertExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldb_insert_executions_total",
			Help: "Total number of insert operation executions",
		},
		[]string{"outcome"},
	)
)

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
