// Package metrics provides Prometheus collectors for snowlink handlers.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("native_query")
//	resp, err := h.NativeQuery(ctx, sql)
//	if err == nil {
//		metrics.ObserveQuery("analytics", metrics.KindNative, string(resp.Type), timer.Stop())
//	}
//
// All collectors register with the default Prometheus registry on package
// initialization and are safe for concurrent use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query kinds used as the "kind" label.
const (
	KindNative  = "native"
	KindAST     = "ast"
	KindTables  = "tables"
	KindColumns = "columns"
	KindCheck   = "check"
)

var (
	// QueriesTotal counts executed queries.
	// Labels: handler, kind (native/ast/tables/columns), result (table/ok/error)
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snowlink_queries_total",
			Help: "Total number of queries executed by handlers",
		},
		[]string{"handler", "kind", "result"},
	)

	// QueryLatency tracks query latency in seconds.
	QueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snowlink_query_latency_seconds",
			Help:    "Query latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"handler", "kind"},
	)

	// ConnectAttempts counts driver connection attempts.
	// Labels: handler, status (success/failure)
	ConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snowlink_connect_attempts_total",
			Help: "Total number of warehouse connection attempts",
		},
		[]string{"handler", "status"},
	)

	// ActiveConnections is 1 while a handler holds an open connection.
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snowlink_active_connections",
			Help: "Number of open warehouse connections",
		},
		[]string{"handler"},
	)

	// RowsReturned counts rows delivered in TABLE responses.
	RowsReturned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snowlink_rows_returned_total",
			Help: "Total number of rows returned in table responses",
		},
		[]string{"handler"},
	)

	// FallbackFetches counts statements whose results were read row by row
	// because columnar batches were not available.
	FallbackFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snowlink_fallback_fetches_total",
			Help: "Total number of row-record fallback fetches",
		},
		[]string{"handler"},
	)

	// MemoryGuardTrips counts queries aborted by the large-result guard.
	MemoryGuardTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snowlink_memory_guard_trips_total",
			Help: "Total number of queries aborted because the result would not fit in memory",
		},
		[]string{"handler"},
	)
)

// ObserveQuery records a finished query.
func ObserveQuery(handler, kind, result string, d time.Duration) {
	QueriesTotal.WithLabelValues(handler, kind, result).Inc()
	QueryLatency.WithLabelValues(handler, kind).Observe(d.Seconds())
}

// ObserveConnect records a connection attempt.
func ObserveConnect(handler string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	ConnectAttempts.WithLabelValues(handler, status).Inc()
}

// SetConnected flips the active-connection gauge for a handler.
func SetConnected(handler string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	ActiveConnections.WithLabelValues(handler).Set(v)
}

// Recorder records the metrics of one handler instance. A disabled
// Recorder, or a nil one, records nothing.
type Recorder struct {
	handler string
	enabled bool
}

// NewRecorder returns a Recorder labelling samples with handler.
func NewRecorder(handler string, enabled bool) *Recorder {
	return &Recorder{handler: handler, enabled: enabled}
}

// Enabled reports whether samples are recorded.
func (r *Recorder) Enabled() bool {
	return r != nil && r.enabled
}

// Query records a finished query of the given kind.
func (r *Recorder) Query(kind, result string, d time.Duration) {
	if r.Enabled() {
		ObserveQuery(r.handler, kind, result, d)
	}
}

// Connect records a connection attempt.
func (r *Recorder) Connect(err error) {
	if r.Enabled() {
		ObserveConnect(r.handler, err)
	}
}

// Connected flips the active-connection gauge.
func (r *Recorder) Connected(connected bool) {
	if r.Enabled() {
		SetConnected(r.handler, connected)
	}
}

// Rows adds n returned rows.
func (r *Recorder) Rows(n int) {
	if r.Enabled() {
		RowsReturned.WithLabelValues(r.handler).Add(float64(n))
	}
}

// FallbackFetch counts one row-record fallback.
func (r *Recorder) FallbackFetch() {
	if r.Enabled() {
		FallbackFetches.WithLabelValues(r.handler).Inc()
	}
}

// MemoryGuardTrip counts one query aborted by the memory guard.
func (r *Recorder) MemoryGuardTrip() {
	if r.Enabled() {
		MemoryGuardTrips.WithLabelValues(r.handler).Inc()
	}
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It may be called
// repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
