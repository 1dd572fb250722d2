package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exported by the services.
type Metrics struct {
	// Storage
	AuditOperations *prometheus.CounterVec // audited writes by table and operation
	AffectedRows    *prometheus.CounterVec // rows touched by bulk update/delete

	// Test execution
	ResultTransitions *prometheus.CounterVec // result status/approval changes

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg, or on the default registerer
// when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AuditOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tcm_audit_operations_total",
				Help: "Audited storage operations by table and operation (create, save, delete, bulk_update, bulk_delete)",
			},
			[]string{"table", "op"},
		),
		AffectedRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tcm_bulk_affected_rows_total",
				Help: "Rows affected by bulk update and bulk soft delete",
			},
			[]string{"table", "op"},
		),
		ResultTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tcm_result_transitions_total",
				Help: "Test result transitions by action",
			},
			[]string{"action"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tcm_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tcm_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// NewNop returns metrics registered on a private registry, for tests and
// tools that do not expose /metrics.
func NewNop() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
