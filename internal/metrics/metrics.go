// Package metrics provides Prometheus metrics for workspace file operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperbase_fs_operations_total",
			Help: "Total number of workspace file operations",
		},
		[]string{"operation", "status"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paperbase_fs_operation_duration_seconds",
			Help:    "Workspace file operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	securityRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperbase_fs_security_rejections_total",
			Help: "Total number of paths rejected by validation",
		},
		[]string{"reason"},
	)

	treeNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paperbase_fs_tree_nodes",
			Help: "Node count of the most recent full tree listing",
		},
	)
)

// ObserveOperation records one completed file operation.
func ObserveOperation(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	operationsTotal.WithLabelValues(operation, status).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveSecurityRejection records one validation rejection by reason code.
func ObserveSecurityRejection(reason string) {
	securityRejections.WithLabelValues(reason).Inc()
}

// SetTreeNodes records the size of the latest full tree listing.
func SetTreeNodes(n int) {
	treeNodes.Set(float64(n))
}

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a metrics HTTP server on the given address.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
