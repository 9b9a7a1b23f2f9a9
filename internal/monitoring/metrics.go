package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kerri-knier/blog/internal/core/domain"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_requests_total",
			Help: "Total number of dispatched requests",
		},
		[]string{"route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blog_request_duration_seconds",
			Help:    "Duration of dispatched requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	ActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "blog_active_requests",
			Help: "Number of requests being handled",
		},
	)

	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_store_operations_total",
			Help: "Total number of post store operations by result",
		},
		[]string{"op", "result"},
	)

	PostEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_post_events_total",
			Help: "Total number of consumed post events by subject and result",
		},
		[]string{"subject", "result"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, ActiveRequests, StoreOperations, PostEvents)
}

// ObserveStoreOperation compte une opération du store ; result vaut "ok"
// ou le Kind de l'erreur.
func ObserveStoreOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
	}
	StoreOperations.WithLabelValues(op, result).Inc()
}
