package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	UsersCreated    prometheus.Counter
	Logins          *prometheus.CounterVec
	TokenRefreshes  *prometheus.CounterVec
	AuthRejections  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuditDropped    prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clavis_users_created_total",
			Help: "Total number of users created",
		}),
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clavis_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		TokenRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clavis_token_refreshes_total",
			Help: "Refresh attempts by outcome",
		}, []string{"outcome"}),
		AuthRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clavis_auth_rejections_total",
			Help: "Requests rejected by the auth middleware, by reason",
		}, []string{"reason"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clavis_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clavis_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		}),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(route, status).Observe(elapsed.Seconds())
}
