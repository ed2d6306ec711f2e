package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the gateway's Prometheus collectors. Each instance
// owns its registry, so tests can construct as many as they like
// without duplicate registration panics.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram

	serviceRequestsTotal   *prometheus.CounterVec
	serviceRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests handled by the gateway",
		}, []string{"method", "endpoint", "status"}),
		requestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		serviceRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "service_requests_total",
			Help: "Total requests forwarded to downstream services",
		}, []string{"service", "status"}),
		serviceRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "service_request_duration_seconds",
			Help:    "Downstream service request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one handled request, proxied or not.
func (m *Metrics) ObserveRequest(method, endpoint string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.requestDuration.Observe(duration.Seconds())
}

// ObserveServiceRequest records one forwarding attempt. Status is the
// downstream HTTP status, or "error" when the service never answered.
func (m *Metrics) ObserveServiceRequest(service, status string, duration time.Duration) {
	m.serviceRequestsTotal.WithLabelValues(service, status).Inc()
	m.serviceRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
}
