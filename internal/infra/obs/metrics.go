package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments of the service.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec

	MessagesSent       prometheus.Counter
	SendFailures       prometheus.Counter
	SubscriptionErrors prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shamsa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shamsa",
			Subsystem: "chat",
			Name:      "messages_sent_total",
			Help:      "Messages durably persisted by the compose pipeline.",
		}),
		SendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shamsa",
			Subsystem: "chat",
			Name:      "send_failures_total",
			Help:      "Sends rejected by validation, single-flight or the store.",
		}),
		SubscriptionErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shamsa",
			Subsystem: "chat",
			Name:      "subscription_errors_total",
			Help:      "Live-query failures surfaced to sync consumers.",
		}),
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil || route == "" {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the scrape endpoint for this registry only.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
