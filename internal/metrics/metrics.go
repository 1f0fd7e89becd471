package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exposed on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	Lifecycle       *prometheus.CounterVec
	AnalyticsEvents *prometheus.CounterVec
	PushDeliveries  *prometheus.CounterVec
	CrossPosts      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Lifecycle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "push",
			Name:      "lifecycle_total",
			Help:      "Subscribe and unsubscribe outcomes by operation and state.",
		}, []string{"op", "state"}),
		AnalyticsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "analytics",
			Name:      "events_total",
			Help:      "Analytics events logged, by event name and error name.",
		}, []string{"event", "name"}),
		PushDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "push",
			Name:      "deliveries_total",
			Help:      "Web push deliveries by result.",
		}, []string{"result"}),
		CrossPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "crosspost",
			Name:      "posts_total",
			Help:      "Social cross-posts by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Lifecycle,
		m.AnalyticsEvents,
		m.PushDeliveries,
		m.CrossPosts,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
