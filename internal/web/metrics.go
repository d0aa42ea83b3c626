// metrics.go -- Prometheus request instrumentation.
package web

import (
	"net/http"

	"github.com/isabella232/graphmail/internal/identity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the process registry. A fresh registry per instance keeps
// repeated construction in tests from double-registering collectors.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

// NewMetrics builds the registry with the request counter and a gauge
// tracking the identity cache size.
func NewMetrics(cache *identity.Cache) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graphmail_requests_total",
			Help: "HTTP requests served, by handler, status code, and method.",
		}, []string{"handler", "code", "method"}),
	}
	m.registry.MustRegister(m.requests)
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "graphmail_cached_identities",
		Help: "Authenticated identities currently held in the cache.",
	}, func() float64 { return float64(cache.Len()) }))
	return m
}

// Instrument wraps next, counting completed requests under the handler label.
func (m *Metrics) Instrument(name string, next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(
		m.requests.MustCurryWith(prometheus.Labels{"handler": name}),
		next,
	)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
