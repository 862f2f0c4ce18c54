package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the receiver's counters on a private registry so tests can
// run servers side by side without double-registration panics.
type metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	dispatches *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Inbound HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_dispatches_total",
			Help: "Webhook dispatches by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.requests, m.dispatches)
	return m
}

func (m *metrics) handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

func (m *metrics) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.requests.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
