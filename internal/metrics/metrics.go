// Package metrics registers the Prometheus collectors every service exposes
// on GET /metrics, grounded on autovant-trading-bot's execution_service.go
// GaugeVec/HistogramVec/CounterVec registration pattern.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the collectors shared by every service; workers that
// don't use a given collector simply never touch it.
type Registry struct {
	StreamPending  *prometheus.GaugeVec
	HandlerLatency *prometheus.HistogramVec
	HandlerErrors  *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	DLQDepth       *prometheus.GaugeVec
	IntegrationOut *prometheus.CounterVec

	reg *prometheus.Registry
}

// New builds and registers a fresh collector set against its own registry
// so independent processes in tests never collide on the global default
// registry.
func New() *Registry {
	r := &Registry{
		StreamPending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streamPending",
			Help: "entries delivered but not yet acked, per stream/group",
		}, []string{"stream", "group"}),
		HandlerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stream_handler_latency_seconds",
			Help:    "stream handler processing latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"stream", "group"}),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_handler_errors_total",
			Help: "handler invocations that returned an error",
		}, []string{"stream", "group", "kind"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "path", "status"}),
		DLQDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dlq_depth",
			Help: "entries currently parked in a dead-letter stream",
		}, []string{"stream"}),
		IntegrationOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "integration_dispatch_total",
			Help: "integration broker dispatch outcomes per target",
		}, []string{"target", "result"}),
		reg: prometheus.NewRegistry(),
	}
	r.reg.MustRegister(r.StreamPending, r.HandlerLatency, r.HandlerErrors, r.HTTPRequests, r.DLQDepth, r.IntegrationOut)
	return r
}

// Handler returns the gin-compatible /metrics endpoint serving this
// registry's collectors.
func (r *Registry) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
