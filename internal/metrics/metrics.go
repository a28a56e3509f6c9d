// Package metrics exposes Prometheus collectors for the HTTP surface and the attendance flow.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"checkclass/internal/domain"
	"checkclass/internal/queue"
)

type Metrics struct {
	requests *prometheus.HistogramVec
	scans    *prometheus.CounterVec
	events   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkclass",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkclass",
			Name:      "qr_scans_total",
			Help:      "QR scans by outcome.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkclass",
			Name:      "events_total",
			Help:      "Domain events published, by type.",
		}, []string{"type"}),
	}
	reg.MustRegister(m.requests, m.scans, m.events)
	return m
}

// Middleware records the latency of every routed request.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// ScanResult names the outcome of a scan for the result label.
func ScanResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrValidation):
		return "rejected"
	case errors.Is(err, domain.ErrPermission), errors.Is(err, domain.ErrUnauthenticated):
		return "forbidden"
	}
	return "error"
}

// ObserveScan counts one scan attempt.
func (m *Metrics) ObserveScan(err error) {
	m.scans.WithLabelValues(ScanResult(err)).Inc()
}

// Publish counts msg. It never fails, so it can sit in a queue.Fanout.
func (m *Metrics) Publish(_ context.Context, msg queue.Message) error {
	m.events.WithLabelValues(msg.Type).Inc()
	return nil
}
