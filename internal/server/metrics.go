package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	sent        prometheus.Counter
	rateLimited prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "closetd_http_requests_total",
				Help: "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "closetd_http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closetd_messages_sent_total",
			Help: "Messages stored via POST /messages.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closetd_send_rate_limited_total",
			Help: "Sends rejected by the per-user rate limit.",
		}),
	}
	reg.MustRegister(m.requests, m.latency, m.sent, m.rateLimited)
	return m
}
