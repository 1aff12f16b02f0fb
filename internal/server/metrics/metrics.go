// Package metrics содержит prometheus метрики сервера прогресса
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы сохранения прогресса
const (
	OutcomeApplied  = "applied"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gophprogress_http_requests_total",
		Help: "Total HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gophprogress_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	ProgressSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gophprogress_progress_saves_total",
		Help: "Total saveGameProgress calls by outcome",
	}, []string{"outcome"})

	// ComposeEventsTotal kind: regular или premium
	ComposeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gophprogress_compose_events_total",
		Help: "Compose events applied to player ledgers",
	}, []string{"kind"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gophprogress_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)
