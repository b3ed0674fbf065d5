package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calcpad",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	metricRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "calcpad",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	metricEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calcpad",
		Name:      "evaluations_total",
		Help:      "Expression evaluations by outcome.",
	}, []string{"outcome"})
	metricEvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "calcpad",
		Name:      "evaluation_duration_seconds",
		Help:      "Time spent evaluating and recording one expression.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	})
	metricRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "calcpad",
		Name:      "rate_limited_total",
		Help:      "Calculate requests rejected by the rate limiter.",
	})
	metricMemoryValue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "calcpad",
		Name:      "memory_value",
		Help:      "Current value of the memory register.",
	})
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeInvalid = "invalid"
)
