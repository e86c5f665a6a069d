package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OffersSubmitted counts offer submissions by result (accepted|validation_failed|rate_limited).
	OffersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stays_offers_submitted_total",
			Help: "Total number of offer submission attempts",
		},
		[]string{"result"},
	)

	// OfferTransitions counts state machine transitions by target status and result.
	OfferTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stays_offer_transitions_total",
			Help: "Total number of offer status transitions",
		},
		[]string{"to", "result"},
	)

	// PaymentsVerified counts booking commitment fee verifications by outcome.
	PaymentsVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stays_payments_verified_total",
			Help: "Total number of payment verification attempts",
		},
		[]string{"result"},
	)

	// InvoiceRunDuration measures how long monthly invoice generation takes.
	InvoiceRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stays_invoice_run_duration_seconds",
			Help:    "Duration of monthly invoice generation runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stays_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
