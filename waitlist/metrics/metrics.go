package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_signups_total",
		Help: "Signup requests by final outcome code (\"ok\" on success)",
	}, []string{"code"})

	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_ratelimit_decisions_total",
		Help: "Rate limit decisions by scope and result",
	}, []string{"scope", "result"})

	WebhookAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waitlist_webhook_attempts_total",
		Help: "Outbound webhook attempts by outcome",
	}, []string{"outcome"})

	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "waitlist_inflight_requests",
		Help: "Requests holding a concurrency slot",
	})

	WebhookDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "waitlist_webhook_duration_seconds",
		Help:    "Time spent on a webhook call including retries",
		Buckets: prometheus.DefBuckets,
	})
)

// Result traduz uma decisão para o label "result".
func Result(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}
