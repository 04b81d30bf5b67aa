package lifecycle

import "github.com/prometheus/client_golang/prometheus"

var (
	generationsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "lifecycle",
			Name:      "generations_started_total",
			Help:      "Total generations started",
		},
	)

	generationsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "lifecycle",
			Name:      "generations_finished_total",
			Help:      "Total generations finished, by terminal outcome",
		},
		[]string{"outcome"},
	)

	tokensForwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "lifecycle",
			Name:      "tokens_forwarded_total",
			Help:      "Tokens forwarded to consumers",
		},
	)

	staleTokensDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "lifecycle",
			Name:      "stale_tokens_dropped_total",
			Help:      "Tokens suppressed because their generation was stopped or superseded",
		},
	)

	stopsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "lifecycle",
			Name:      "stops_total",
			Help:      "StopGeneration calls that cancelled an in-flight generation",
		},
	)

	resetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "lifecycle",
			Name:      "context_resets_total",
			Help:      "Context resets that released a model or session",
		},
	)

	teardownFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "lifecycle",
			Name:      "teardown_failures_total",
			Help:      "Engine teardown errors during context reset",
		},
	)
)

func init() {
	prometheus.MustRegister(
		generationsStarted,
		generationsFinished,
		tokensForwarded,
		staleTokensDropped,
		stopsTotal,
		resetsTotal,
		teardownFailures,
	)
}
