package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the quiz bot.
type Metrics struct {
	RoundsStarted *prometheus.CounterVec
	Guesses       *prometheus.CounterVec
	APIRequests   *prometheus.CounterVec
	APIRetries    *prometheus.CounterVec
	EventsHandled *prometheus.CounterVec
}

// New registers the collectors on reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RoundsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quizbot",
				Name:      "rounds_started_total",
				Help:      "Round start attempts by result",
			},
			[]string{"result"},
		),
		Guesses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quizbot",
				Name:      "guesses_total",
				Help:      "Judged guesses by outcome",
			},
			[]string{"outcome"},
		),
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quizbot",
				Name:      "api_requests_total",
				Help:      "Outbound API attempts by host and status code",
			},
			[]string{"host", "status"},
		),
		APIRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quizbot",
				Name:      "api_retries_total",
				Help:      "Retries caused by rate limiting",
			},
			[]string{"host"},
		),
		EventsHandled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quizbot",
				Name:      "events_handled_total",
				Help:      "Forum events dispatched by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

// Noop returns collectors bound to a private registry.
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}
