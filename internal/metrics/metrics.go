package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Selection outcomes
const (
	OutcomeSelected = "selected"
	OutcomeEmpty    = "empty_pool"
	OutcomeFailed   = "failed"
)

// Guess results
const (
	ResultCorrect   = "correct"
	ResultIncorrect = "incorrect"
	ResultRejected  = "rejected"
)

// Metrics holds the service's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	Selections        *prometheus.CounterVec
	SelectionFailures *prometheus.CounterVec
	SelectionRetries  *prometheus.CounterVec
	Guesses           *prometheus.CounterVec
	Solves            *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comicguess",
			Name:      "selections_total",
			Help:      "Daily puzzle selection attempts by track and outcome.",
		}, []string{"track", "outcome"}),
		SelectionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comicguess",
			Name:      "selection_failures_total",
			Help:      "Daily puzzle selections that did not produce a puzzle.",
		}, []string{"track"}),
		SelectionRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comicguess",
			Name:      "selection_retries_total",
			Help:      "Retried storage operations during selection.",
		}, []string{"track"}),
		Guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comicguess",
			Name:      "guesses_total",
			Help:      "Guesses evaluated by track and result.",
		}, []string{"track", "result"}),
		Solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comicguess",
			Name:      "solves_total",
			Help:      "First correct guesses per track.",
		}, []string{"track"}),
	}

	m.registry.MustRegister(
		m.Selections,
		m.SelectionFailures,
		m.SelectionRetries,
		m.Guesses,
		m.Solves,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
