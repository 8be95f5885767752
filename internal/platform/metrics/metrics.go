// Package metrics holds the Prometheus instrumentation for the registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Its increment
// methods satisfy the narrow Metrics interfaces declared by each service.
type Metrics struct {
	IdentitiesRegistered  prometheus.Counter
	TitlesRegistered      prometheus.Counter
	TitlesTransferred     prometheus.Counter
	PlansDefined          prometheus.Counter
	AdjudicationsExecuted prometheus.Counter
	EscrowsCreated        prometheus.Counter
	EscrowTransitions     *prometheus.CounterVec
	RequestLatency        *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		IdentitiesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "legado_identities_registered_total",
			Help: "Total number of civil identities registered",
		}),
		TitlesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "legado_titles_registered_total",
			Help: "Total number of property titles registered",
		}),
		TitlesTransferred: promauto.NewCounter(prometheus.CounterOpts{
			Name: "legado_titles_transferred_total",
			Help: "Total number of title ownership transfers",
		}),
		PlansDefined: promauto.NewCounter(prometheus.CounterOpts{
			Name: "legado_succession_plans_defined_total",
			Help: "Total number of succession plans defined or replaced",
		}),
		AdjudicationsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "legado_adjudications_executed_total",
			Help: "Total number of executed succession adjudications",
		}),
		EscrowsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "legado_escrows_created_total",
			Help: "Total number of escrow agreements created",
		}),
		EscrowTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "legado_escrow_transitions_total",
			Help: "Escrow state transitions by target state",
		}, []string{"state"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "legado_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) IncIdentitiesRegistered()  { m.IdentitiesRegistered.Inc() }
func (m *Metrics) IncTitlesRegistered()      { m.TitlesRegistered.Inc() }
func (m *Metrics) IncTitlesTransferred()     { m.TitlesTransferred.Inc() }
func (m *Metrics) IncPlansDefined()          { m.PlansDefined.Inc() }
func (m *Metrics) IncAdjudicationsExecuted() { m.AdjudicationsExecuted.Inc() }
func (m *Metrics) IncEscrowsCreated()        { m.EscrowsCreated.Inc() }

func (m *Metrics) IncEscrowTransition(state string) {
	m.EscrowTransitions.WithLabelValues(state).Inc()
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	m.RequestLatency.WithLabelValues(route, method, status).Observe(seconds)
}
