package matches

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricMatchEvaluations = "swapspace_match_evaluations_total"
	MetricMatchesCreated   = "swapspace_matches_created_total"
)

// Metrics counts detector outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	evaluations *prometheus.CounterVec
	created     prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricMatchEvaluations,
			Help: "Match evaluations by resulting pair state",
		}, []string{"state"}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMatchesCreated,
			Help: "Matches created",
		}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.evaluations, m.created}
}

func (m *Metrics) observe(outcome Outcome) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(string(outcome.Status.State)).Inc()
	if outcome.Created {
		m.created.Inc()
	}
}
