package admission

import (
	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics expõe os contadores prometheus do gate.
//
// Cardinalidade: tenant e action são limitados (cadastro pequeno, três
// vereditos); IP e path ficam de fora de propósito.
type Metrics struct {
	decisionsTotal *prometheus.CounterVec
	cachedBlocks   prometheus.Counter
	storeFailures  *prometheus.CounterVec
}

// NewMetrics registra os contadores no Registerer dado (use
// prometheus.DefaultRegisterer no binário).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Final admission outcomes by tenant and action.",
		}, []string{"tenant", "action"}),
		cachedBlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "admission_cached_blocks_total",
			Help: "Requests rejected straight from the negative verdict cache.",
		}),
		storeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_store_failures_total",
			Help: "Datastore and cache failures absorbed fail-open by the gate.",
		}, []string{"op"}),
	}
}

// Observe tem a assinatura de Gate.OnOutcome.
func (m *Metrics) Observe(tenantID string, _ domain.Fingerprint, out application.Outcome) {
	m.decisionsTotal.WithLabelValues(tenantID, string(out.Action)).Inc()
	if out.FromCache {
		m.cachedBlocks.Inc()
	}
}

// ObserveStoreFailure tem a assinatura de Gate.OnStoreFailure.
func (m *Metrics) ObserveStoreFailure(op string) {
	m.storeFailures.WithLabelValues(op).Inc()
}
