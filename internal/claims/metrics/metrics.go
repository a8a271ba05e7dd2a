package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the claim engine.
type Metrics struct {
	ClaimsSubmitted prometheus.Counter
	ClaimsApproved  prometheus.Counter
	ClaimsRejected  prometheus.Counter
	ClaimsDisputed  prometheus.Counter
	ClaimsResolved  prometheus.Counter
}

// New creates and registers all claim metrics.
func New() *Metrics {
	return &Metrics{
		ClaimsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velvet_claims_submitted_total",
			Help: "Total number of claims submitted",
		}),
		ClaimsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velvet_claims_approved_total",
			Help: "Total number of claims approved (including admin overrides)",
		}),
		ClaimsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velvet_claims_rejected_total",
			Help: "Total number of claims rejected (including admin overrides)",
		}),
		ClaimsDisputed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velvet_claims_disputed_total",
			Help: "Total number of disputes raised",
		}),
		ClaimsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velvet_claims_resolved_total",
			Help: "Total number of disputes resolved by an admin",
		}),
	}
}
