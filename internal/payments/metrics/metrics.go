// Package metrics exposes Prometheus counters for the payment ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PaymentsRecorded prometheus.Counter
	PaymentsVerified prometheus.Counter
	PaymentsRejected prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		PaymentsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velvet_payments_recorded_total",
			Help: "Cash payment verifications recorded.",
		}),
		PaymentsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velvet_payments_verified_total",
			Help: "Cash payments verified by an admin.",
		}),
		PaymentsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "velvet_payments_rejected_total",
			Help: "Cash payments rejected by an admin.",
		}),
	}
}
