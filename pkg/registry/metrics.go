package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the registry's instrumentation. Built with a nil Registerer
// when WithMetrics is not used, in which case the collectors exist but are
// never exported.
type metrics struct {
	recomputes        prometheus.Counter
	recomputeFailures prometheus.Counter
	epochRotations    prometheus.Counter
	providers         prometheus.Gauge
	snapshotSize      prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		recomputes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "junction",
			Subsystem: "registry",
			Name:      "recomputes_total",
			Help:      "Snapshot recomputations, including the lazy first scan.",
		}),
		recomputeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "junction",
			Subsystem: "registry",
			Name:      "recompute_failures_total",
			Help:      "Recomputations abandoned because a provider read failed.",
		}),
		epochRotations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "junction",
			Subsystem: "registry",
			Name:      "epoch_rotations_total",
			Help:      "Change events that rotated the (snapshot, signal) epoch.",
		}),
		providers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "junction",
			Subsystem: "registry",
			Name:      "providers",
			Help:      "Providers currently aggregated.",
		}),
		snapshotSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "junction",
			Subsystem: "registry",
			Name:      "snapshot_size",
			Help:      "Items in the current merged snapshot.",
		}),
	}
}
