package synchronizer

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "lottery_adapter"

type metrics struct {
	polls        prometheus.Counter
	pollFailures prometheus.Counter
	publications prometheus.Counter
}

// newMetrics registers the synchronizer counters labelled with the round they follow. A round
// watched again reuses the counters registered the first time.
func newMetrics(registerer prometheus.Registerer, roundID uint64) *metrics {
	if registerer != nil {
		registerer = prometheus.WrapRegistererWith(prometheus.Labels{"round": strconv.FormatUint(roundID, 10)}, registerer)
	}

	return &metrics{
		polls: registerCounter(registerer, prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "synchronizer",
			Name:      "polls_total",
			Help:      "Number of completed round polls.",
		}),
		pollFailures: registerCounter(registerer, prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "synchronizer",
			Name:      "poll_failures_total",
			Help:      "Number of round polls that left the snapshot stale.",
		}),
		publications: registerCounter(registerer, prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "synchronizer",
			Name:      "publications_total",
			Help:      "Number of round snapshots published.",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	counter := prometheus.NewCounter(opts)
	if registerer == nil {
		return counter
	}

	err := registerer.Register(counter)
	if err == nil {
		return counter
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(prometheus.Counter); ok {
			return existing
		}
	}
	log.Warn("could not register synchronizer metric", "name", opts.Name, "err", err.Error())

	return counter
}
