package aggregator

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "lottery_adapter"

type metrics struct {
	batches            prometheus.Counter
	calls              prometheus.Counter
	failedCalls        prometheus.Counter
	unavailableBatches prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	m := &metrics{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "multicall",
			Name:      "batches_total",
			Help:      "Number of non-empty batches requested.",
		}),
		calls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "multicall",
			Name:      "calls_total",
			Help:      "Number of read calls requested across all batches.",
		}),
		failedCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "multicall",
			Name:      "failed_calls_total",
			Help:      "Number of individual calls that reverted or failed to encode or decode.",
		}),
		unavailableBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "multicall",
			Name:      "unavailable_batches_total",
			Help:      "Number of batches whose aggregated request failed.",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(m.batches, m.calls, m.failedCalls, m.unavailableBatches)
	}

	return m
}
