package skorche

import "github.com/prometheus/client_golang/prometheus"

// metricsSet bundles the counters/gauges a PipelineManager exposes for its
// task stages, grounded on the teacher's Chapter13/prom_http bootstrap of
// prometheus/client_golang.
type metricsSet struct {
	itemsProcessed *prometheus.CounterVec
	itemsDropped   *prometheus.CounterVec
	activeWorkers  *prometheus.GaugeVec
}

func newMetricsSet(reg prometheus.Registerer) *metricsSet {
	ms := &metricsSet{
		itemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skorche",
			Name:      "items_processed_total",
			Help:      "Number of items successfully processed by a task stage.",
		}, []string{"stage"}),
		itemsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skorche",
			Name:      "items_dropped_total",
			Help:      "Number of items dropped due to a task or operator error.",
		}, []string{"stage", "reason"}),
		activeWorkers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "skorche",
			Name:      "active_workers",
			Help:      "Number of currently-running worker activities for a task stage.",
		}, []string{"stage"}),
	}

	reg.MustRegister(ms.itemsProcessed, ms.itemsDropped, ms.activeWorkers)
	return ms
}
