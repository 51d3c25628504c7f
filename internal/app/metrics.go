package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics is the application's Prometheus surface, backed by its own
// registry so parallel App instances never collide.
type metrics struct {
	registry *prometheus.Registry

	graphsLoaded    prometheus.Counter
	configWrites    prometheus.Counter
	componentStarts prometheus.Counter
	nodes           prometheus.Gauge
	edges           prometheus.Gauge
	startTime       prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		graphsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "appgraph",
			Name:      "graphs_loaded_total",
			Help:      "Number of subgraph files merged into the application graph.",
		}),
		configWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "appgraph",
			Name:      "config_writes_total",
			Help:      "Number of node configuration keys written.",
		}),
		componentStarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "appgraph",
			Name:      "component_starts_total",
			Help:      "Number of compiled-in component instances started.",
		}),
		nodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "appgraph",
			Name:      "graph_nodes",
			Help:      "Nodes in the merged application graph.",
		}),
		edges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "appgraph",
			Name:      "graph_edges",
			Help:      "Edges in the merged application graph.",
		}),
		startTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "appgraph",
			Name:      "run_start_timestamp_seconds",
			Help:      "Unix time at which Run was entered.",
		}),
	}
}
