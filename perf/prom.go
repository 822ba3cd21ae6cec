package perf

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the engine gauges and counters on a private prometheus
// registry.
type Registry struct {
	Nodes    prometheus.Gauge
	Links    prometheus.Gauge
	Packets  prometheus.Gauge
	Phase    prometheus.Gauge
	Restarts prometheus.Counter
	Ticks    prometheus.Counter

	PacketsTotal *prometheus.CounterVec
	RepairsTotal *prometheus.CounterVec
	TickDuration prometheus.Histogram

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// Default returns the process wide registry.
func Default() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.Nodes = f.NewGauge(prometheus.GaugeOpts{
		Name: "weft_nodes",
		Help: "Number of live nodes",
	})
	r.Links = f.NewGauge(prometheus.GaugeOpts{
		Name: "weft_links",
		Help: "Number of live links",
	})
	r.Packets = f.NewGauge(prometheus.GaugeOpts{
		Name: "weft_packets",
		Help: "Number of packets in flight",
	})
	r.Phase = f.NewGauge(prometheus.GaugeOpts{
		Name: "weft_apsp_phase",
		Help: "APSP phase (0 converging, 1 converged, 2 repair checked)",
	})
	r.Restarts = f.NewCounter(prometheus.CounterOpts{
		Name: "weft_apsp_restarts_total",
		Help: "APSP restarts caused by topology changes",
	})
	r.Ticks = f.NewCounter(prometheus.CounterOpts{
		Name: "weft_ticks_total",
		Help: "Ticks executed",
	})
	r.PacketsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "weft_packets_total",
		Help: "Finished packets by outcome",
	}, []string{"outcome"})
	r.RepairsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "weft_repair_links_total",
		Help: "Links created to restore connectivity, by cause",
	}, []string{"cause"})
	r.TickDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "weft_tick_duration_seconds",
		Help:    "Wall time spent in one tick",
		Buckets: prometheus.ExponentialBuckets(1e-5, 4, 8),
	})
	return r
}

func (r *Registry) RecordTick(nodes, links, packets, phase int, duration time.Duration) {
	r.Ticks.Inc()
	r.Nodes.Set(float64(nodes))
	r.Links.Set(float64(links))
	r.Packets.Set(float64(packets))
	r.Phase.Set(float64(phase))
	r.TickDuration.Observe(duration.Seconds())
}

func (r *Registry) RecordPacket(outcome string) {
	r.PacketsTotal.WithLabelValues(outcome).Inc()
}

func (r *Registry) RecordRepair(cause string) {
	r.RepairsTotal.WithLabelValues(cause).Inc()
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
