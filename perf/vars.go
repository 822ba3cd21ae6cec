package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency      = metric.NewHistogram("1m1s")
	TickLatency          = metric.NewHistogram("1m1s")
	StepsPerTick         = metric.NewHistogram("10s1s")
	RelaxationsPerSecond = metric.NewCounter("10s1s")
	ArrivalsPerSecond    = metric.NewCounter("10s1s")
	HopsPerSecond        = metric.NewCounter("10s1s")
	RepairsPerSecond     = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("weft:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("weft:TickLatency (µs)", TickLatency)
	expvar.Publish("weft:StepsPerTick", StepsPerTick)

	expvar.Publish("weft:Relaxations/s", RelaxationsPerSecond)
	expvar.Publish("weft:Arrivals/s", ArrivalsPerSecond)
	expvar.Publish("weft:Hops/s", HopsPerSecond)
	expvar.Publish("weft:Repairs/s", RepairsPerSecond)
}
