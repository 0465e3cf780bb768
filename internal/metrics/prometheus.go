package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// defaultBuckets mirrors the latency buckets (in milliseconds) that the
// publish/receive/ack paths care about: sub-millisecond through multi-second
// tail latencies.
var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// PrometheusSink is a production Sink backed by a private Prometheus
// registry. Counters and timings are both keyed by a single "name" label
// carrying the caller-supplied stat name (e.g.
// "cherami_client_go.putMessageBatch.calls"); a second "tag" label carries
// an optional caller tag (such as a hostport) when present.
type PrometheusSink struct {
	registry  *prometheus.Registry
	counters  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheusSink creates a Sink that registers its own Prometheus
// registry under namespace. Pass nil or an empty slice for buckets to use
// the default millisecond buckets.
func NewPrometheusSink(namespace string, buckets []float64) *PrometheusSink {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	ps := &PrometheusSink{
		registry: registry,
		counters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "counters_total",
				Help:      "Client-side counters, keyed by stat name and optional tag",
			},
			[]string{"name", "tag"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "durations_milliseconds",
				Help:      "Client-side timing measurements, keyed by stat name and optional tag",
				Buckets:   buckets,
			},
			[]string{"name", "tag"},
		),
	}
	registry.MustRegister(ps.counters, ps.durations)
	return ps
}

// IncCounter implements Sink.
func (p *PrometheusSink) IncCounter(name string, tags map[string]string, delta int64) {
	p.counters.WithLabelValues(name, firstTag(tags)).Add(float64(delta))
}

// RecordTiming implements Sink.
func (p *PrometheusSink) RecordTiming(name string, tags map[string]string, durationMs int64) {
	p.durations.WithLabelValues(name, firstTag(tags)).Observe(float64(durationMs))
}

// Handler returns an http.Handler that serves the sink's registry for
// scraping.
func (p *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// firstTag picks a single representative tag value (e.g. "hostport") for
// the label set, since Prometheus label sets must be fixed ahead of time.
// Callers that need finer-grained breakdowns should fold that detail into
// the stat name itself, the way the reference stats convention does.
func firstTag(tags map[string]string) string {
	for _, v := range tags {
		return v
	}
	return ""
}

var _ Sink = (*PrometheusSink)(nil)
