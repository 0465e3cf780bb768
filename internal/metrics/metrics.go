// Package metrics exposes the counter/timing sink the client's internal
// components record against. It mirrors the external Metrics collaborator
// the public package accepts from applications, plus a concrete no-op and
// Prometheus-backed implementation of it.
package metrics

// Sink is the counter and timing API every internal component records
// against. Applications may supply their own implementation through
// cherami.ClientConfig.Metrics; NoopSink is used when none is supplied.
type Sink interface {
	IncCounter(name string, tags map[string]string, delta int64)
	RecordTiming(name string, tags map[string]string, durationMs int64)
}

// NoopSink discards everything. It is the default when no Sink is configured.
type NoopSink struct{}

func (NoopSink) IncCounter(name string, tags map[string]string, delta int64)       {}
func (NoopSink) RecordTiming(name string, tags map[string]string, durationMs int64) {}

var _ Sink = NoopSink{}
