// Package cherami is a client library for a hosted, partitioned pub/sub
// messaging service. It provides a Publisher that sends messages to a
// destination and a Consumer that receives and acknowledges messages from a
// consumer group, both backed by a periodically refreshed fan-out of
// per-host workers.
//
// The package depends on three collaborators supplied by the caller: a
// Transport (the RPC mechanics against the service's frontend, input, and
// output hosts), a Metrics sink, and a Logger. The Transport is required
// and never constructed by this package; transport/grpcdial provides a
// concrete Transport for callers that want a ready-made gRPC-backed one.
// When Metrics or Logger is omitted, a no-op sink or the slog-backed
// default logger is used instead.
package cherami
