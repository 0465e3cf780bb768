// Package rpc wraps a types.Transport with the instrumentation spec.md
// §4.2 requires (calls/success/exception counters, duration timings) and
// with the frontend deployment-string → service-name resolution spec.md
// §6/§9 describes. It is the only thing Publisher, Consumer, and the
// worker types call; none of them touch types.Transport directly.
//
// The three "entry points" from spec.md §4.2 (frontend, input, output)
// are expressed here as one Invoker with a method per RPC, rather than
// three duplicated dispatcher functions, per the REDESIGN FLAGS note in
// spec.md §9 ("avoid code duplication... parameterized by a role
// descriptor").
package rpc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oriys/cherami-client-go/internal/logging"
	"github.com/oriys/cherami-client-go/internal/metrics"
	"github.com/oriys/cherami-client-go/types"
)

const defaultFrontendService = "cherami-frontendhost"

// Invoker wraps a types.Transport, adding per-call metrics and the
// frontend service-name cache.
type Invoker struct {
	transport  types.Transport
	metrics    metrics.Sink
	logger     logging.Logger
	clientName string

	// serviceCache replaces the original Python module's process-wide
	// mutable dict (cherami_frontend.py: frontend_modules) with an
	// explicit registry scoped to this Invoker, populated lazily on
	// first use per deployment suffix (spec.md §9).
	serviceCache sync.Map // env suffix (string) -> service name (string)
}

// New creates an Invoker. metricsSink and logger may be nil, in which case
// a no-op sink and the default slog logger are used respectively.
// clientName is used as the stat-name prefix (spec.md §6 supplement:
// "cherami_client_python.{name}.{stat}" convention, adapted here as
// "{clientName}.{method}.{stat}").
func New(transport types.Transport, metricsSink metrics.Sink, logger logging.Logger, clientName string) *Invoker {
	if metricsSink == nil {
		metricsSink = metrics.NoopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	if clientName == "" {
		clientName = "cherami_client_go"
	}
	return &Invoker{transport: transport, metrics: metricsSink, logger: logger, clientName: clientName}
}

// resolveFrontendService implements the normalization from
// cherami_frontend.py: prod*/dev*/empty all collapse to the canonical
// name; anything else becomes "{canonical}_{env}". Results are cached per
// suffix so repeated calls with the same deployment string don't
// re-allocate the service name string.
func (inv *Invoker) resolveFrontendService(deploymentStr string) string {
	env := deploymentStr
	lower := strings.ToLower(env)
	if env == "" || strings.HasPrefix(lower, "prod") || strings.HasPrefix(lower, "dev") {
		env = ""
	}

	if v, ok := inv.serviceCache.Load(env); ok {
		return v.(string)
	}

	name := defaultFrontendService
	if env != "" {
		name = name + "_" + env
	}
	actual, _ := inv.serviceCache.LoadOrStore(env, name)
	return actual.(string)
}

func withService(headers map[string]string, service string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out["rpc-service"] = service
	return out
}

func (inv *Invoker) statName(method, suffix string) string {
	return fmt.Sprintf("%s.%s.%s", inv.clientName, method, suffix)
}

func (inv *Invoker) tagsFor(hostport string) map[string]string {
	if hostport == "" {
		return nil
	}
	return map[string]string{"hostport": hostport}
}

// instrument runs call, recording the calls/success/exception and
// duration.success/duration.exception stats described in spec.md §4.2.
func instrument[T any](inv *Invoker, method, hostport string, call func() (T, error)) (T, error) {
	tags := inv.tagsFor(hostport)
	inv.metrics.IncCounter(inv.statName(method, "calls"), tags, 1)

	start := time.Now()
	result, err := call()
	durationMs := time.Since(start).Milliseconds()

	if err != nil {
		inv.metrics.IncCounter(inv.statName(method, "exception"), tags, 1)
		inv.metrics.RecordTiming(inv.statName(method, "duration.exception"), tags, durationMs)
		return result, err
	}

	inv.metrics.IncCounter(inv.statName(method, "success"), tags, 1)
	inv.metrics.RecordTiming(inv.statName(method, "duration.success"), tags, durationMs)
	return result, nil
}

// ReadPublisherOptions issues the frontend call a Publisher uses at
// reconfiguration time.
func (inv *Invoker) ReadPublisherOptions(ctx context.Context, frontendHostport, deploymentStr string, headers map[string]string, timeout time.Duration, req *types.ReadPublisherOptionsRequest) (*types.ReadPublisherOptionsResult, error) {
	service := inv.resolveFrontendService(deploymentStr)
	h := withService(headers, service)
	return instrument(inv, "readPublisherOptions", frontendHostport, func() (*types.ReadPublisherOptionsResult, error) {
		return inv.transport.ReadPublisherOptions(ctx, frontendHostport, h, timeout.Milliseconds(), req)
	})
}

// ReadConsumerGroupHosts issues the frontend call a Consumer uses at
// reconfiguration time.
func (inv *Invoker) ReadConsumerGroupHosts(ctx context.Context, frontendHostport, deploymentStr string, headers map[string]string, timeout time.Duration, req *types.ReadConsumerGroupHostsRequest) (*types.ReadConsumerGroupHostsResult, error) {
	service := inv.resolveFrontendService(deploymentStr)
	h := withService(headers, service)
	return instrument(inv, "readConsumerGroupHosts", frontendHostport, func() (*types.ReadConsumerGroupHostsResult, error) {
		return inv.transport.ReadConsumerGroupHosts(ctx, frontendHostport, h, timeout.Milliseconds(), req)
	})
}

// Admin forwards one of the thin administrative pass-throughs
// (createDestination, readDestination, createConsumerGroup,
// readConsumerGroup, purgeDLQForConsumerGroup, mergeDLQForConsumerGroup)
// to the frontend.
func (inv *Invoker) Admin(ctx context.Context, frontendHostport, deploymentStr, method string, headers map[string]string, timeout time.Duration, req any) (any, error) {
	service := inv.resolveFrontendService(deploymentStr)
	h := withService(headers, service)
	return instrument(inv, method, frontendHostport, func() (any, error) {
		return inv.transport.Admin(ctx, frontendHostport, h, timeout.Milliseconds(), method, req)
	})
}

// PutMessageBatch issues the input-host call a PublisherWorker uses to
// send a single-message batch.
func (inv *Invoker) PutMessageBatch(ctx context.Context, hostport string, headers map[string]string, timeout time.Duration, req *types.PutMessageBatchRequest) (*types.PutMessageBatchResult, error) {
	return instrument(inv, "putMessageBatch", hostport, func() (*types.PutMessageBatchResult, error) {
		return inv.transport.PutMessageBatch(ctx, hostport, headers, timeout.Milliseconds(), req)
	})
}

// ReceiveMessageBatch issues the output-host call a ConsumerWorker uses to
// pull a batch of deliveries.
func (inv *Invoker) ReceiveMessageBatch(ctx context.Context, hostport string, headers map[string]string, timeout time.Duration, req *types.ReceiveMessageBatchRequest) (*types.ReceiveMessageBatchResult, error) {
	return instrument(inv, "receiveMessageBatch", hostport, func() (*types.ReceiveMessageBatchResult, error) {
		return inv.transport.ReceiveMessageBatch(ctx, hostport, headers, timeout.Milliseconds(), req)
	})
}

// AckMessages issues the output-host ack/nack call an AckWorker uses.
func (inv *Invoker) AckMessages(ctx context.Context, hostport string, headers map[string]string, timeout time.Duration, req *types.AckMessagesRequest) error {
	_, err := instrument(inv, "ackMessages", hostport, func() (struct{}, error) {
		return struct{}{}, inv.transport.AckMessages(ctx, hostport, headers, timeout.Milliseconds(), req)
	})
	return err
}
