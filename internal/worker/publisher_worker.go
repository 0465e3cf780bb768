// Package worker implements the three worker loops spec.md §4.4–§4.6
// describes: PublisherWorker and ConsumerWorker (one per host) and
// AckWorker (not bound to a host). Each satisfies workerpool.Worker (a Stop
// method) so the Reconfigurer can manage them uniformly. The
// goroutine + stop channel + sync.Once + done channel shutdown idiom is
// grounded on the reference codebase's eventbus/asyncqueue worker pools.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oriys/cherami-client-go/internal/logging"
	"github.com/oriys/cherami-client-go/internal/routing"
	"github.com/oriys/cherami-client-go/internal/rpc"
	"github.com/oriys/cherami-client-go/types"
)

// PublishTask pairs an outgoing message with the callback its eventual ack
// must be delivered to, exactly once.
type PublishTask struct {
	Message  types.PutMessage
	Callback func(types.PutMessageAck)
}

// dequeueWait is the bounded wait PublisherWorker and ConsumerWorker use
// around queue operations, so a stop signal is never missed for long
// (spec.md §5: "each worker MUST observe the signal within one internal
// wait cycle (≤5s)").
const dequeueWait = 5 * time.Second

// PublisherWorker pulls send-tasks off a shared queue, stamps a checksum,
// and issues a single-message batch RPC against one input host.
type PublisherWorker struct {
	hostport  string
	path      string
	timeout   time.Duration
	checksum  types.ChecksumOption
	headers   map[string]string
	invoker   *rpc.Invoker
	logger    logging.Logger
	startTime time.Time

	tasks <-chan PublishTask
	stop  chan struct{}
	once  sync.Once
	done  chan struct{}
}

// NewPublisherWorker creates a PublisherWorker reading from the given
// shared task queue. Callers must call Start to launch its loop.
func NewPublisherWorker(hostport, path string, checksum types.ChecksumOption, headers map[string]string, timeout time.Duration, invoker *rpc.Invoker, logger logging.Logger, tasks <-chan PublishTask) *PublisherWorker {
	if logger == nil {
		logger = logging.Default()
	}
	return &PublisherWorker{
		hostport:  hostport,
		path:      path,
		timeout:   timeout,
		checksum:  checksum,
		headers:   headers,
		invoker:   invoker,
		logger:    logger,
		startTime: time.Now(),
		tasks:     tasks,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the worker's loop goroutine.
func (w *PublisherWorker) Start() {
	go w.run()
}

// Stop signals the loop to exit and waits for it to finish. Idempotent.
func (w *PublisherWorker) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

func (w *PublisherWorker) run() {
	defer close(w.done)
	for {
		var task PublishTask
		var ok bool
		select {
		case <-w.stop:
			return
		case task, ok = <-w.tasks:
			if !ok {
				return
			}
		case <-time.After(dequeueWait):
			continue
		}

		w.handle(task)
	}
}

func (w *PublisherWorker) handle(task PublishTask) {
	msg := task.Message
	routing.StampChecksum(&msg, w.checksum)

	req := &types.PutMessageBatchRequest{
		DestinationPath: w.path,
		Messages:        []types.PutMessage{msg},
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	result, err := w.invoker.PutMessageBatch(ctx, w.hostport, w.headers, w.timeout, req)
	if err != nil {
		w.deliver(task, synthesizeFailedAck(msg.ID, fmt.Sprintf(
			"error:%v, hostport:%s, worker start time:%s", err, w.hostport, w.startTime)))
		return
	}

	switch {
	case len(result.SuccessMessages) > 0:
		w.deliver(task, result.SuccessMessages[0])
	case len(result.FailedMessages) > 0:
		w.deliver(task, result.FailedMessages[0])
	default:
		w.deliver(task, synthesizeFailedAck(msg.ID, "sender gets no result from input"))
	}
}

func (w *PublisherWorker) deliver(task PublishTask, ack types.PutMessageAck) {
	if task.Callback == nil {
		return
	}
	task.Callback(ack)
}

func synthesizeFailedAck(id, message string) types.PutMessageAck {
	return types.PutMessageAck{ID: id, Status: types.AckFailed, Message: message}
}
