package worker

import (
	"context"
	"sync"
	"time"

	"github.com/oriys/cherami-client-go/internal/logging"
	"github.com/oriys/cherami-client-go/internal/rpc"
	"github.com/oriys/cherami-client-go/types"
)

// AckTask carries a single ack or nack request bound for one output host,
// plus the callback its result must be delivered to exactly once.
type AckTask struct {
	Token    types.DeliveryToken
	IsAck    bool
	Callback func(types.AckMessageResult)
}

// AckWorker is not bound to any one output host: it drains the shared
// ack/nack task queue and, for each task, issues its ackMessages RPC
// against whichever host the task's DeliveryToken names. Workers are
// interchangeable for exactly this reason (spec.md §4.6).
type AckWorker struct {
	timeout time.Duration
	headers map[string]string
	invoker *rpc.Invoker
	logger  logging.Logger

	tasks <-chan AckTask
	stop  chan struct{}
	once  sync.Once
	done  chan struct{}
}

func NewAckWorker(timeout time.Duration, headers map[string]string, invoker *rpc.Invoker, logger logging.Logger, tasks <-chan AckTask) *AckWorker {
	if logger == nil {
		logger = logging.Default()
	}
	return &AckWorker{
		timeout: timeout,
		headers: headers,
		invoker: invoker,
		logger:  logger,
		tasks:   tasks,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker's loop goroutine.
func (w *AckWorker) Start() {
	go w.run()
}

// Stop signals the loop to exit and waits for it to finish. Idempotent.
func (w *AckWorker) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

func (w *AckWorker) run() {
	defer close(w.done)
	for {
		var task AckTask
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

func (w *AckWorker) handle(task AckTask) {
	req := &types.AckMessagesRequest{}
	if task.IsAck {
		req.AckIDs = []string{task.Token.AckID()}
	} else {
		req.NackIDs = []string{task.Token.AckID()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	err := w.invoker.AckMessages(ctx, task.Token.HostPort(), w.headers, w.timeout, req)

	result := types.AckMessageResult{
		CallSuccess:   err == nil,
		IsAck:         task.IsAck,
		DeliveryToken: task.Token,
	}
	if err != nil {
		result.ErrorMsg = err.Error()
	}

	if task.Callback != nil {
		task.Callback(result)
	}
}
