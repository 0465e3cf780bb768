package worker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/oriys/cherami-client-go/internal/logging"
	"github.com/oriys/cherami-client-go/internal/rpc"
	"github.com/oriys/cherami-client-go/types"
)

// Delivery pairs a token with the message it answers, as handed to the
// application's receive queue.
type Delivery struct {
	Token   types.DeliveryToken
	Message types.ConsumerMessage
}

const (
	consumerBackoffInitial = 200 * time.Millisecond
	consumerBackoffMax     = 30 * time.Second
)

// ConsumerWorker pulls batches of deliveries from one output host and
// pushes each onto a shared delivery queue for the application to drain.
//
// Unlike the reference worker loop, which re-issues the receive RPC
// immediately after any exception with no pause at all, this loop backs off
// exponentially (capped, with jitter) between retries, so a persistently
// unreachable output host cannot spin the goroutine in a tight retry loop.
type ConsumerWorker struct {
	hostport          string
	path              string
	consumerGroup     string
	batchSize         int
	timeout           time.Duration
	headers           map[string]string
	invoker           *rpc.Invoker
	logger            logging.Logger

	deliveries chan<- Delivery
	stop       chan struct{}
	once       sync.Once
	done       chan struct{}
}

func NewConsumerWorker(hostport, path, consumerGroup string, batchSize int, timeout time.Duration, headers map[string]string, invoker *rpc.Invoker, logger logging.Logger, deliveries chan<- Delivery) *ConsumerWorker {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConsumerWorker{
		hostport:      hostport,
		path:          path,
		consumerGroup: consumerGroup,
		batchSize:     batchSize,
		timeout:       timeout,
		headers:       headers,
		invoker:       invoker,
		logger:        logger,
		deliveries:    deliveries,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the worker's loop goroutine.
func (w *ConsumerWorker) Start() {
	go w.run()
}

// Stop signals the loop to exit and waits for it to finish. Idempotent.
func (w *ConsumerWorker) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

func (w *ConsumerWorker) run() {
	defer close(w.done)

	receiveTimeoutSec := int(w.timeout.Seconds()) - 1
	if receiveTimeoutSec < 1 {
		receiveTimeoutSec = 1
	}
	req := &types.ReceiveMessageBatchRequest{
		DestinationPath:   w.path,
		ConsumerGroupName: w.consumerGroup,
		MaxMessages:       w.batchSize,
		ReceiveTimeout:    receiveTimeoutSec,
	}

	backoff := consumerBackoffInitial

	for {
		select {
		case <-w.stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		result, err := w.invoker.ReceiveMessageBatch(ctx, w.hostport, w.headers, w.timeout, req)
		cancel()

		if err != nil {
			w.logger.Warn("receiveMessageBatch failed", "hostport", w.hostport, "error", err)
			if !w.sleepOrStop(jittered(backoff)) {
				return
			}
			backoff *= 2
			if backoff > consumerBackoffMax {
				backoff = consumerBackoffMax
			}
			continue
		}

		backoff = consumerBackoffInitial

		for _, msg := range result.Messages {
			token := types.NewDeliveryToken(msg.AckID, w.hostport)
			if !w.enqueue(Delivery{Token: token, Message: msg}) {
				return
			}
		}
	}
}

// enqueue retries a full delivery queue until it succeeds or stop fires,
// mirroring the reference worker's retry-on-full put loop. Returns false if
// stop fired before the delivery could be enqueued.
func (w *ConsumerWorker) enqueue(d Delivery) bool {
	for {
		select {
		case <-w.stop:
			return false
		case w.deliveries <- d:
			return true
		case <-time.After(dequeueWait):
		}
	}
}

// sleepOrStop waits for d or until stop fires, whichever comes first.
// Returns false if stop fired.
func (w *ConsumerWorker) sleepOrStop(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-w.stop:
		return false
	case <-t.C:
		return true
	}
}

func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d/2 + jitter
}
