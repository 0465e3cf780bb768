package cherami

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oriys/cherami-client-go/internal/reconfig"
	"github.com/oriys/cherami-client-go/internal/routing"
	"github.com/oriys/cherami-client-go/internal/worker"
	"github.com/oriys/cherami-client-go/internal/workerpool"
	"github.com/oriys/cherami-client-go/types"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPreFetchCount        = 100
	defaultAckMessageBufferSize = 1000
	defaultAckMessageThreadCount = 4
)

// ConsumerOption customizes a Consumer at construction time.
type ConsumerOption func(*consumerSettings)

type consumerSettings struct {
	preFetchCount        int
	ackMessageBufferSize int
	ackMessageThreadCount int
}

// WithPreFetchCount sets the delivery queue's capacity and, derived from
// it, the batch size each ConsumerWorker requests (max(preFetchCount/10, 1)).
func WithPreFetchCount(n int) ConsumerOption {
	return func(s *consumerSettings) { s.preFetchCount = n }
}

// WithAckMessageBufferSize sets the ack-request queue's capacity.
func WithAckMessageBufferSize(n int) ConsumerOption {
	return func(s *consumerSettings) { s.ackMessageBufferSize = n }
}

// WithAckMessageThreadCount sets how many AckWorkers service the shared ack
// queue.
func WithAckMessageThreadCount(n int) ConsumerOption {
	return func(s *consumerSettings) { s.ackMessageThreadCount = n }
}

// Delivery pairs a DeliveryToken with the message it came with, as handed
// to the application by Receive.
type Delivery struct {
	Token   DeliveryToken
	Message ConsumerMessage
}

// Consumer receives messages for a (path, consumerGroup) pair and
// acknowledges or negatively-acknowledges them, fanned out across the
// output hosts the frontend currently serves that pair with.
type Consumer struct {
	client        *Client
	path          string
	consumerGroup string
	batchSize     int

	deliveries chan worker.Delivery
	ackTasks   chan worker.AckTask

	consumerPool *workerpool.Pool
	ackWorkers   []*worker.AckWorker
	ackThreads   int

	rcfg *reconfig.Reconfigurer

	closeOnce sync.Once
}

func newConsumer(c *Client, path, consumerGroup string, opts ...ConsumerOption) *Consumer {
	settings := consumerSettings{
		preFetchCount:         defaultPreFetchCount,
		ackMessageBufferSize:  defaultAckMessageBufferSize,
		ackMessageThreadCount: defaultAckMessageThreadCount,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	batchSize := settings.preFetchCount / 10
	if batchSize < 1 {
		batchSize = 1
	}

	cons := &Consumer{
		client:        c,
		path:          path,
		consumerGroup: consumerGroup,
		batchSize:     batchSize,
		deliveries:    make(chan worker.Delivery, settings.preFetchCount),
		ackTasks:      make(chan worker.AckTask, settings.ackMessageBufferSize),
		consumerPool:  workerpool.New(),
		ackThreads:    settings.ackMessageThreadCount,
	}
	cons.rcfg = reconfig.New(c.reconfigureInterval, cons.reconcile, c.logger)
	return cons
}

// Open performs the first reconfiguration synchronously (populating the
// ConsumerWorker pool), starts the N AckWorkers, and starts the background
// Reconfigurer. Failure of the first reconfiguration is fatal: the
// consumer is closed and the error is returned.
func (c *Consumer) Open() error {
	if err := c.rcfg.Reconcile(); err != nil {
		c.Close()
		return fmt.Errorf("cherami: consumer open %q/%q: %w", c.path, c.consumerGroup, err)
	}

	for i := 0; i < c.ackThreads; i++ {
		w := worker.NewAckWorker(c.client.timeout, c.client.headers, c.client.invoker, c.client.logger, c.ackTasks)
		w.Start()
		c.ackWorkers = append(c.ackWorkers, w)
	}

	c.rcfg.Start()
	return nil
}

func (c *Consumer) reconcile() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.client.timeout)
	defer cancel()

	result, err := c.client.invoker.ReadConsumerGroupHosts(ctx, c.client.frontendHostport, c.client.deploymentStr, c.client.headers, c.client.timeout, &types.ReadConsumerGroupHostsRequest{
		DestinationPath:   c.path,
		ConsumerGroupName: c.consumerGroup,
	})
	if err != nil {
		return fmt.Errorf("readConsumerGroupHosts: %w", err)
	}

	desired := make(map[string]struct{}, len(result.HostAddresses))
	for _, h := range result.HostAddresses {
		desired[h.ConnectionKey()] = struct{}{}
	}

	toAdd, toRemove := routing.HostSetDiff(routing.KeySet(poolKeys(c.consumerPool)), desired)

	var g errgroup.Group
	for _, key := range toRemove {
		key := key
		g.Go(func() error {
			c.consumerPool.Remove(key)
			return nil
		})
	}
	for _, key := range toAdd {
		key := key
		g.Go(func() error {
			w := worker.NewConsumerWorker(key, c.path, c.consumerGroup, c.batchSize, c.client.timeout, c.client.headers, c.client.invoker, c.client.logger, c.deliveries)
			w.Start()
			c.consumerPool.Add(key, w)
			return nil
		})
	}
	return g.Wait()
}

// Close stops the Reconfigurer, every ConsumerWorker, and every AckWorker.
// Idempotent.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		c.rcfg.Stop()
		c.consumerPool.StopAll()
		for _, w := range c.ackWorkers {
			w.Stop()
		}
	})
	return nil
}

// Receive blocks up to the consumer's configured timeout, accumulating
// deliveries until either numMsgs have been collected or the deadline
// elapses, and returns whatever was collected (possibly empty).
func (c *Consumer) Receive(numMsgs int) []Delivery {
	deadline := time.Now().Add(c.client.timeout)
	out := make([]Delivery, 0, numMsgs)

	for len(out) < numMsgs {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		select {
		case d := <-c.deliveries:
			out = append(out, Delivery{Token: d.Token, Message: d.Message})
		case <-time.After(remaining):
			return out
		}
	}
	return out
}

// VerifyChecksum recomputes whichever checksum field message.Payload
// carries and compares it against the payload's data. Verification is
// application-initiated; the consumer itself neither drops nor re-fetches
// bad-checksum messages.
func (c *Consumer) VerifyChecksum(message ConsumerMessage) bool {
	return routing.VerifyChecksum(message.Payload)
}

// Ack acknowledges a delivered message. It blocks up to the consumer's
// timeout and returns true iff a successful result was received. A zero
// token is a no-op that returns true.
func (c *Consumer) Ack(token DeliveryToken) bool {
	return c.ackSync(token, true)
}

// Nack negatively-acknowledges a delivered message. Same contract as Ack.
func (c *Consumer) Nack(token DeliveryToken) bool {
	return c.ackSync(token, false)
}

func (c *Consumer) ackSync(token DeliveryToken, isAck bool) bool {
	if token.IsZero() {
		return true
	}

	done := make(chan AckMessageResult, 1)
	c.ackAsync(token, isAck, func(r AckMessageResult) {
		select {
		case done <- r:
		default:
		}
	})

	select {
	case r := <-done:
		return r.CallSuccess
	case <-time.After(c.client.timeout):
		c.client.logger.Warn("ack/nack timed out waiting for result", "isAck", isAck)
		return false
	}
}

// AckAsync enqueues an ack request for token. A zero token or a nil
// callback is a no-op.
func (c *Consumer) AckAsync(token DeliveryToken, callback func(AckMessageResult)) {
	c.ackAsync(token, true, callback)
}

// NackAsync enqueues a nack request for token. Same contract as AckAsync.
func (c *Consumer) NackAsync(token DeliveryToken, callback func(AckMessageResult)) {
	c.ackAsync(token, false, callback)
}

// ackAsync is shared by AckAsync/NackAsync and by the synchronous Ack/Nack.
// If the ack queue is full for the consumer's entire timeout, the callback
// is invoked immediately with a synthesized failure that carries the real
// isAck value the caller asked for — the original client hardcodes
// is_ack=true in this exact path regardless of which operation was
// requested; this one does not.
func (c *Consumer) ackAsync(token DeliveryToken, isAck bool, callback func(AckMessageResult)) {
	if token.IsZero() || callback == nil {
		return
	}

	task := worker.AckTask{Token: token, IsAck: isAck, Callback: callback}

	select {
	case c.ackTasks <- task:
	case <-time.After(c.client.timeout):
		callback(AckMessageResult{
			CallSuccess:   false,
			IsAck:         isAck,
			DeliveryToken: token,
			ErrorMsg:      "ack message buffer is full",
		})
	}
}
