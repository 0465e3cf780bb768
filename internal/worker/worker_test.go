package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oriys/cherami-client-go/internal/rpc"
	"github.com/oriys/cherami-client-go/types"
)

// fakeTransport lets each test script the reply/error for every RPC the
// worker types issue, without a network.
type fakeTransport struct {
	mu sync.Mutex

	putResult *types.PutMessageBatchResult
	putErr    error

	receiveResults []*types.ReceiveMessageBatchResult
	receiveErrs    []error
	receiveCalls   int

	ackErr error
	acked  []types.AckMessagesRequest
}

func (f *fakeTransport) ReadPublisherOptions(context.Context, string, map[string]string, int64, *types.ReadPublisherOptionsRequest) (*types.ReadPublisherOptionsResult, error) {
	return &types.ReadPublisherOptionsResult{}, nil
}

func (f *fakeTransport) ReadConsumerGroupHosts(context.Context, string, map[string]string, int64, *types.ReadConsumerGroupHostsRequest) (*types.ReadConsumerGroupHostsResult, error) {
	return &types.ReadConsumerGroupHostsResult{}, nil
}

func (f *fakeTransport) Admin(context.Context, string, map[string]string, int64, string, any) (any, error) {
	return nil, nil
}

func (f *fakeTransport) PutMessageBatch(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *types.PutMessageBatchRequest) (*types.PutMessageBatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	return f.putResult, nil
}

func (f *fakeTransport) ReceiveMessageBatch(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *types.ReceiveMessageBatchRequest) (*types.ReceiveMessageBatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.receiveCalls
	f.receiveCalls++
	if i < len(f.receiveErrs) && f.receiveErrs[i] != nil {
		return nil, f.receiveErrs[i]
	}
	if i < len(f.receiveResults) {
		return f.receiveResults[i], nil
	}
	return &types.ReceiveMessageBatchResult{}, nil
}

func (f *fakeTransport) AckMessages(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *types.AckMessagesRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, *req)
	return f.ackErr
}

func TestPublisherWorkerDeliversSuccess(t *testing.T) {
	ft := &fakeTransport{putResult: &types.PutMessageBatchResult{
		SuccessMessages: []types.PutMessageAck{{ID: "m1", Status: types.AckOK}},
	}}
	inv := rpc.New(ft, nil, nil, "test")

	tasks := make(chan PublishTask, 1)
	results := make(chan types.PutMessageAck, 1)
	w := NewPublisherWorker("h:1", "/dest", types.ChecksumCRC32IEEE, nil, time.Second, inv, nil, tasks)
	w.Start()
	defer w.Stop()

	tasks <- PublishTask{
		Message:  types.PutMessage{ID: "m1", Data: []byte("payload")},
		Callback: func(ack types.PutMessageAck) { results <- ack },
	}

	select {
	case ack := <-results:
		if ack.Status != types.AckOK || ack.ID != "m1" {
			t.Fatalf("unexpected ack: %+v", ack)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for callback")
	}
}

func TestPublisherWorkerSynthesizesFailureOnTransportError(t *testing.T) {
	ft := &fakeTransport{putErr: errors.New("connection refused")}
	inv := rpc.New(ft, nil, nil, "test")

	tasks := make(chan PublishTask, 1)
	results := make(chan types.PutMessageAck, 1)
	w := NewPublisherWorker("h:1", "/dest", types.ChecksumNone, nil, time.Second, inv, nil, tasks)
	w.Start()
	defer w.Stop()

	tasks <- PublishTask{
		Message:  types.PutMessage{ID: "m2"},
		Callback: func(ack types.PutMessageAck) { results <- ack },
	}

	select {
	case ack := <-results:
		if ack.Status != types.AckFailed || ack.ID != "m2" {
			t.Fatalf("unexpected ack: %+v", ack)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for callback")
	}
}

func TestPublisherWorkerStopIsIdempotent(t *testing.T) {
	ft := &fakeTransport{putResult: &types.PutMessageBatchResult{}}
	inv := rpc.New(ft, nil, nil, "test")
	tasks := make(chan PublishTask)
	w := NewPublisherWorker("h:1", "/dest", types.ChecksumNone, nil, time.Second, inv, nil, tasks)
	w.Start()
	w.Stop()
	w.Stop()
}

func TestConsumerWorkerDeliversMessagesWithTokens(t *testing.T) {
	ft := &fakeTransport{receiveResults: []*types.ReceiveMessageBatchResult{
		{Messages: []types.ConsumerMessage{{AckID: "ack-1"}}},
	}}
	inv := rpc.New(ft, nil, nil, "test")

	deliveries := make(chan Delivery, 1)
	w := NewConsumerWorker("h:1", "/dest", "cg", 10, 5*time.Second, nil, inv, nil, deliveries)
	w.Start()
	defer w.Stop()

	select {
	case d := <-deliveries:
		if d.Token.AckID() != "ack-1" || d.Token.HostPort() != "h:1" {
			t.Fatalf("unexpected delivery token: %+v", d.Token)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
}

func TestConsumerWorkerBacksOffAndRecoversAfterError(t *testing.T) {
	ft := &fakeTransport{
		receiveErrs: []error{errors.New("unreachable"), nil},
		receiveResults: []*types.ReceiveMessageBatchResult{
			nil,
			{Messages: []types.ConsumerMessage{{AckID: "ack-2"}}},
		},
	}
	inv := rpc.New(ft, nil, nil, "test")

	deliveries := make(chan Delivery, 1)
	w := NewConsumerWorker("h:1", "/dest", "cg", 10, 5*time.Second, nil, inv, nil, deliveries)
	w.Start()
	defer w.Stop()

	select {
	case d := <-deliveries:
		if d.Token.AckID() != "ack-2" {
			t.Fatalf("unexpected delivery: %+v", d)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for recovery after backoff")
	}
}

func TestAckWorkerPropagatesIsAckOnSuccess(t *testing.T) {
	ft := &fakeTransport{}
	inv := rpc.New(ft, nil, nil, "test")

	tasks := make(chan AckTask, 1)
	results := make(chan types.AckMessageResult, 1)
	w := NewAckWorker(time.Second, nil, inv, nil, tasks)
	w.Start()
	defer w.Stop()

	token := types.NewDeliveryToken("ack-1", "h:1")
	tasks <- AckTask{Token: token, IsAck: false, Callback: func(r types.AckMessageResult) { results <- r }}

	select {
	case r := <-results:
		if r.IsAck {
			t.Fatalf("expected IsAck=false to be propagated, got true")
		}
		if !r.CallSuccess {
			t.Fatalf("expected CallSuccess=true")
		}
		if len(ft.acked) != 1 || len(ft.acked[0].NackIDs) != 1 || ft.acked[0].NackIDs[0] != "ack-1" {
			t.Fatalf("unexpected request sent: %+v", ft.acked)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for callback")
	}
}

func TestAckWorkerPropagatesIsAckOnTransportError(t *testing.T) {
	ft := &fakeTransport{ackErr: errors.New("down")}
	inv := rpc.New(ft, nil, nil, "test")

	tasks := make(chan AckTask, 1)
	results := make(chan types.AckMessageResult, 1)
	w := NewAckWorker(time.Second, nil, inv, nil, tasks)
	w.Start()
	defer w.Stop()

	token := types.NewDeliveryToken("ack-2", "h:1")
	tasks <- AckTask{Token: token, IsAck: true, Callback: func(r types.AckMessageResult) { results <- r }}

	select {
	case r := <-results:
		if !r.IsAck {
			t.Fatalf("expected IsAck=true to be propagated even on failure, got false")
		}
		if r.CallSuccess {
			t.Fatalf("expected CallSuccess=false")
		}
		if r.ErrorMsg == "" {
			t.Fatalf("expected error message to be set")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for callback")
	}
}
