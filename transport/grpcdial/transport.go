package grpcdial

import (
	"context"
	"fmt"
	"time"

	"github.com/oriys/cherami-client-go/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Transport dials a single gRPC channel and implements types.Transport over
// it. Every call, whatever frontend/input/output host it names, goes over
// the one connection made by Dial: each method accepts the hostport
// parameter the interface requires but does not use it, and no per-host
// connection is dialed.
type Transport struct {
	conn *grpc.ClientConn
}

// Dial connects to target (a frontend's or backend's connection-key) using
// the package's JSON codec. Extra grpc.DialOptions are appended after the
// package's defaults (insecure transport credentials, JSON codec as the
// default call content-subtype).
func Dial(target string, opts ...grpc.DialOption) (*Transport, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpcdial: dial %s: %w", target, err)
	}
	return &Transport{conn: conn}, nil
}

// Close shuts down the underlying gRPC connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}

func withHeaders(ctx context.Context, headers map[string]string, timeoutMs int64) (context.Context, context.CancelFunc) {
	if len(headers) > 0 {
		ctx = metadata.NewOutgoingContext(ctx, metadata.New(headers))
	}
	return context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
}

func (t *Transport) invoke(ctx context.Context, fullMethod string, headers map[string]string, timeoutMs int64, req, reply any) error {
	ctx, cancel := withHeaders(ctx, headers, timeoutMs)
	defer cancel()
	if err := t.conn.Invoke(ctx, fullMethod, req, reply); err != nil {
		return fmt.Errorf("grpcdial: %s: %w", fullMethod, err)
	}
	return nil
}

func (t *Transport) ReadPublisherOptions(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *types.ReadPublisherOptionsRequest) (*types.ReadPublisherOptionsResult, error) {
	reply := &types.ReadPublisherOptionsResult{}
	if err := t.invoke(ctx, "/cherami.BFrontend/readPublisherOptions", headers, timeoutMs, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (t *Transport) ReadConsumerGroupHosts(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *types.ReadConsumerGroupHostsRequest) (*types.ReadConsumerGroupHostsResult, error) {
	reply := &types.ReadConsumerGroupHostsResult{}
	if err := t.invoke(ctx, "/cherami.BFrontend/readConsumerGroupHosts", headers, timeoutMs, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (t *Transport) Admin(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, method string, req any) (any, error) {
	var reply map[string]any
	fullMethod := fmt.Sprintf("/cherami.BFrontend/%s", method)
	if err := t.invoke(ctx, fullMethod, headers, timeoutMs, req, &reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (t *Transport) PutMessageBatch(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *types.PutMessageBatchRequest) (*types.PutMessageBatchResult, error) {
	reply := &types.PutMessageBatchResult{}
	if err := t.invoke(ctx, "/cherami.BIn/putMessageBatch", headers, timeoutMs, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (t *Transport) ReceiveMessageBatch(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *types.ReceiveMessageBatchRequest) (*types.ReceiveMessageBatchResult, error) {
	reply := &types.ReceiveMessageBatchResult{}
	if err := t.invoke(ctx, "/cherami.BOut/receiveMessageBatch", headers, timeoutMs, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (t *Transport) AckMessages(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *types.AckMessagesRequest) error {
	var reply struct{}
	return t.invoke(ctx, "/cherami.BOut/ackMessages", headers, timeoutMs, req, &reply)
}

var _ types.Transport = (*Transport)(nil)
