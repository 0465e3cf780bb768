package cherami

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/oriys/cherami-client-go/internal/logging"
	"github.com/oriys/cherami-client-go/internal/metrics"
	"github.com/oriys/cherami-client-go/internal/rpc"
	"github.com/oriys/cherami-client-go/types"
)

// ClientConfig captures everything the facade needs to construct
// Publishers and Consumers. Transport is required; the facade never
// constructs one itself (transport/grpcdial exists for callers who want a
// ready-made gRPC-backed Transport).
type ClientConfig struct {
	Transport types.Transport

	// FrontendHostport is the connection-key of the service frontend.
	FrontendHostport string

	// DeploymentStr selects the frontend service name (prod*/dev*/empty ->
	// canonical; anything else -> "{canonical}_{env}").
	DeploymentStr string

	// ClientName prefixes every stat this client records.
	ClientName string

	// Headers are merged into every outgoing call's headers, alongside the
	// user-name/host-name pair the facade injects itself. Never mutated;
	// callers may reuse the map they pass in.
	Headers map[string]string

	// Timeout bounds every synchronous RPC and owner-facing call.
	Timeout time.Duration

	// ReconfigureInterval is the Publisher/Consumer Reconfigurer's period.
	ReconfigureInterval time.Duration

	Metrics metrics.Sink
	Logger  logging.Logger
}

const (
	defaultTimeout             = 30 * time.Second
	defaultReconfigureInterval = 30 * time.Second
)

func (c ClientConfig) withDefaults() ClientConfig {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.ReconfigureInterval <= 0 {
		c.ReconfigureInterval = defaultReconfigureInterval
	}
	return c
}

// Client is the facade: a thin constructor for Publisher/Consumer and a
// pass-through for administrative frontend calls. It owns no resources of
// its own, so Close is an intentional no-op kept for lifecycle symmetry
// with Publisher and Consumer.
type Client struct {
	invoker             *rpc.Invoker
	frontendHostport    string
	deploymentStr       string
	headers             map[string]string
	timeout             time.Duration
	reconfigureInterval time.Duration
	logger              logging.Logger
}

// NewClient validates cfg and builds the facade. Transport must be
// non-nil; everything else has a usable default.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("cherami: NewClient: %w", ErrTransportRequired)
	}
	cfg = cfg.withDefaults()

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		invoker:             rpc.New(cfg.Transport, cfg.Metrics, logger, cfg.ClientName),
		frontendHostport:    cfg.FrontendHostport,
		deploymentStr:       cfg.DeploymentStr,
		headers:             buildHeaders(cfg.Headers),
		timeout:             cfg.Timeout,
		reconfigureInterval: cfg.ReconfigureInterval,
		logger:              logger,
	}, nil
}

// buildHeaders copies base into a new map and injects user-name/host-name,
// so the caller's own map is never aliased or mutated (the original client
// facade mutated its caller's header dict in place; this one does not).
func buildHeaders(base map[string]string) map[string]string {
	out := make(map[string]string, len(base)+2)
	for k, v := range base {
		out[k] = v
	}
	out["user-name"] = currentUsername()
	if host, err := os.Hostname(); err == nil {
		out["host-name"] = host
	}
	return out
}

func currentUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("LOGNAME")
}

// NewPublisher constructs a Publisher for path. It must still be Open'd
// before use.
func (c *Client) NewPublisher(path string, opts ...PublisherOption) (*Publisher, error) {
	if path == "" {
		return nil, fmt.Errorf("cherami: NewPublisher: %w", ErrPathRequired)
	}
	return newPublisher(c, path, opts...), nil
}

// NewConsumer constructs a Consumer for (path, consumerGroup). It must
// still be Open'd before use.
func (c *Client) NewConsumer(path, consumerGroup string, opts ...ConsumerOption) (*Consumer, error) {
	if path == "" {
		return nil, fmt.Errorf("cherami: NewConsumer: %w", ErrPathRequired)
	}
	if consumerGroup == "" {
		return nil, fmt.Errorf("cherami: NewConsumer: %w", ErrGroupRequired)
	}
	return newConsumer(c, path, consumerGroup, opts...), nil
}

func (c *Client) admin(ctx context.Context, method string, req any) (any, error) {
	return c.invoker.Admin(ctx, c.frontendHostport, c.deploymentStr, method, c.headers, c.timeout, req)
}

// CreateDestination forwards to the frontend's createDestination call.
func (c *Client) CreateDestination(ctx context.Context, req any) (any, error) {
	return c.admin(ctx, "createDestination", req)
}

// ReadDestination forwards to the frontend's readDestination call.
func (c *Client) ReadDestination(ctx context.Context, req any) (any, error) {
	return c.admin(ctx, "readDestination", req)
}

// CreateConsumerGroup forwards to the frontend's createConsumerGroup call.
func (c *Client) CreateConsumerGroup(ctx context.Context, req any) (any, error) {
	return c.admin(ctx, "createConsumerGroup", req)
}

// ReadConsumerGroup forwards to the frontend's readConsumerGroup call.
func (c *Client) ReadConsumerGroup(ctx context.Context, req any) (any, error) {
	return c.admin(ctx, "readConsumerGroup", req)
}

// PurgeDLQForConsumerGroup forwards to the frontend's
// purgeDLQForConsumerGroup call.
func (c *Client) PurgeDLQForConsumerGroup(ctx context.Context, req any) (any, error) {
	return c.admin(ctx, "purgeDLQForConsumerGroup", req)
}

// MergeDLQForConsumerGroup forwards to the frontend's
// mergeDLQForConsumerGroup call.
func (c *Client) MergeDLQForConsumerGroup(ctx context.Context, req any) (any, error) {
	return c.admin(ctx, "mergeDLQForConsumerGroup", req)
}

// Close is an intentional no-op: the facade owns no resources of its own
// (the Transport's lifecycle belongs to whoever constructed it). Kept for
// symmetry with Publisher.Close/Consumer.Close.
func (c *Client) Close() error { return nil }
