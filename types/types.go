// Package types holds the data model and the Transport collaborator
// interface shared between the public cherami package and the internal
// packages that implement it. It exists as its own package (rather than
// living in cherami or an internal/ package) so that internal/rpc and
// internal/worker can depend on the wire types without creating an import
// cycle back into the root package, which re-exports everything here under
// friendlier names.
package types

import (
	"context"
	"strconv"
)

// ChecksumOption selects which checksum field a PutMessage is stamped with
// before it is sent to an input host. The frontend dictates the option at
// reconfiguration time; it is not chosen by the application.
type ChecksumOption int

const (
	ChecksumNone ChecksumOption = iota
	ChecksumCRC32IEEE
	ChecksumMD5
)

// Protocol identifies the wire protocol a host-protocol entry speaks.
// Only TCHANNEL entries are usable by this client; readPublisherOptions may
// return other protocols that this client ignores.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolTChannel
)

// HostAddress is an immutable (host, port) pair. Equality is structural.
type HostAddress struct {
	Host string
	Port int
}

// HostProtocol pairs a protocol tag with the hosts that speak it, as
// returned by readPublisherOptions.
type HostProtocol struct {
	Protocol Protocol
	Hosts    []HostAddress
}

// DeliveryToken is an opaque handle the application presents back to Ack
// or Nack a specific delivered message. Internally it carries the ack-id
// and the connection-key of the output host that must be contacted; the
// two fields are unexported and are read only through AckID and HostPort,
// and a token is built only through NewDeliveryToken.
type DeliveryToken struct {
	ackID    string
	hostport string
}

// NewDeliveryToken constructs a token from its two constituent fields. It
// lives here (rather than as an exported struct literal) so the pairing is
// always explicit. ConsumerWorker mints a token per delivered message;
// cherami.NewDeliveryToken re-exports this constructor.
func NewDeliveryToken(ackID, hostport string) DeliveryToken {
	return DeliveryToken{ackID: ackID, hostport: hostport}
}

// AckID returns the ack-id uniquely identifying this in-flight delivery.
func (t DeliveryToken) AckID() string { return t.ackID }

// HostPort returns the connection-key of the output host that must be
// contacted to ack or nack this delivery.
func (t DeliveryToken) HostPort() string { return t.hostport }

// IsZero reports whether the token is the zero value (no output host and
// no ack-id), the Go equivalent of a null/empty token in spec terms.
func (t DeliveryToken) IsZero() bool { return t.ackID == "" && t.hostport == "" }

// PutMessage is the application-supplied message to be published.
// DelayInSeconds matches the original wire field; this client never sets
// it to anything but zero (delayed publish is out of CORE scope).
type PutMessage struct {
	ID             string
	DelayInSeconds int32
	Data           []byte
	UserContext    map[string]string
	CRC32Checksum  uint32
	HasCRC32       bool
	MD5Checksum    [16]byte
	HasMD5         bool
}

// AckStatus is the outcome of a publish attempt.
type AckStatus int

const (
	AckOK AckStatus = iota
	AckFailed
	AckTimedOut
)

func (s AckStatus) String() string {
	switch s {
	case AckOK:
		return "OK"
	case AckFailed:
		return "FAILED"
	case AckTimedOut:
		return "TIMEDOUT"
	default:
		return "UNKNOWN"
	}
}

// PutMessageAck answers a published PutMessage. Invariant: ID always
// equals the ID of the PutMessage it answers.
type PutMessageAck struct {
	ID      string
	Status  AckStatus
	Receipt string
	Message string
}

// MessagePayload carries the delivered bytes and whichever single checksum
// field the server stamped, if any.
type MessagePayload struct {
	Data          []byte
	HasCRC32      bool
	CRC32Checksum uint32
	HasMD5        bool
	MD5Checksum   [16]byte
}

// ConsumerMessage is a single delivered message, paired with a
// DeliveryToken when handed to the application.
type ConsumerMessage struct {
	AckID   string
	Payload MessagePayload
}

// AckMessageResult is returned to the ack-request callback.
type AckMessageResult struct {
	CallSuccess   bool
	IsAck         bool
	DeliveryToken DeliveryToken
	ErrorMsg      string
}

// --- RPC request/result types -------------------------------------------

// ReadPublisherOptionsRequest is the frontend call a Publisher issues at
// reconfiguration time to discover input hosts and the checksum option.
type ReadPublisherOptionsRequest struct {
	Path string
}

// ReadPublisherOptionsResult is the frontend's reply.
type ReadPublisherOptionsResult struct {
	HostProtocols  []HostProtocol
	ChecksumOption ChecksumOption
}

// ReadConsumerGroupHostsRequest is the frontend call a Consumer issues at
// reconfiguration time to discover output hosts.
type ReadConsumerGroupHostsRequest struct {
	DestinationPath   string
	ConsumerGroupName string
}

// ReadConsumerGroupHostsResult is the frontend's reply.
type ReadConsumerGroupHostsResult struct {
	HostAddresses []HostAddress
}

// PutMessageBatchRequest is sent by a PublisherWorker to its input host.
// The CORE only ever sends a single-message batch.
type PutMessageBatchRequest struct {
	DestinationPath string
	Messages        []PutMessage
}

// PutMessageBatchResult is the input host's reply.
type PutMessageBatchResult struct {
	SuccessMessages []PutMessageAck
	FailedMessages  []PutMessageAck
}

// ReceiveMessageBatchRequest is sent by a ConsumerWorker to its output host.
type ReceiveMessageBatchRequest struct {
	DestinationPath   string
	ConsumerGroupName string
	MaxMessages       int
	ReceiveTimeout    int
}

// ReceiveMessageBatchResult is the output host's reply.
type ReceiveMessageBatchResult struct {
	Messages []ConsumerMessage
}

// AckMessagesRequest is sent by an AckWorker to the output host encoded in
// the delivery token. Exactly one of AckIDs/NackIDs is non-empty.
type AckMessagesRequest struct {
	AckIDs  []string
	NackIDs []string
}

// Transport is the RPC collaborator the CORE depends on: a typed call
// against a named service at an optional address with a timeout, returning
// a decoded reply or a transport/application error. It is supplied by the
// application (or by transport/grpcdial for the demo CLI); the CORE never
// constructs one itself.
type Transport interface {
	ReadPublisherOptions(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *ReadPublisherOptionsRequest) (*ReadPublisherOptionsResult, error)
	ReadConsumerGroupHosts(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *ReadConsumerGroupHostsRequest) (*ReadConsumerGroupHostsResult, error)
	Admin(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, method string, req any) (any, error)
	PutMessageBatch(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *PutMessageBatchRequest) (*PutMessageBatchResult, error)
	ReceiveMessageBatch(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *ReceiveMessageBatchRequest) (*ReceiveMessageBatchResult, error)
	AckMessages(ctx context.Context, hostport string, headers map[string]string, timeoutMs int64, req *AckMessagesRequest) error
}

// ConnectionKey returns "{host}:{port}", the canonical connection-key used
// to index the WorkerPool.
func (h HostAddress) ConnectionKey() string {
	return h.Host + ":" + strconv.Itoa(h.Port)
}
