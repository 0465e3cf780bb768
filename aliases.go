package cherami

import "github.com/oriys/cherami-client-go/types"

// The data model and the Transport collaborator live in package types so
// internal/rpc and internal/worker can depend on them without an import
// cycle back into this package. These aliases let applications import only
// "cherami" and use cherami.PutMessage, cherami.Transport, and so on.

type (
	ChecksumOption    = types.ChecksumOption
	Protocol          = types.Protocol
	HostAddress       = types.HostAddress
	HostProtocol      = types.HostProtocol
	DeliveryToken     = types.DeliveryToken
	PutMessage        = types.PutMessage
	AckStatus         = types.AckStatus
	PutMessageAck     = types.PutMessageAck
	MessagePayload    = types.MessagePayload
	ConsumerMessage   = types.ConsumerMessage
	AckMessageResult  = types.AckMessageResult
	Transport         = types.Transport

	ReadPublisherOptionsRequest     = types.ReadPublisherOptionsRequest
	ReadPublisherOptionsResult      = types.ReadPublisherOptionsResult
	ReadConsumerGroupHostsRequest   = types.ReadConsumerGroupHostsRequest
	ReadConsumerGroupHostsResult    = types.ReadConsumerGroupHostsResult
	PutMessageBatchRequest          = types.PutMessageBatchRequest
	PutMessageBatchResult           = types.PutMessageBatchResult
	ReceiveMessageBatchRequest      = types.ReceiveMessageBatchRequest
	ReceiveMessageBatchResult       = types.ReceiveMessageBatchResult
	AckMessagesRequest              = types.AckMessagesRequest
)

const (
	ChecksumNone      = types.ChecksumNone
	ChecksumCRC32IEEE = types.ChecksumCRC32IEEE
	ChecksumMD5       = types.ChecksumMD5

	ProtocolUnknown  = types.ProtocolUnknown
	ProtocolTChannel = types.ProtocolTChannel

	AckOK      = types.AckOK
	AckFailed  = types.AckFailed
	AckTimedOut = types.AckTimedOut
)

// NewDeliveryToken constructs a DeliveryToken from its constituent fields.
// Applications never need this directly; it exists for tests and for
// transport/grpcdial style adapters that mint tokens from a wire reply.
func NewDeliveryToken(ackID, hostport string) DeliveryToken {
	return types.NewDeliveryToken(ackID, hostport)
}
