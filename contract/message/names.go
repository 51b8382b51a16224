package message

// STOMP protocol-control header names. These carry typed values and never travel as native headers.
const (
	DestinationHeader         = "simpDestination"
	MessageTypeHeader         = "simpMessageType"
	SessionIDHeader           = "simpSessionId"
	SessionAttributesHeader   = "simpSessionAttributes"
	SubscriptionIDHeader      = "simpSubscriptionId"
	UserHeader                = "simpUser"
	ConnectMessageHeader      = "simpConnectMessage"
	HeartbeatHeader           = "simpHeartbeat"
	OriginalDestinationHeader = "simpOrigDestination"
	IgnoreErrorHeader         = "simpIgnoreError"
)

// MessageTypeMessage is the simpMessageType of an ordinary application message.
const MessageTypeMessage = "MESSAGE"

// ProtocolHeaders lists the STOMP protocol-control header names.
func ProtocolHeaders() []string {
	return []string{
		DestinationHeader,
		MessageTypeHeader,
		SessionIDHeader,
		SessionAttributesHeader,
		SubscriptionIDHeader,
		UserHeader,
		ConnectMessageHeader,
		HeartbeatHeader,
		OriginalDestinationHeader,
		IgnoreErrorHeader,
	}
}
