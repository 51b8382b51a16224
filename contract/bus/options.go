package bus

// SendOptions controls how a message is routed by a Sender.
// DestinationOverride takes precedence over the message's destination header.
type SendOptions struct {
	DestinationOverride string
	Key                 string
}

// DestinationFor resolves the destination for msgDestination under o.
func (o SendOptions) DestinationFor(msgDestination string) string {
	if o.DestinationOverride != "" {
		return o.DestinationOverride
	}

	return msgDestination
}
