package bus

import (
	"context"

	"github.com/next-trace/scg-stomp-trace/contract/message"
)

// Sender hands a finalized message to a broker.
// Library users provide an implementation that maps to NATS/RabbitMQ/Kafka etc.
// Implementations must be safe for concurrent use by multiple goroutines.
type Sender interface {
	Send(ctx context.Context, msg *message.Outbound, opts SendOptions) error
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, msg *message.Outbound, opts SendOptions) error

func (f SenderFunc) Send(ctx context.Context, msg *message.Outbound, opts SendOptions) error {
	return f(ctx, msg, opts)
}
