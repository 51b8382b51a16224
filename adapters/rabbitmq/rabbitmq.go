package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	cbus "github.com/next-trace/scg-stomp-trace/contract/bus"
	berr "github.com/next-trace/scg-stomp-trace/contract/errors"
	"github.com/next-trace/scg-stomp-trace/contract/message"
)

const keyHeader = "key"

type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
}

type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

// Adapter routes messages to Exchange using the destination as routing key.
// An empty Exchange targets the default exchange, where the routing key names a queue.
type Adapter struct {
	Publisher Publisher
	Exchange  string
}

var _ cbus.Sender = (*Adapter)(nil)

func New(p Publisher) *Adapter { return &Adapter{Publisher: p} }

// NewWithExchange configures the exchange messages are published to.
func NewWithExchange(p Publisher, exchange string) *Adapter {
	return &Adapter{Publisher: p, Exchange: exchange}
}

func (a *Adapter) Send(ctx context.Context, msg *message.Outbound, opts cbus.SendOptions) error {
	if err := a.ready(ctx); err != nil {
		return err
	}

	rk := opts.DestinationFor(msg.Destination())
	if rk == "" {
		return fmt.Errorf("rabbitmq send: %w", berr.ErrDestinationMissing)
	}

	body, err := encodeBody(msg.Payload)
	if err != nil {
		return fmt.Errorf("rabbitmq send serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	pm := PubMsg{
		Exchange:   a.Exchange,
		RoutingKey: rk,
		Body:       body,
		Headers:    sendHeaders(msg, opts),
	}
	if err := a.Publisher.Publish(ctx, pm); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq send publish: %w", errors.Join(berr.ErrSendFailed, err))
	}

	return nil
}

func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Publisher == nil {
		return fmt.Errorf("rabbitmq send: %w", berr.ErrSenderNotConfigured)
	}

	return nil
}

func sendHeaders(msg *message.Outbound, o cbus.SendOptions) map[string]string {
	h := msg.TransportHeaders()
	if o.Key != "" {
		h[keyHeader] = o.Key
	}

	return h
}

func encodeBody(v any) ([]byte, error) {
	switch p := v.(type) {
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	}

	return json.Marshal(v)
}

func toTable(headers map[string]string) amqp.Table {
	if len(headers) == 0 {
		return nil
	}

	h := amqp.Table{}
	for k, v := range headers {
		h[k] = v
	}

	return h
}

func publishing(m PubMsg, mode uint8) amqp.Publishing {
	return amqp.Publishing{
		DeliveryMode: mode,
		Headers:      toTable(m.Headers),
		ContentType:  "application/json",
		Body:         m.Body,
	}
}

type amqpChannelPublisher struct{ ch *amqp.Channel }

func (p amqpChannelPublisher) Publish(ctx context.Context, m PubMsg) error {
	return p.ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, publishing(m, amqp.Transient))
}

func NewWithAMQPChannel(ch *amqp.Channel) *Adapter {
	return &Adapter{Publisher: amqpChannelPublisher{ch: ch}}
}
