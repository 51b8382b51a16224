package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	cbus "github.com/next-trace/scg-stomp-trace/contract/bus"
	berr "github.com/next-trace/scg-stomp-trace/contract/errors"
	"github.com/next-trace/scg-stomp-trace/contract/message"
)

// keyHeader carries SendOptions.Key since NATS has no record key.
const keyHeader = "key"

// Client is a minimal NATS-like publisher interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
}

// Adapter implements cbus.Sender using an injected NATS-like Client.
type Adapter struct {
	Client Client
}

// Ensure Adapter implements the contract.
var _ cbus.Sender = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

func (a *Adapter) Send(ctx context.Context, msg *message.Outbound, opts cbus.SendOptions) error {
	if err := a.ready(ctx); err != nil {
		return err
	}

	subj := opts.DestinationFor(msg.Destination())
	if subj == "" {
		return fmt.Errorf("nats send: %w", berr.ErrDestinationMissing)
	}

	body, err := encodeBody(msg.Payload)
	if err != nil {
		return fmt.Errorf("nats send serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	if err := a.Client.Publish(subj, body, sendHeaders(msg, opts)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats send publish: %w", errors.Join(berr.ErrSendFailed, err))
	}

	return nil
}

func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats send: %w", berr.ErrSenderNotConfigured)
	}

	return nil
}

// helpers

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
