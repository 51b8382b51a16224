package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	cbus "github.com/next-trace/scg-stomp-trace/contract/bus"
	berr "github.com/next-trace/scg-stomp-trace/contract/errors"
	"github.com/next-trace/scg-stomp-trace/contract/message"
)

// Writer is a minimal Kafka-like writer interface.
// Users can adapt segmentio/kafka-go or any other client to this.
type Writer interface {
	Write(topic string, key, value []byte, headers map[string]string) error
}

// Adapter implements cbus.Sender using an injected Writer.
// The message destination is used as the topic and SendOptions.Key as the record key.
type Adapter struct {
	Writer Writer
}

var _ cbus.Sender = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

func (a *Adapter) Send(ctx context.Context, msg *message.Outbound, opts cbus.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka send: %w", berr.ErrSenderNotConfigured)
	}

	topic := opts.DestinationFor(msg.Destination())
	if topic == "" {
		return fmt.Errorf("kafka send: %w", berr.ErrDestinationMissing)
	}

	val, err := encodeBody(msg.Payload)
	if err != nil {
		return fmt.Errorf("kafka send serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	var key []byte
	if opts.Key != "" {
		key = []byte(opts.Key)
	}

	if err = a.Writer.Write(topic, key, val, msg.TransportHeaders()); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// separate return from preceding multi-line block (wsl)
		return fmt.Errorf("kafka send write: %w", errors.Join(berr.ErrSendFailed, err))
	}

	return nil
}

// helpers (duplicated for simplicity and test isolation)

func encodeBody(v any) ([]byte, error) {
	switch p := v.(type) {
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	}

	return json.Marshal(v)
}
