package inmemory

import (
	"context"
	"fmt"
	"sync"

	cbus "github.com/next-trace/scg-stomp-trace/contract/bus"
	berr "github.com/next-trace/scg-stomp-trace/contract/errors"
	"github.com/next-trace/scg-stomp-trace/contract/message"
)

// Delivery is one recorded send.
type Delivery struct {
	Destination string
	Message     *message.Outbound
	Options     cbus.SendOptions
}

// Sender is a thread-safe in-memory implementation of cbus.Sender.
// It records deliveries for testing and examples.
type Sender struct {
	mu         sync.Mutex
	deliveries []Delivery
	// Err, when set, is returned from Send instead of recording the delivery.
	Err error
}

// Ensure Sender implements the contract.
var _ cbus.Sender = (*Sender)(nil)

// New creates a new in-memory sender.
func New() *Sender { return &Sender{} }

func (s *Sender) Send(ctx context.Context, msg *message.Outbound, opts cbus.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := opts.DestinationFor(msg.Destination())
	if dest == "" {
		return fmt.Errorf("inmemory send: %w", berr.ErrDestinationMissing)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return fmt.Errorf("inmemory send: %w", s.Err)
	}

	s.deliveries = append(s.deliveries, Delivery{Destination: dest, Message: msg, Options: opts})

	return nil
}

// Deliveries returns a snapshot of the recorded deliveries in send order.
func (s *Sender) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Delivery(nil), s.deliveries...)
}

// Reset drops all recorded deliveries.
func (s *Sender) Reset() {
	s.mu.Lock()
	s.deliveries = nil
	s.mu.Unlock()
}
