package rabbitmq

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/next-trace/scg-stomp-trace/contract/errors"
)

// Concrete AMQP connection-backed constructor and publisher wrapper with auto-reconnect.

const (
	defaultExchange = "stomp"
	exchangeKind    = "topic"
)

// Config configures NewWithAMQPConn. An empty Exchange defaults to a durable "stomp" topic exchange.
type Config struct {
	URL         string
	ConnTimeout time.Duration
	Exchange    string
}

func (c Config) exchange() string {
	if c.Exchange == "" {
		return defaultExchange
	}

	return c.Exchange
}

type reconnectingPublisher struct {
	cfg    Config
	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed chan struct{}
	ready  chan struct{} // closed when a channel is ready
}

func newReconnectingPublisher(cfg Config) (*reconnectingPublisher, func()) {
	rp := &reconnectingPublisher{
		cfg:    cfg,
		closed: make(chan struct{}),
		ready:  make(chan struct{}),
	}
	go rp.run()
	cleanup := func() { rp.close() }
	return rp, cleanup
}

// Publish sends m on the current channel, waiting while the publisher is reconnecting.
func (rp *reconnectingPublisher) Publish(ctx context.Context, m PubMsg) error {
	for {
		select {
		case <-rp.closed:
			return fmt.Errorf("%w: rabbitmq publisher closed", berr.ErrSendFailed)
		default:
		}

		rp.mu.RLock()
		ch, ready := rp.ch, rp.ready
		rp.mu.RUnlock()

		if ch != nil {
			return ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, publishing(m, amqp.Persistent))
		}

		select {
		case <-ready:
		case <-rp.closed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// markReady publishes conn and ch and releases waiting senders.
func (rp *reconnectingPublisher) markReady(conn *amqp.Connection, ch *amqp.Channel) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	rp.conn, rp.ch = conn, ch
	close(rp.ready)
}

// markDown forgets the dead channel so senders wait for the next markReady.
func (rp *reconnectingPublisher) markDown() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	rp.conn, rp.ch = nil, nil
	rp.ready = make(chan struct{})
}

func (rp *reconnectingPublisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(rp.cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "scg-stomp-trace"},
		Dial:       amqp.DefaultDial(rp.cfg.ConnTimeout),
	})
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	if err := ch.ExchangeDeclare(rp.cfg.exchange(), exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, nil, err
	}

	return conn, ch, nil
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

func nextBackoff(cur time.Duration) time.Duration {
	return min(cur*2, maxBackoff)
}

// retryDelay adds up to a quarter of backoff as jitter, capped at maxBackoff.
func retryDelay(backoff time.Duration, rng *rand.Rand) time.Duration {
	jitter := time.Duration(rng.Int63n(int64(backoff/4) + 1))

	return min(backoff+jitter, maxBackoff)
}

// wait sleeps for d and reports false when the publisher was closed meanwhile.
func (rp *reconnectingPublisher) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-rp.closed:
		return false
	case <-t.C:
		return true
	}
}

func (rp *reconnectingPublisher) run() {
	// #nosec G404 -- non-crypto RNG is acceptable for backoff jitter
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // non-crypto RNG is acceptable for backoff jitter
	backoff := minBackoff

	for {
		select {
		case <-rp.closed:
			return
		default:
		}

		conn, ch, err := rp.dial()
		if err != nil {
			if !rp.wait(retryDelay(backoff, rng)) {
				return
			}

			backoff = nextBackoff(backoff)

			continue
		}

		backoff = minBackoff
		rp.markReady(conn, ch)

		notify := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-rp.closed:
			_ = ch.Close()
			_ = conn.Close()

			return
		case <-notify:
			rp.markDown()
			_ = ch.Close()
			_ = conn.Close()
		}
	}
}

func (rp *reconnectingPublisher) close() {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	select {
	case <-rp.closed:
		// already closed
		return
	default:
		close(rp.closed)
	}
	if rp.ch != nil {
		_ = rp.ch.Close()
		rp.ch = nil
	}
	if rp.conn != nil {
		_ = rp.conn.Close()
		rp.conn = nil
	}
}

// NewWithAMQPConn dials RabbitMQ with auto-reconnect, ensures the exchange, and returns Adapter and cleanup.
func NewWithAMQPConn(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq url required", berr.ErrSendFailed)
	}
	pub, cleanup := newReconnectingPublisher(cfg)
	ad := NewWithExchange(pub, cfg.exchange())
	return ad, cleanup, nil
}
