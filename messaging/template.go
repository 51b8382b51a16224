package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	cbus "github.com/next-trace/scg-stomp-trace/contract/bus"
	berr "github.com/next-trace/scg-stomp-trace/contract/errors"
	"github.com/next-trace/scg-stomp-trace/contract/message"
	"github.com/next-trace/scg-stomp-trace/contract/trace"
	"github.com/next-trace/scg-stomp-trace/stomp"
)

// Template prepares outbound messages and sends them through a Sender.
//
// Template is concurrency-safe once constructed and contains no global state.
type Template struct {
	sender     cbus.Sender
	logger     *slog.Logger
	mw         []SendMiddleware
	propagator cbus.HeaderPropagator
	processID  string
	current    func(ctx context.Context) trace.Context
	cleanup    func()
}

// SendFunc sends a finalized message.
type SendFunc func(ctx context.Context, msg *message.Outbound, opts cbus.SendOptions) error

// SendMiddleware wraps sending. Middlewares are executed in registration order.
type SendMiddleware func(next SendFunc) SendFunc

// Option configures a Template instance.
type Option func(*Template)

// WithSendMiddleware registers global send middleware.
func WithSendMiddleware(mw ...SendMiddleware) Option {
	return func(t *Template) { t.mw = append(t.mw, mw...) }
}

// WithPropagator adds headers from hp to every message without overwriting existing ones.
func WithPropagator(hp cbus.HeaderPropagator) Option {
	return func(t *Template) { t.propagator = hp }
}

// WithProcessID sets a process id used when the span does not report one.
func WithProcessID(pid string) Option {
	return func(t *Template) { t.processID = pid }
}

// WithCurrentResolver replaces how the in-flight trace context is looked up.
// The default is trace.FromContext.
func WithCurrentResolver(fn func(ctx context.Context) trace.Context) Option {
	return func(t *Template) {
		if fn != nil {
			t.current = fn
		}
	}
}

// WithCleanup registers a function run by Close, such as the cleanup returned by an adapter constructor.
func WithCleanup(fn func()) Option {
	return func(t *Template) { t.cleanup = fn }
}

// New constructs a Template over sender. A nil logger discards log output.
func New(sender cbus.Sender, logger *slog.Logger, opts ...Option) *Template {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	t := &Template{
		sender:  sender,
		logger:  logger,
		current: trace.FromContext,
	}
	for _, o := range opts {
		o(t)
	}

	return t
}

// SendOptions controls a single send.
// Headers are explicit overrides applied before trace headers.
// Span is the span whose identity is injected; when nil, the in-flight trace context is used.
type SendOptions struct {
	cbus.SendOptions
	Headers message.Headers
	Span    trace.Context
}

// Prepare builds the outbound message for msg without sending it.
// The parent id always comes from the in-flight trace context of ctx, even when opts.Span is set.
func (t *Template) Prepare(ctx context.Context, msg *message.Message, opts SendOptions) (*message.Outbound, error) {
	b, err := stomp.FromMessage(msg)
	if err != nil {
		return nil, err
	}

	current := t.current(ctx)

	span := opts.Span
	if span == nil {
		span = current
	}

	b = b.SetHeaders(opts.Headers).WithSpan(span, current)

	if t.propagator != nil {
		extra := map[string]string{}
		t.propagator.Inject(ctx, extra)

		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			b = b.SetHeaderIfAbsent(k, extra[k])
		}
	}

	if span != nil && t.processID != "" {
		b = b.SetHeaderIfAbsent(trace.ProcessIDHeader, t.processID)
	}

	return b.Build(), nil
}

// Send prepares msg and sends it through the middleware chain and the Sender.
func (t *Template) Send(ctx context.Context, msg *message.Message, opts SendOptions) error {
	return t.send(ctx, msg, opts)
}

// SendWithMiddleware sends msg with additional per-call middleware.
func (t *Template) SendWithMiddleware(
	ctx context.Context,
	msg *message.Message,
	opts SendOptions,
	mws ...SendMiddleware,
) error {
	return t.send(ctx, msg, opts, mws...)
}

func (t *Template) send(ctx context.Context, msg *message.Message, opts SendOptions, mws ...SendMiddleware) error {
	if t.sender == nil {
		return fmt.Errorf("messaging send: %w", berr.ErrSenderNotConfigured)
	}

	out, err := t.Prepare(ctx, msg, opts)
	if err != nil {
		return err
	}

	// Combine global and per-call middleware
	chain := make([]SendMiddleware, 0, len(t.mw)+len(mws))
	chain = append(chain, t.mw...)
	chain = append(chain, mws...)

	// Build chain so the first registered middleware runs first
	final := SendFunc(t.sender.Send)
	for i := len(chain) - 1; i >= 0; i-- {
		final = chain[i](final)
	}

	dest := opts.DestinationFor(out.Destination())

	if err := final(ctx, out, opts.SendOptions); err != nil {
		t.logger.WarnContext(ctx, "message send failed", "destination", dest, "err", err)
		return err
	}

	t.logger.DebugContext(ctx, "message sent",
		"destination", dest,
		"trace_id", out.Headers[trace.TraceIDHeader],
		"span_id", out.Headers[trace.SpanIDHeader],
		"headers", len(out.HeaderNames()),
	)

	return nil
}

// SendAll sends messages in order and stops on the first error.
func (t *Template) SendAll(ctx context.Context, opts SendOptions, msgs ...*message.Message) error {
	for _, m := range msgs {
		if err := t.send(ctx, m, opts); err != nil {
			return err
		}
	}

	return nil
}

// revive:disable:max-public-structs
// BatchOptions controls SendBatch behavior.
// OnProgress is called after each message completes (success or failure) with done and total.
// OnError is called when a message fails with its index, the message, and the error.
type BatchOptions struct {
	OnProgress func(done, total int)
	OnError    func(index int, msg *message.Message, err error)
}

// revive:enable:max-public-structs

// BatchOpt configures BatchOptions.
type BatchOpt func(*BatchOptions)

// WithBatchProgress sets the progress callback.
func WithBatchProgress(fn func(done, total int)) BatchOpt {
	return func(o *BatchOptions) { o.OnProgress = fn }
}

// WithBatchOnError sets the error callback.
func WithBatchOnError(fn func(index int, msg *message.Message, err error)) BatchOpt {
	return func(o *BatchOptions) { o.OnError = fn }
}

// SendBatch sends the provided messages sequentially.
// It respects context cancellation, reports progress, and aggregates errors.
func (t *Template) SendBatch(ctx context.Context, msgs []*message.Message, opts SendOptions, bopts ...BatchOpt) error {
	var o BatchOptions
	for _, f := range bopts {
		f(&o)
	}

	total := len(msgs)

	var errs []error

	for i, m := range msgs {
		if err := ctx.Err(); err != nil { // canceled or deadline exceeded
			return errors.Join(append(errs, err)...)
		}

		if err := t.send(ctx, m, opts); err != nil {
			if o.OnError != nil {
				o.OnError(i, m, err)
			}

			errs = append(errs, err)
		}

		if o.OnProgress != nil {
			o.OnProgress(i+1, total)
		}
	}

	return errors.Join(errs...)
}

// Close runs the registered cleanup and closes the Sender if it implements io.Closer.
func (t *Template) Close() error {
	if t.cleanup != nil {
		t.cleanup()
	}

	if c, ok := t.sender.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
