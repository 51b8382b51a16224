// Package otel bridges OpenTelemetry span contexts to trace.Context and
// provides a bus.HeaderPropagator backed by an OpenTelemetry TextMapPropagator.
package otel

import (
	"context"
	"encoding/binary"

	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	cbus "github.com/next-trace/scg-stomp-trace/contract/bus"
	"github.com/next-trace/scg-stomp-trace/contract/trace"
)

// Span is a trace.Context view over an OpenTelemetry span context.
// OpenTelemetry trace ids are 128 bits; TraceID keeps the low 64 bits.
type Span struct {
	sc        oteltrace.SpanContext
	name      string
	processID string
	parents   []uint64
}

var _ trace.Context = Span{}

// Option configures a Span.
type Option func(*Span)

// WithParents sets the parent span ids, immediate parent first.
func WithParents(ids ...oteltrace.SpanID) Option {
	return func(s *Span) {
		for _, id := range ids {
			s.parents = append(s.parents, SpanID(id))
		}
	}
}

// WithProcessID sets the process id reported by the span.
func WithProcessID(pid string) Option {
	return func(s *Span) { s.processID = pid }
}

// FromSpanContext wraps sc. It returns false when sc is not valid.
func FromSpanContext(sc oteltrace.SpanContext, name string, opts ...Option) (Span, bool) {
	if !sc.IsValid() {
		return Span{}, false
	}

	s := Span{sc: sc, name: name}
	for _, o := range opts {
		o(&s)
	}

	return s, true
}

type (
	namedSpan  interface{ Name() string }
	parentSpan interface{ Parent() oteltrace.SpanContext }
)

// FromContext returns the OpenTelemetry span carried by ctx as a trace.Context, or nil.
// The span name and parent are available only when the span implementation exposes
// them (SDK spans do). A known parent comes first, ahead of any WithParents ids.
func FromContext(ctx context.Context, opts ...Option) trace.Context { //nolint:ireturn
	span := oteltrace.SpanFromContext(ctx)

	var name string
	if n, ok := span.(namedSpan); ok {
		name = n.Name()
	}

	s, ok := FromSpanContext(span.SpanContext(), name, opts...)
	if !ok {
		return nil
	}

	if p, ok := span.(parentSpan); ok && p.Parent().IsValid() {
		s.parents = append([]uint64{SpanID(p.Parent().SpanID())}, s.parents...)
	}

	return s
}

func (s Span) TraceID() uint64   { return TraceID(s.sc.TraceID()) }
func (s Span) SpanID() uint64    { return SpanID(s.sc.SpanID()) }
func (s Span) Parents() []uint64 { return s.parents }
func (s Span) Name() string      { return s.name }
func (s Span) ProcessID() string { return s.processID }

// SpanContext returns the wrapped OpenTelemetry span context.
func (s Span) SpanContext() oteltrace.SpanContext { return s.sc }

// TraceID returns the low 64 bits of id.
func TraceID(id oteltrace.TraceID) uint64 { return binary.BigEndian.Uint64(id[8:]) }

// SpanID returns id as an unsigned integer.
func SpanID(id oteltrace.SpanID) uint64 { return binary.BigEndian.Uint64(id[:]) }

// Propagator injects headers with an OpenTelemetry TextMapPropagator.
type Propagator struct {
	tm propagation.TextMapPropagator
}

var _ cbus.HeaderPropagator = Propagator{}

// NewPropagator wraps tm. A nil tm uses W3C Trace Context.
func NewPropagator(tm propagation.TextMapPropagator) Propagator {
	if tm == nil {
		tm = propagation.TraceContext{}
	}

	return Propagator{tm: tm}
}

func (p Propagator) Inject(ctx context.Context, headers map[string]string) {
	tm := p.tm
	if tm == nil {
		tm = propagation.TraceContext{}
	}

	tm.Inject(ctx, propagation.MapCarrier(headers))
}
