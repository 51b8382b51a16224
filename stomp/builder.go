package stomp

import (
	"fmt"
	"reflect"
	"strings"

	berr "github.com/next-trace/scg-stomp-trace/contract/errors"
	"github.com/next-trace/scg-stomp-trace/contract/message"
	"github.com/next-trace/scg-stomp-trace/contract/trace"
)

// Builder assembles the headers of an outbound message.
// It is a value: every method returns a new Builder and leaves the receiver untouched.
type Builder struct {
	payload any
	headers message.Headers
}

// FromMessage starts a Builder from a copy of msg's headers.
func FromMessage(msg *message.Message) (Builder, error) {
	if msg == nil {
		return Builder{}, fmt.Errorf("stomp from message: %w", berr.ErrInvalidInput)
	}

	return Builder{payload: msg.Payload, headers: msg.Headers.Clone()}, nil
}

func (b Builder) with(key string, value any) Builder {
	h := b.headers.Clone()
	h[key] = value

	return Builder{payload: b.payload, headers: h}
}

// SetHeader sets key to value, replacing any previous value including nil.
func (b Builder) SetHeader(key string, value any) Builder {
	return b.with(key, value)
}

// SetHeaderIfAbsent sets key to value only when key is missing or maps to nil.
func (b Builder) SetHeaderIfAbsent(key string, value any) Builder {
	if b.headers[key] != nil {
		return b
	}

	return b.with(key, value)
}

// SetHeaders applies SetHeader for every entry of h in key order.
func (b Builder) SetHeaders(h message.Headers) Builder {
	for _, k := range h.Keys() {
		b = b.SetHeader(k, h[k])
	}

	return b
}

// WithSpan fills in trace headers from span without overwriting existing values.
// The parent id is taken from current, the in-flight trace context, not from span.
// A nil span, including a nil pointer held in the interface, leaves the builder unchanged.
func (b Builder) WithSpan(span, current trace.Context) Builder {
	if isNil(span) {
		return b
	}

	b = b.SetHeaderIfAbsent(trace.SpanIDHeader, trace.Hex(span.SpanID())).
		SetHeaderIfAbsent(trace.TraceIDHeader, trace.Hex(span.TraceID())).
		SetHeaderIfAbsent(trace.SpanNameHeader, span.Name())

	if parent, ok := firstParent(current); ok {
		b = b.SetHeaderIfAbsent(trace.ParentIDHeader, trace.Hex(parent))
	}

	if pid := span.ProcessID(); strings.TrimSpace(pid) != "" {
		b = b.SetHeaderIfAbsent(trace.ProcessIDHeader, pid)
	}

	return b
}

func isNil(c trace.Context) bool {
	if c == nil {
		return true
	}

	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

func firstParent(c trace.Context) (uint64, bool) {
	if isNil(c) {
		return 0, false
	}

	parents := c.Parents()
	if len(parents) == 0 {
		return 0, false
	}

	return parents[0], true
}

// Headers returns a copy of the headers accumulated so far.
func (b Builder) Headers() message.Headers {
	return b.headers.Clone()
}

// Build classifies every header and returns the finalized message.
// Reserved names keep their raw value; all other names are stringified.
// Entries with an empty name are dropped. simpMessageType defaults to MESSAGE
// when the source did not set it.
func (b Builder) Build() *message.Outbound {
	out := &message.Outbound{
		Payload: b.payload,
		Headers: message.Headers{},
		Native:  map[string]message.NativeValue{},
	}

	for _, k := range b.headers.Keys() {
		if k == "" {
			continue
		}

		v := b.headers[k]
		if IsReserved(k) {
			out.Headers[k] = v
			continue
		}

		out.Native[k] = message.Stringify(v)
	}

	if out.Headers[message.MessageTypeHeader] == nil {
		out.Headers[message.MessageTypeHeader] = message.MessageTypeMessage
	}

	return out
}
