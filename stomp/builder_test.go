package stomp_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	berr "github.com/next-trace/scg-stomp-trace/contract/errors"
	"github.com/next-trace/scg-stomp-trace/contract/message"
	"github.com/next-trace/scg-stomp-trace/contract/trace"
	"github.com/next-trace/scg-stomp-trace/stomp"
)

func mustBuilder(t *testing.T, h message.Headers) stomp.Builder {
	t.Helper()

	b, err := stomp.FromMessage(&message.Message{Payload: "payload", Headers: h})
	if err != nil {
		t.Fatalf("from message: %v", err)
	}

	return b
}

var traceHeaders = []string{
	trace.SpanIDHeader,
	trace.TraceIDHeader,
	trace.SpanNameHeader,
	trace.ParentIDHeader,
	trace.ProcessIDHeader,
}

func TestFromMessage_NilMessage(t *testing.T) {
	_, err := stomp.FromMessage(nil)
	if !errors.Is(err, berr.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestFromMessage_CopiesHeaders(t *testing.T) {
	src := message.Headers{"foo": "bar"}
	b := mustBuilder(t, src)

	_ = b.SetHeader("foo", "changed")
	b.Headers()["foo"] = "also changed"

	if src["foo"] != "bar" {
		t.Fatalf("source headers were mutated: %+v", src)
	}

	if b.Headers()["foo"] != "bar" {
		t.Fatalf("builder headers were mutated: %+v", b.Headers())
	}
}

func TestSetHeader_Overwrites(t *testing.T) {
	b := mustBuilder(t, message.Headers{"a": "1", "b": nil})
	b = b.SetHeader("a", "2").SetHeader("b", "3").SetHeader("c", nil)

	want := message.Headers{"a": "2", "b": "3", "c": nil}
	if diff := cmp.Diff(want, b.Headers()); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestSetHeaderIfAbsent(t *testing.T) {
	b := mustBuilder(t, message.Headers{"present": "keep", "null": nil})
	b = b.SetHeaderIfAbsent("present", "lost").
		SetHeaderIfAbsent("null", "filled").
		SetHeaderIfAbsent("missing", "added")

	want := message.Headers{"present": "keep", "null": "filled", "missing": "added"}
	if diff := cmp.Diff(want, b.Headers()); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestSetHeaders_AppliesInKeyOrder(t *testing.T) {
	b := mustBuilder(t, message.Headers{"a": "old"})
	b = b.SetHeaders(message.Headers{"a": "new", "z": nil})

	want := message.Headers{"a": "new", "z": nil}
	if diff := cmp.Diff(want, b.Headers()); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_Immutable(t *testing.T) {
	base := mustBuilder(t, nil)
	withA := base.SetHeader("a", "1")
	withB := base.SetHeader("b", "2")

	if len(base.Headers()) != 0 {
		t.Fatalf("base builder mutated: %+v", base.Headers())
	}

	if _, ok := withA.Headers()["b"]; ok {
		t.Fatalf("sibling builders share state")
	}

	if _, ok := withB.Headers()["a"]; ok {
		t.Fatalf("sibling builders share state")
	}
}

func TestWithSpan_NilSpanIsNoop(t *testing.T) {
	b := mustBuilder(t, message.Headers{"foo": "bar"})
	current := trace.Span{ParentIDs: []uint64{9}}

	got := b.WithSpan(nil, current).Headers()
	if diff := cmp.Diff(message.Headers{"foo": "bar"}, got); diff != "" {
		t.Fatalf("nil span touched headers (-want +got):\n%s", diff)
	}
}

func TestWithSpan_NonClobber(t *testing.T) {
	existing := message.Headers{}
	for _, h := range traceHeaders {
		existing[h] = "caller-" + h
	}

	span := trace.Span{Trace: 1, ID: 2, SpanName: "op", Process: "pid"}
	current := trace.Span{ParentIDs: []uint64{3}}

	got := mustBuilder(t, existing).WithSpan(span, current).Headers()
	if diff := cmp.Diff(existing, got); diff != "" {
		t.Fatalf("trace context clobbered caller headers (-want +got):\n%s", diff)
	}
}

func TestWithSpan_NullIsAbsent(t *testing.T) {
	span := trace.Span{Trace: 1, ID: 2, SpanName: "op", Process: "pid"}
	current := trace.Span{ParentIDs: []uint64{3}}

	nulls := message.Headers{}
	for _, h := range traceHeaders {
		nulls[h] = nil
	}

	fromNull := mustBuilder(t, nulls).WithSpan(span, current).Headers()
	fromEmpty := mustBuilder(t, nil).WithSpan(span, current).Headers()

	if diff := cmp.Diff(fromEmpty, fromNull); diff != "" {
		t.Fatalf("null header differs from absent header (-absent +null):\n%s", diff)
	}
}

type pointerSpan struct{ trace.Span }

func (s *pointerSpan) TraceID() uint64   { return s.Trace }
func (s *pointerSpan) SpanID() uint64    { return s.ID }
func (s *pointerSpan) Parents() []uint64 { return s.ParentIDs }
func (s *pointerSpan) Name() string      { return s.SpanName }
func (s *pointerSpan) ProcessID() string { return s.Process }

func TestWithSpan_NilPointerSpan(t *testing.T) {
	var nilSpan *pointerSpan
	b := mustBuilder(t, message.Headers{"foo": "bar"})

	got := b.WithSpan(nilSpan, trace.Span{ParentIDs: []uint64{9}}).Headers()
	if diff := cmp.Diff(message.Headers{"foo": "bar"}, got); diff != "" {
		t.Fatalf("nil pointer span touched headers (-want +got):\n%s", diff)
	}

	span := &pointerSpan{trace.Span{Trace: 1, ID: 2, SpanName: "op"}}

	got = b.WithSpan(span, nilSpan).Headers()
	if _, ok := got[trace.ParentIDHeader]; ok {
		t.Fatalf("nil pointer current should yield no parent: %+v", got)
	}

	if got[trace.SpanIDHeader] != "2" {
		t.Fatalf("span id: %v", got[trace.SpanIDHeader])
	}
}

func TestWithSpan_ParentFromCurrent(t *testing.T) {
	span := trace.Span{Trace: 1, ID: 2, SpanName: "op", ParentIDs: []uint64{0xdead}}

	tests := []struct {
		name    string
		current trace.Context
		want    any
		present bool
	}{
		{"first of many", trace.Span{ParentIDs: []uint64{0x10, 0x11, 0x12}}, "10", true},
		{"no parents", trace.Span{}, nil, false},
		{"nil current", nil, nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mustBuilder(t, nil).WithSpan(span, tc.current).Headers()

			v, ok := got[trace.ParentIDHeader]
			if ok != tc.present || v != tc.want {
				t.Fatalf("parent id = %v (present=%v), want %v (present=%v)", v, ok, tc.want, tc.present)
			}
		})
	}
}

func TestWithSpan_ProcessID(t *testing.T) {
	for _, pid := range []string{"", "   "} {
		got := mustBuilder(t, nil).WithSpan(trace.Span{Process: pid}, nil).Headers()
		if _, ok := got[trace.ProcessIDHeader]; ok {
			t.Fatalf("blank process id %q should be omitted", pid)
		}
	}

	got := mustBuilder(t, nil).WithSpan(trace.Span{Process: "app-1"}, nil).Headers()
	if got[trace.ProcessIDHeader] != "app-1" {
		t.Fatalf("process id: %v", got[trace.ProcessIDHeader])
	}
}

func TestWithSpan_Idempotent(t *testing.T) {
	span := trace.Span{Trace: 0xabc, ID: 0xdef, SpanName: "op", Process: "pid"}
	current := trace.Span{ParentIDs: []uint64{1, 2}}
	b := mustBuilder(t, message.Headers{"foo": "bar"})

	once := b.WithSpan(span, current).Headers()
	twice := b.WithSpan(span, current).WithSpan(span, current).Headers()

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("re-application changed headers (-once +twice):\n%s", diff)
	}
}

func TestBuild_Classification(t *testing.T) {
	b := mustBuilder(t, message.Headers{
		"":                        "dropped",
		"foo":                     "bar",
		"count":                   7,
		"nothing":                 nil,
		message.DestinationHeader: "/topic/a",
		message.HeartbeatHeader:   []int64{10, 10},
		trace.NotSampledHeader:    true,
	})

	out := b.Build()

	if out.Payload != "payload" {
		t.Fatalf("payload: %v", out.Payload)
	}

	wantTyped := message.Headers{
		message.DestinationHeader: "/topic/a",
		message.MessageTypeHeader: message.MessageTypeMessage,
		message.HeartbeatHeader:   []int64{10, 10},
		trace.NotSampledHeader:    true,
	}
	if diff := cmp.Diff(wantTyped, out.Headers); diff != "" {
		t.Fatalf("typed bucket mismatch (-want +got):\n%s", diff)
	}

	wantNative := map[string]message.NativeValue{
		"foo":     {Value: "bar", Valid: true},
		"count":   {Value: "7", Valid: true},
		"nothing": {},
	}
	if diff := cmp.Diff(wantNative, out.Native); diff != "" {
		t.Fatalf("native bucket mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Totality(t *testing.T) {
	in := message.Headers{"": 1, "a": nil, "b": "x", trace.SpanIDHeader: "1", message.UserHeader: nil}
	out := mustBuilder(t, in).Build()

	for k := range in {
		_, typed := out.Headers[k]
		_, native := out.Native[k]

		if k == "" {
			if typed || native {
				t.Fatalf("empty key should be dropped")
			}

			continue
		}

		if typed == native {
			t.Fatalf("key %q: typed=%v native=%v, want exactly one", k, typed, native)
		}
	}

	// "" is dropped and simpMessageType is added.
	if len(out.Headers)+len(out.Native) != len(in) {
		t.Fatalf("unexpected bucket sizes: %d typed, %d native", len(out.Headers), len(out.Native))
	}
}

func TestBuild_MessageType(t *testing.T) {
	tests := []struct {
		name string
		in   message.Headers
		want any
	}{
		{"defaulted", nil, message.MessageTypeMessage},
		{"null is defaulted", message.Headers{message.MessageTypeHeader: nil}, message.MessageTypeMessage},
		{"source wins", message.Headers{message.MessageTypeHeader: "HEARTBEAT"}, "HEARTBEAT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := mustBuilder(t, tc.in).Build()
			if out.Headers[message.MessageTypeHeader] != tc.want {
				t.Fatalf("message type = %v, want %v", out.Headers[message.MessageTypeHeader], tc.want)
			}

			if _, ok := out.Native[message.MessageTypeHeader]; ok {
				t.Fatalf("message type leaked into native headers")
			}
		})
	}
}

func TestScenario_FooBarWithRootSpan(t *testing.T) {
	span := trace.Span{Trace: 1, ID: 2, SpanName: "op"}

	out := mustBuilder(t, message.Headers{"foo": "bar"}).WithSpan(span, span).Build()

	wantTyped := message.Headers{
		message.MessageTypeHeader: message.MessageTypeMessage,
		trace.SpanIDHeader:        "2",
		trace.TraceIDHeader:       "1",
		trace.SpanNameHeader:      "op",
	}
	if diff := cmp.Diff(wantTyped, out.Headers); diff != "" {
		t.Fatalf("typed bucket mismatch (-want +got):\n%s", diff)
	}

	wantNative := map[string]message.NativeValue{"foo": {Value: "bar", Valid: true}}
	if diff := cmp.Diff(wantNative, out.Native); diff != "" {
		t.Fatalf("native bucket mismatch (-want +got):\n%s", diff)
	}
}

func TestScenario_PresetSpanIDWins(t *testing.T) {
	span := trace.Span{Trace: 1, ID: 2, SpanName: "op"}

	out := mustBuilder(t, message.Headers{"X-Span-Id": "99"}).WithSpan(span, nil).Build()
	if out.Headers[trace.SpanIDHeader] != "99" {
		t.Fatalf("span id: %v", out.Headers[trace.SpanIDHeader])
	}
}

func TestOverridesBeforeTrace_CallerWins(t *testing.T) {
	span := trace.Span{Trace: 1, ID: 2, SpanName: "op"}

	out := mustBuilder(t, nil).
		SetHeaders(message.Headers{trace.SpanNameHeader: "custom"}).
		WithSpan(span, nil).
		Build()

	if out.Headers[trace.SpanNameHeader] != "custom" {
		t.Fatalf("span name: %v", out.Headers[trace.SpanNameHeader])
	}

	if out.Headers[trace.SpanIDHeader] != "2" {
		t.Fatalf("span id: %v", out.Headers[trace.SpanIDHeader])
	}
}
