package trace

import (
	"context"
	"strconv"
)

// Header names that carry trace identity across process boundaries.
const (
	TraceIDHeader    = "X-Trace-Id"
	SpanIDHeader     = "X-Span-Id"
	ParentIDHeader   = "X-Parent-Id"
	SpanNameHeader   = "X-Span-Name"
	ProcessIDHeader  = "X-Process-Id"
	NotSampledHeader = "X-Not-Sampled"
)

// Headers lists the trace header names.
func Headers() []string {
	return []string{
		TraceIDHeader,
		SpanIDHeader,
		ParentIDHeader,
		SpanNameHeader,
		ProcessIDHeader,
		NotSampledHeader,
	}
}

// Context is a read-only view of a traced unit of work.
// Implementations may bridge to any tracing library.
type Context interface {
	TraceID() uint64
	SpanID() uint64
	// Parents is ordered; the first entry is the immediate parent.
	Parents() []uint64
	Name() string
	ProcessID() string
}

// Span is a plain Context implementation.
type Span struct {
	Trace     uint64
	ID        uint64
	ParentIDs []uint64
	SpanName  string
	Process   string
}

var _ Context = Span{}

func (s Span) TraceID() uint64   { return s.Trace }
func (s Span) SpanID() uint64    { return s.ID }
func (s Span) Parents() []uint64 { return s.ParentIDs }
func (s Span) Name() string      { return s.SpanName }
func (s Span) ProcessID() string { return s.Process }

// ChildOf returns a span in the same trace whose immediate parent is s.
func (s Span) ChildOf(id uint64, name string) Span {
	parents := make([]uint64, 0, len(s.ParentIDs)+1)
	parents = append(parents, s.ID)
	parents = append(parents, s.ParentIDs...)

	return Span{
		Trace:     s.Trace,
		ID:        id,
		ParentIDs: parents,
		SpanName:  name,
		Process:   s.Process,
	}
}

// Hex formats an id as lowercase hexadecimal without padding.
func Hex(id uint64) string { return strconv.FormatUint(id, 16) }

type contextKey struct{}

// WithCurrent returns a copy of ctx that carries c as the in-flight trace context.
func WithCurrent(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the in-flight trace context carried by ctx, or nil.
func FromContext(ctx context.Context) Context { //nolint:ireturn
	if ctx == nil {
		return nil
	}

	c, _ := ctx.Value(contextKey{}).(Context)

	return c
}
