package message

import (
	"fmt"
	"sort"
)

// Headers maps header names to values of any type.
// A key mapped to nil is explicitly absent, which is not the same as a missing key.
type Headers map[string]any

// Clone returns a shallow copy of h. A nil h yields an empty, non-nil map.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = v
	}

	return out
}

// Keys returns the header names in ascending order.
func (h Headers) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Message is a payload together with the headers it arrived with.
// It is read-only input for the builder.
type Message struct {
	Payload any
	Headers Headers
}

// NativeValue is a header value serialized as a string.
// Valid is false when the source value was nil; Value is then empty and carries no meaning.
type NativeValue struct {
	Value string
	Valid bool
}

// Stringify converts v to its native string form using its canonical string representation.
func Stringify(v any) NativeValue {
	if v == nil {
		return NativeValue{}
	}

	return NativeValue{Value: fmt.Sprint(v), Valid: true}
}

// Outbound is a finalized message. Headers holds values that need typed handling,
// Native holds everything else as strings. It must not be modified after construction.
type Outbound struct {
	Payload any
	Headers Headers
	Native  map[string]NativeValue
}

// HeaderNames returns every header name across both buckets, sorted.
func (m *Outbound) HeaderNames() []string {
	names := make([]string, 0, len(m.Headers)+len(m.Native))
	for k := range m.Headers {
		names = append(names, k)
	}

	for k := range m.Native {
		names = append(names, k)
	}

	sort.Strings(names)

	return names
}

// Destination returns the typed destination header as a string, or "" when unset.
func (m *Outbound) Destination() string {
	v, ok := m.Headers[DestinationHeader]
	if !ok || v == nil {
		return ""
	}

	return fmt.Sprint(v)
}

// TransportHeaders flattens both buckets into string headers for transports that only carry strings.
// Null native values and nil typed values are omitted.
func (m *Outbound) TransportHeaders() map[string]string {
	h := make(map[string]string, len(m.Headers)+len(m.Native))
	for k, v := range m.Native {
		if v.Valid {
			h[k] = v.Value
		}
	}

	for k, v := range m.Headers {
		if s := Stringify(v); s.Valid {
			h[k] = s.Value
		}
	}

	return h
}
