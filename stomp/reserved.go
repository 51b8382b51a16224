package stomp

import (
	"sort"

	"github.com/next-trace/scg-stomp-trace/contract/message"
	"github.com/next-trace/scg-stomp-trace/contract/trace"
)

// reserved is built once at init and never written afterwards.
var reserved = func() map[string]struct{} {
	names := append(message.ProtocolHeaders(), trace.Headers()...)

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}

	return set
}()

// IsReserved reports whether name needs typed handling rather than native string handling.
func IsReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// ReservedHeaderNames returns the reserved header names, sorted.
func ReservedHeaderNames() []string {
	names := make([]string, 0, len(reserved))
	for n := range reserved {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}
