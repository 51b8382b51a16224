package memory

import (
	"github.com/next-trace/scg-stomp-trace/adapters/inmemory"
	"github.com/next-trace/scg-stomp-trace/messaging"
)

// New constructs a messaging template backed by the in-memory sender and returns it
// along with the sender (for inspecting deliveries) and a cleanup function that closes the template.
func New(opts ...messaging.Option) (*messaging.Template, *inmemory.Sender, func()) {
	s := inmemory.New()
	tpl := messaging.New(s, nil, opts...)
	cleanup := func() { _ = tpl.Close() }

	return tpl, s, cleanup
}
