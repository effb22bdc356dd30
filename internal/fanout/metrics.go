package fanout

import (
	"sync/atomic"

	"github.com/asciichat/fanout/internal/fanout/framestore"
)

// Metrics holds per-client counters the workers update. The admin HTTP
// surface (/stats, /metrics) does not read them. All fields are safe for
// concurrent use without any lock.
type Metrics struct {
	FramesRendered         atomic.Uint64
	FramesDuplicateSkipped atomic.Uint64
	FramesLagged           atomic.Uint64
	OpusFramesEncoded      atomic.Uint64
	BackpressureSkips      atomic.Uint64
	FramesRejected         atomic.Uint64
}

// ClientSnapshot is the stack-allocated-in-spirit copy the registry's
// snapshot phase produces: just enough about one client to drive the grid
// compositor's collection phase without holding any lock past the copy.
type ClientSnapshot struct {
	ID             uint32
	Active         bool
	IsSendingVideo bool
	Width          int
	Height         int
	IncomingVideo  *framestore.Store
}

// RegistrySnapshotter is the minimal view the video worker needs of the
// client registry: a point-in-time copy of every non-empty slot. Declared
// here (rather than imported from the registry package) so this package
// has no dependency on registry, even though registry depends on it for
// the Client type — the registry implements this interface, not the
// other way around.
type RegistrySnapshotter interface {
	Snapshot() []ClientSnapshot
}
