// Package fanout is the core real-time media fanout engine: the per-client
// worker loops (C8-C11) and the Client type they share, built on the
// lower-level buffer components (framestore, pktqueue, audioring, mixer)
// and the Registry that owns client lifecycle. Grounded throughout on the
// teacher's Client/Room pairing (room.go, client.go): a central map of
// clients guarded by a single RWMutex, with hot per-client fields promoted
// to atomics so the per-connection goroutines never contend on it.
package fanout

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/asciichat/fanout/internal/fanout/audioring"
	"github.com/asciichat/fanout/internal/fanout/framestore"
	"github.com/asciichat/fanout/internal/fanout/pktqueue"
	"github.com/asciichat/fanout/internal/ledger"
	"github.com/asciichat/fanout/internal/wire"
)

// Transport is the minimal abstraction a Client communicates over. The
// concrete implementations (WebSocket, WebTransport, in-process pipe) live
// in internal/transport; this package only depends on the interface, the
// same boundary the teacher draws between its Room/Client logic and the
// net/http + gorilla/websocket plumbing in server.go.
type Transport interface {
	RecvPacket(ctx context.Context) (wire.Packet, error)
	Send(ctx context.Context, p wire.Packet) error
	Close() error
	RemoteAddr() string
}

// State is a client's lifecycle stage. Transitions are monotonic:
// Connecting -> Active -> Draining -> Closed.
type State uint32

const (
	Connecting State = iota
	Active
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// RenderMode selects how a client's terminal wants frames drawn.
type RenderMode uint8

const (
	RenderForeground RenderMode = iota
	RenderBackground
	RenderHalfBlock
)

// Capabilities describes a client's terminal, set once from the
// ClientCapabilities control packet and read-only thereafter.
type Capabilities struct {
	ColorDepth   int
	PaletteChars string
	Mode         RenderMode
	DesiredWidth int
	DesiredHeight int
	DesiredFPS   int
}

// Client is one connected participant, owned exclusively by the Registry.
// Hot-path fields that workers read without holding any lock are atomics;
// everything else is either immutable after construction or owned by a
// finer-grained lock inside the referenced store/queue.
type Client struct {
	ID        uint32
	Transport Transport

	state atomic.Uint32

	capsMu sync.Mutex
	caps   Capabilities
	capsSet atomic.Bool

	isSendingVideo atomic.Bool

	// Width/Height are the client's current desired render dimensions in
	// characters, duplicated here as atomics (alongside Capabilities) so
	// the compositor's hot path (C6 phase 1 snapshot) never takes capsMu.
	Width  atomic.Uint32
	Height atomic.Uint32

	IncomingVideo      *framestore.Store
	IncomingAudio      *audioring.Buffer
	OutgoingVideo      *framestore.Store
	OutgoingAudioQueue *pktqueue.Queue

	Workers WorkerSet
	Metrics Metrics

	// EventSink receives operational events (frame_rejected, backpressure_skip)
	// this client's own workers observe. Set once by the registry before the
	// workers start. It must not be nil: workers call it without a nil check,
	// so NewClient installs ledger.NoopSink as the default.
	EventSink ledger.EventSink

	// lastVideoHash is a cheap 32-bit hash over the first bytes of the most
	// recently rendered outgoing frame, used by the video worker to skip
	// committing a frame identical to the previous one (duplicate
	// suppression).
	lastVideoHash atomic.Uint32
}

// NewClient constructs a Client in the Connecting state with freshly
// allocated buffers sized by the given capacities. It does not register the client with
// any registry or mixer; Registry.Add does that after construction
// succeeds.
func NewClient(id uint32, t Transport, videoCapacity, audioCapacity, audioQueueDepth int) *Client {
	c := &Client{
		ID:                 id,
		Transport:          t,
		IncomingVideo:      framestore.New(videoCapacity),
		IncomingAudio:      audioring.New(audioCapacity),
		OutgoingVideo:      framestore.New(videoCapacity),
		OutgoingAudioQueue: pktqueue.New(audioQueueDepth),
		EventSink:          ledger.NoopSink{},
	}
	c.state.Store(uint32(Connecting))
	return c
}

// State returns the client's current lifecycle state.
func (c *Client) State() State { return State(c.state.Load()) }

// SetState stores a new lifecycle state. Callers are responsible for only
// moving forward through Connecting -> Active -> Draining -> Closed.
func (c *Client) SetState(s State) { c.state.Store(uint32(s)) }

// SetCapabilities records the client's terminal capabilities. Called once,
// from the receive worker, after a ClientCapabilities control packet.
func (c *Client) SetCapabilities(caps Capabilities) {
	c.capsMu.Lock()
	c.caps = caps
	c.capsMu.Unlock()
	c.Width.Store(uint32(caps.DesiredWidth))
	c.Height.Store(uint32(caps.DesiredHeight))
	c.capsSet.Store(true)
}

// Capabilities returns the client's capabilities and whether they have
// been set yet.
func (c *Client) Capabilities() (Capabilities, bool) {
	if !c.capsSet.Load() {
		return Capabilities{}, false
	}
	c.capsMu.Lock()
	defer c.capsMu.Unlock()
	return c.caps, true
}

// SetSendingVideo toggles the is_sending_video flag (StreamStart/StreamStop).
func (c *Client) SetSendingVideo(sending bool) { c.isSendingVideo.Store(sending) }

// IsSendingVideo reports the is_sending_video flag.
func (c *Client) IsSendingVideo() bool { return c.isSendingVideo.Load() }

// LastVideoHash and SetLastVideoHash support the video worker's duplicate
// suppression (C8): skip committing when the newly encoded frame hashes the
// same as the last one committed.
func (c *Client) LastVideoHash() uint32        { return c.lastVideoHash.Load() }
func (c *Client) SetLastVideoHash(h uint32)     { c.lastVideoHash.Store(h) }

// WorkerSet holds the four per-client worker goroutines' lifecycle handles.
// Registry.Add spawns them in order Receive -> Send -> VideoRender ->
// AudioRender; Registry.Remove cancels all of them and then waits for all of
// them to return, outside the registry lock, matching the teacher's pattern of starting
// per-connection goroutines from Room.Join and tearing them down from a
// dedicated disconnect path rather than from the goroutines themselves.
type WorkerSet struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Begin derives a cancellable context from parent, records its cancel func
// for Stop, and returns the context workers should be spawned under. Must
// be called once, before any Spawn call, by the registry that owns this
// client.
func (w *WorkerSet) Begin(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	return ctx
}

// Spawn launches fn as a tracked worker goroutine under ctx. Exported so
// the registry package (which owns client lifecycle) can start the four
// per-client workers in the spec's required order.
func (w *WorkerSet) Spawn(ctx context.Context, fn func(context.Context)) {
	w.spawn(ctx, fn)
}

// spawn launches fn as a tracked worker goroutine under ctx (derived from
// the WorkerSet's own cancellation). A panic inside fn is recovered and
// logged rather than left to crash the whole process — one client's
// worker misbehaving must not take down every other client's.
func (w *WorkerSet) spawn(ctx context.Context, fn func(context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[worker] panic recovered: %v\n%s", r, debug.Stack())
			}
		}()
		fn(ctx)
	}()
}

// Stop cancels all workers spawned on this set. It does not block; call
// Join to wait for them to exit.
func (w *WorkerSet) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// Join blocks until all spawned workers have returned. Must never be
// called while holding the Registry lock.
func (w *WorkerSet) Join() { w.wg.Wait() }
