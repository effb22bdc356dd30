// Package registry implements the client registry (C5): a fixed-capacity
// slot table plus id index guarded by a single sync.RWMutex, grounded
// directly on the teacher's Room type (room.go) — a central
// map[uint16]*Client behind one RWMutex, with an atomic counter minting
// ids and per-client hot fields promoted to atomics so the four per-client
// worker goroutines never contend on the registry's lock. The lock
// ordering (Registry outermost, Mixer next, per-store/queue mutexes
// innermost) follows the spec's deadlock-freedom proof: Remove does call
// into a client's queue, stores and transport, and into the mixer, while
// holding its own lock, always from the outermost level inward, and it
// never joins worker goroutines with the lock held.
package registry

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/asciichat/fanout/internal/config"
	"github.com/asciichat/fanout/internal/fanout"
	"github.com/asciichat/fanout/internal/fanout/asciiencoder"
	"github.com/asciichat/fanout/internal/fanout/mixer"
	"github.com/asciichat/fanout/internal/ledger"
	"gopkg.in/hraban/opus.v2"
)

// ErrFull is returned by Add when every slot is occupied.
var ErrFull = errors.New("registry: at capacity")

// videoFrameStoreCapacity bounds a client's incoming/outgoing video
// double-frame stores: 8-byte dimension header plus the largest RGB frame
// the wire format permits.
const videoFrameStoreCapacity = 8 + 4096*2160*3

// audioRingCapacity is sized generously above one Opus frame's worth of
// samples so a momentarily slow consumer doesn't immediately start
// dropping (spec: excess is dropped at the tail, never overwritten).
const audioRingCapacity = 1 << 14

// Registry owns every connected Client's lifecycle.
type Registry struct {
	maxSlots int

	mu      sync.RWMutex
	slots   []*fanout.Client
	idIndex map[uint32]int
	nextID  atomic.Uint32

	mixer   *mixer.Mixer
	running atomic.Bool

	videoCfg  fanout.VideoWorkerConfig
	audioCfg  fanout.AudioWorkerConfig
	audioQMax int
	sink      ledger.EventSink
}

// New returns an empty Registry sized for cfg.MaxClients, wired to use
// conv for ASCII rendering and the given Opus settings for audio. sink may
// be nil, in which case operational events are dropped.
func New(cfg config.Config, conv asciiencoder.Converter, sink ledger.EventSink) *Registry {
	if sink == nil {
		sink = ledger.NoopSink{}
	}
	r := &Registry{
		maxSlots: cfg.MaxClients,
		slots:    make([]*fanout.Client, cfg.MaxClients),
		idIndex:  make(map[uint32]int, cfg.MaxClients),
		mixer:    mixer.New(cfg.MaxClients),
		videoCfg: fanout.VideoWorkerConfig{
			DefaultFPS: cfg.VideoFPS,
			MinFPS:     1,
			MaxFPS:     144,
			Converter:  conv,
		},
		audioCfg: fanout.AudioWorkerConfig{
			BitrateBps:  cfg.OpusBitrateBps,
			Application: opusApplication(cfg.OpusApplication),
			Interval:    cfg.AudioInterval(),
		},
		audioQMax: cfg.AudioQueueMax,
		sink:      sink,
	}
	r.running.Store(true)
	return r
}

// Add admits a new client over transport, allocates its buffers, and spawns
// its four workers in the order Receive -> Send -> VideoRender ->
// AudioRender. Returns ResourceExhausted-flavored ErrFull if the registry
// is at capacity; does not partially initialize in that case.
func (r *Registry) Add(transport fanout.Transport) (uint32, error) {
	r.mu.Lock()
	idx := -1
	for i, s := range r.slots {
		if s == nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return 0, ErrFull
	}

	var id uint32
	for {
		id = r.nextID.Add(1)
		if id != 0 {
			break
		}
	}

	client := fanout.NewClient(id, transport, videoFrameStoreCapacity, audioRingCapacity, r.audioQMax)
	client.EventSink = r.sink
	r.slots[idx] = client
	r.idIndex[id] = idx
	r.mu.Unlock()

	r.sink.RecordEvent(id, ledger.ClientConnected, transport.RemoteAddr())

	ctx := client.Workers.Begin(context.Background())
	client.Workers.Spawn(ctx, func(ctx context.Context) {
		fanout.RunReceiveWorker(ctx, client, r.onTransportClosed)
	})
	client.Workers.Spawn(ctx, func(ctx context.Context) {
		fanout.RunSendWorker(ctx, client, &r.running)
	})
	client.Workers.Spawn(ctx, func(ctx context.Context) {
		fanout.RunVideoWorker(ctx, client, r, r.videoCfg, &r.running)
	})
	client.Workers.Spawn(ctx, func(ctx context.Context) {
		fanout.RunAudioWorker(ctx, client, r.mixer, r.audioCfg, &r.running)
	})

	client.SetState(fanout.Active)
	if err := r.mixer.AddSource(id, client.IncomingAudio); err != nil {
		// Full mixer with an otherwise-successful slot grant is the one
		// partial-failure mode Add can hit; tear the client back down
		// rather than leave I4 violated (Active client with no mixer
		// source).
		log.Printf("[registry] mixer add_source failed for client %d: %v", id, err)
		r.Remove(id)
		return 0, ErrFull
	}

	return id, nil
}

// Remove transitions id to Draining, shuts down its queues/stores/
// transport, joins its workers without holding the registry lock, then
// clears its slot. Safe to call more than once for the same id (the
// second call is a no-op).
func (r *Registry) Remove(id uint32) {
	r.mu.Lock()
	idx, ok := r.idIndex[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	client := r.slots[idx]
	client.SetState(fanout.Draining)
	client.OutgoingAudioQueue.Shutdown()
	client.IncomingVideo.CommitEmpty()
	client.OutgoingVideo.CommitEmpty()
	_ = client.Transport.Close()
	r.mu.Unlock()

	client.Workers.Stop()
	client.Workers.Join()

	r.mu.Lock()
	r.mixer.RemoveSource(id)
	delete(r.idIndex, id)
	r.slots[idx] = nil
	r.mu.Unlock()

	client.SetState(fanout.Closed)
	r.sink.RecordEvent(id, ledger.ClientDisconnected, client.Transport.RemoteAddr())
}

// onTransportClosed is handed to each client's receive worker as its
// terminal-error callback. It must never run synchronously inside the
// worker that is about to return (Remove joins that very worker), so it
// hands off to a fresh goroutine per §4.10's "never from within the
// worker itself" rule.
func (r *Registry) onTransportClosed(id uint32) {
	go r.Remove(id)
}

// Snapshot implements fanout.RegistrySnapshotter: a read-locked,
// point-in-time copy of every occupied slot, used by the grid compositor's
// collection phase (C6 step 1).
func (r *Registry) Snapshot() []fanout.ClientSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]fanout.ClientSnapshot, 0, len(r.slots))
	for _, c := range r.slots {
		if c == nil {
			continue
		}
		out = append(out, fanout.ClientSnapshot{
			ID:             c.ID,
			Active:         c.State() == fanout.Active,
			IsSendingVideo: c.IsSendingVideo(),
			Width:          int(c.Width.Load()),
			Height:         int(c.Height.Load()),
			IncomingVideo:  c.IncomingVideo,
		})
	}
	return out
}

// Count returns the number of occupied slots.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.slots {
		if c != nil {
			n++
		}
	}
	return n
}

// Lookup returns the client for id and whether it was found. Intended for
// admin/diagnostic reads only — hot-path worker code must never take this
// path to reach another client's state (it would be a Registry lock
// re-entry from inside a worker, the one ordering violation the spec
// forbids).
func (r *Registry) Lookup(id uint32) (*fanout.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.idIndex[id]
	if !ok {
		return nil, false
	}
	return r.slots[idx], true
}

// Shutdown flips the shared running flag false, causing every worker's
// next adaptive-sleep chunk to observe it and exit, then removes every
// remaining client.
func (r *Registry) Shutdown() {
	r.running.Store(false)
	r.mu.RLock()
	ids := make([]uint32, 0, len(r.idIndex))
	for id := range r.idIndex {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		r.Remove(id)
	}
}

func opusApplication(a config.OpusApplication) opus.Application {
	if a == config.OpusApplicationVoip {
		return opus.AppVoIP
	}
	return opus.AppAudio
}
