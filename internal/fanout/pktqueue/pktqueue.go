// Package pktqueue implements the bounded outbound packet FIFO used by each
// client's audio render worker: a fixed-depth queue with non-blocking
// enqueue/dequeue and cooperative shutdown, grounded on the teacher's use of
// buffered Go channels with explicit drop counters for capture/playback
// audio (client.AudioEngine.CaptureOut/PlaybackIn), generalized here into a
// reusable type with the Full/Shutdown error semantics the spec requires.
package pktqueue

import (
	"errors"
	"sync"
)

// ErrFull is returned by Enqueue when the queue is at capacity.
var ErrFull = errors.New("pktqueue: full")

// ErrShutdown is returned by Enqueue after Shutdown has been called.
var ErrShutdown = errors.New("pktqueue: shut down")

// DefaultMaxDepth is the default bounded depth (spec: audio_queue_max).
const DefaultMaxDepth = 50

// Queue is a bounded FIFO of byte-slice packets. The queue owns the payload
// passed to Enqueue (copy-on-enqueue semantics), so a caller may reuse or
// mutate its slice after enqueuing it.
type Queue struct {
	maxDepth int

	mu       sync.Mutex
	items    [][]byte
	shutdown bool
}

// New returns a Queue bounded at maxDepth entries.
func New(maxDepth int) *Queue {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Queue{maxDepth: maxDepth}
}

// Enqueue appends packet to the tail of the queue. It copies the payload so
// the queue owns its own copy. Returns ErrFull if the queue is at capacity,
// or ErrShutdown if Shutdown has been called.
func (q *Queue) Enqueue(packet []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return ErrShutdown
	}
	if len(q.items) >= q.maxDepth {
		return ErrFull
	}
	cp := make([]byte, len(packet))
	copy(cp, packet)
	q.items = append(q.items, cp)
	return nil
}

// TryDequeue pops the oldest packet without blocking. ok is false if the
// queue was empty.
func (q *Queue) TryDequeue() (packet []byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	packet = q.items[0]
	q.items = q.items[1:]
	return packet, true
}

// Shutdown marks the queue as shut down; subsequent Enqueue calls fail with
// ErrShutdown. Previously enqueued items remain dequeuable so the send
// worker can drain whatever was already queued before it observes shutdown.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shutdown = true
}

// Size returns the exact current depth of the queue.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
