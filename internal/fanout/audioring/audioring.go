// Package audioring implements the fixed-capacity circular sample buffer
// each client's incoming audio path writes into and the mixer reads from.
// The ring technique (power-of-two capacity, mask instead of modulo) is
// grounded on the teacher's per-sender jitter buffer (client/internal/jitter),
// adapted from reordering discrete voice frames to accumulating a
// continuous f32 PCM stream: overwrites are never permitted here, so a
// producer that outruns the consumer drops samples at the tail and records
// a counter instead of clobbering unread data.
package audioring

import "sync"

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Buffer is a fixed-capacity circular buffer of float32 samples.
type Buffer struct {
	mu      sync.Mutex
	buf     []float32
	mask    int
	readPos int
	count   int // number of unread samples currently buffered

	dropped uint64 // samples dropped because the buffer was full
}

// New returns a Buffer capable of holding at least capacity samples
// (rounded up to the next power of two).
func New(capacity int) *Buffer {
	size := nextPowerOfTwo(capacity)
	return &Buffer{
		buf:  make([]float32, size),
		mask: size - 1,
	}
}

// Write appends samples to the buffer. If the buffer does not have room for
// all of them, the excess is dropped at the tail (not written) and the
// dropped-sample counter is incremented accordingly; already-buffered
// samples are never overwritten.
func (b *Buffer) Write(samples []float32) (written int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.buf)
	free := capacity - b.count
	n := len(samples)
	if n > free {
		b.dropped += uint64(n - free)
		n = free
	}
	writePos := (b.readPos + b.count) & b.mask
	for i := 0; i < n; i++ {
		b.buf[(writePos+i)&b.mask] = samples[i]
	}
	b.count += n
	return n
}

// Read copies up to len(dst) unread samples into dst, advancing the read
// position, and returns how many were copied. If fewer than len(dst)
// samples are available, only those are copied (no zero-fill — the mixer
// treats a short read as "this source had less to offer this tick").
func (b *Buffer) Read(dst []float32) (n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = len(dst)
	if n > b.count {
		n = b.count
	}
	for i := 0; i < n; i++ {
		dst[i] = b.buf[(b.readPos+i)&b.mask]
	}
	b.readPos = (b.readPos + n) & b.mask
	b.count -= n
	return n
}

// Available reports how many unread samples are currently buffered.
func (b *Buffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the cumulative count of samples dropped due to the buffer
// being full, for observability.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
