// Package mixer implements the audio mixer: a registry of per-client ring
// buffer sources and a sum-excluding-one mix operation, so every recipient
// hears everyone but themselves. Grounded on the teacher's voice.AudioMixer
// (a registry of per-user jitter buffers behind a mutex-protected map,
// exposing a GetMixedAudio-style read), simplified here to the spec's flat
// slot table with a single exported mix operation and a reader/writer lock
// split so concurrent audio render workers never block each other during
// the common case (concurrent reads).
package mixer

import (
	"errors"
	"sync"
)

// ErrDuplicateSource is returned by AddSource when clientID is already
// registered.
var ErrDuplicateSource = errors.New("mixer: duplicate source")

// ErrFull is returned by AddSource when the mixer is at max_sources.
var ErrFull = errors.New("mixer: full")

// Source abstracts the per-client ring buffer the mixer reads from. Only a
// Read method is needed, so audioring.Buffer satisfies it directly and
// tests can substitute fakes.
type Source interface {
	Read(dst []float32) int
}

type slot struct {
	clientID uint32
	source   Source
}

// Mixer holds a slot table of (client_id, ring-buffer) pairs and supports
// exclusion-aware mixing. Safe for concurrent use: mix_excluding takes a
// read lock, add/remove take a write lock.
type Mixer struct {
	maxSources int

	mu    sync.RWMutex
	slots []slot
}

// New returns a Mixer that can hold up to maxSources concurrent sources.
func New(maxSources int) *Mixer {
	return &Mixer{maxSources: maxSources}
}

// AddSource registers clientID's ring buffer as a mixable source. Fails if
// clientID is already registered or the mixer is full.
func (m *Mixer) AddSource(clientID uint32, source Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.clientID == clientID {
			return ErrDuplicateSource
		}
	}
	if len(m.slots) >= m.maxSources {
		return ErrFull
	}
	m.slots = append(m.slots, slot{clientID: clientID, source: source})
	return nil
}

// RemoveSource unregisters clientID's source. Idempotent: removing an
// unregistered id is a no-op.
func (m *Mixer) RemoveSource(clientID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.slots {
		if s.clientID == clientID {
			m.slots = append(m.slots[:i], m.slots[i+1:]...)
			return
		}
	}
}

// SourceCount returns the number of currently registered sources.
func (m *Mixer) SourceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}

// MixExcluding reads up to len(dst) samples from every source whose client
// id is not excludeID, accumulating them elementwise into dst (which the
// caller must have zeroed, or which starts zero-valued). It returns the
// largest sample count any single source provided this call. Clipping to
// [-1, 1] is the caller's responsibility per the mixing policy.
func (m *Mixer) MixExcluding(dst []float32, excludeID uint32) (samplesWritten int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scratch := make([]float32, len(dst))
	for _, s := range m.slots {
		if s.clientID == excludeID {
			continue
		}
		for i := range scratch {
			scratch[i] = 0
		}
		n := s.source.Read(scratch)
		if n > samplesWritten {
			samplesWritten = n
		}
		for i := 0; i < n; i++ {
			dst[i] += scratch[i]
		}
	}
	return samplesWritten
}

// SoftClip clamps every sample in buf to [-1.0, 1.0] in place. This is the
// mixer's documented clipping policy (spec §4.4): Opus tolerates slightly
// out-of-range floats, but the mixer hard-clips rather than relying on that.
func SoftClip(buf []float32) {
	for i, v := range buf {
		if v > 1.0 {
			buf[i] = 1.0
		} else if v < -1.0 {
			buf[i] = -1.0
		}
	}
}
