package fanout

import (
	"context"
	"sync/atomic"
	"time"
)

// sleepChunk bounds how long adaptiveSleep waits between rechecking the
// shutdown flag and the context, so a worker told to stop never waits out
// a full tick interval before noticing.
const sleepChunk = 5 * time.Millisecond

// adaptiveSleep sleeps for interval, but in chunks no larger than
// sleepChunk, returning early (false) if ctx is cancelled or running flips
// to false. Returns true if the full interval elapsed undisturbed.
func adaptiveSleep(ctx context.Context, running *atomic.Bool, interval time.Duration) bool {
	for interval > 0 {
		chunk := sleepChunk
		if chunk > interval {
			chunk = interval
		}
		timer := time.NewTimer(chunk)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if running != nil && !running.Load() {
			return false
		}
		interval -= chunk
	}
	return true
}

// processStart anchors monotonicNow; time.Since on it uses the monotonic
// clock reading that time.Now() carries.
var processStart = time.Now()

// monotonicNow returns a nanosecond timestamp suitable for the double-frame
// store's capture-timestamp field: nanoseconds elapsed since processStart
// on the monotonic clock, so it never goes backwards within a process.
func monotonicNow() int64 {
	return int64(time.Since(processStart))
}
