package fanout

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/asciichat/fanout/internal/fanout/mixer"
	"github.com/asciichat/fanout/internal/ledger"
	"github.com/asciichat/fanout/internal/wire"
	"gopkg.in/hraban/opus.v2"
)

const (
	audioSampleRate      = 48000
	audioChannels        = 1
	audioMixSamplesTick  = 480 // 10 ms at 48 kHz
	opusFrameSamples     = 960 // 20 ms at 48 kHz
	opusFrameDurationMs  = 20
	backpressureSampleEvery = 100
	backpressureQueueDepth  = 50
)

// Excluder is the subset of the mixer's API the audio worker needs;
// satisfied by *mixer.Mixer, which the registry always passes in.
// Config.NoAudioMixer does not select a different implementation.
type Excluder interface {
	MixExcluding(dst []float32, excludeID uint32) int
}

// AudioWorkerConfig carries the process-level Opus tuning the audio render
// loop needs.
type AudioWorkerConfig struct {
	BitrateBps  int
	Application opus.Application
	Interval    time.Duration
}

// RunAudioWorker is the audio render worker (C9): one per client, mixing
// everyone-but-self at a fixed cadence, accumulating into Opus frames, and
// enqueueing the encoded result for the send worker to transmit.
func RunAudioWorker(ctx context.Context, self *Client, mx Excluder, cfg AudioWorkerConfig, running *atomic.Bool) {
	enc, err := opus.NewEncoder(audioSampleRate, audioChannels, cfg.Application)
	if err != nil {
		log.Printf("[audio %d] opus encoder init failed: %v", self.ID, err)
		return
	}
	if cfg.BitrateBps > 0 {
		enc.SetBitrate(cfg.BitrateBps)
	}

	accumulator := make([]float32, 0, opusFrameSamples)
	opusBuf := make([]byte, 4000) // generous upper bound for a 20 ms frame at typical bitrates
	iteration := 0
	lastTick := time.Now()

	for {
		if ctx.Err() != nil {
			return
		}
		if s := self.State(); s == Draining || s == Closed {
			return
		}
		if mx == nil {
			if !adaptiveSleep(ctx, running, cfg.Interval) {
				return
			}
			continue
		}

		now := time.Now()
		elapsed := now.Sub(lastTick)
		lastTick = now

		mixCount := audioMixSamplesTick
		if elapsed > cfg.Interval*3/2 {
			mixCount = opusFrameSamples // behind: catch up
		}
		if room := opusFrameSamples - len(accumulator); mixCount > room {
			mixCount = room
		}
		if mixCount > 0 {
			buf := make([]float32, mixCount)
			n := mx.MixExcluding(buf, self.ID)
			mixer.SoftClip(buf[:n])
			accumulator = append(accumulator, buf[:n]...)
		}

		iteration++
		if iteration%backpressureSampleEvery == 0 && self.OutgoingAudioQueue.Size() > backpressureQueueDepth {
			depth := self.OutgoingAudioQueue.Size()
			log.Printf("[audio %d] outbound queue depth %d exceeds backpressure threshold, skipping one encode", self.ID, depth)
			accumulator = accumulator[:0]
			self.Metrics.BackpressureSkips.Add(1)
			self.EventSink.RecordEvent(self.ID, ledger.BackpressureSkip, fmt.Sprintf("queue_depth=%d", depth))
		}

		if len(accumulator) >= opusFrameSamples {
			n, err := enc.EncodeFloat32(accumulator[:opusFrameSamples], opusBuf)
			accumulator = accumulator[:0]
			if err != nil {
				log.Printf("[audio %d] opus encode error: %v", self.ID, err)
			} else {
				payload := wire.EncodeAudioOpusBatch(wire.AudioOpusBatch{
					SampleRate:      audioSampleRate,
					FrameDurationMs: opusFrameDurationMs,
					FrameSizes:      []uint16{uint16(n)},
					OpusBytes:       append([]byte(nil), opusBuf[:n]...),
				})
				if err := self.OutgoingAudioQueue.Enqueue(payload); err != nil {
					log.Printf("[audio %d] enqueue: %v", self.ID, err)
				} else {
					self.Metrics.OpusFramesEncoded.Add(1)
				}
			}
		}

		if !adaptiveSleep(ctx, running, cfg.Interval) {
			return
		}
	}
}
