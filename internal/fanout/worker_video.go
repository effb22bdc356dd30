package fanout

import (
	"context"
	"hash/crc32"
	"log"
	"sync/atomic"
	"time"

	"github.com/asciichat/fanout/internal/fanout/asciiencoder"
	"github.com/asciichat/fanout/internal/fanout/compositor"
	"github.com/asciichat/fanout/internal/wire"
)

// defaultVideoHashPrefix is how many leading bytes of a rendered frame feed
// the duplicate-suppression hash (spec §4.8 step 9).
const defaultVideoHashPrefix = 1000

// VideoWorkerConfig carries the knobs the video render loop needs that
// come from process configuration rather than the client itself.
type VideoWorkerConfig struct {
	DefaultFPS int
	MinFPS     int
	MaxFPS     int
	Converter  asciiencoder.Converter
}

// RunVideoWorker is the video render worker (C8): one per client, composes
// the grid for this recipient at a capability-derived cadence and commits
// duplicate-suppressed ASCII frames into the client's outgoing store.
func RunVideoWorker(ctx context.Context, self *Client, reg RegistrySnapshotter, cfg VideoWorkerConfig, running *atomic.Bool) {
	for {
		if ctx.Err() != nil {
			return
		}
		if s := self.State(); s == Draining || s == Closed {
			return
		}

		interval := videoTickInterval(self, cfg)
		if !adaptiveSleep(ctx, running, interval) {
			return
		}

		t := time.Now()

		width := int(self.Width.Load())
		height := int(self.Height.Load())
		if width <= 0 || height <= 0 {
			width, height = 80, 25
		}

		snapshots := reg.Snapshot()
		anySending := false
		for _, s := range snapshots {
			if s.IsSendingVideo {
				anySending = true
				break
			}
		}
		if !anySending {
			continue
		}

		sources := collectVideoSources(snapshots)
		if len(sources) == 0 {
			continue
		}

		img, ok := compositor.Compose(sources, width, height)
		if !ok {
			continue
		}

		mode := asciiencoder.RenderForeground
		colorDepth := 0
		if caps, has := self.Capabilities(); has {
			mode = renderModeFromCaps(caps.Mode)
			colorDepth = caps.ColorDepth
		}

		ascii, anomalous, err := asciiencoder.Encode(cfg.Converter, img.RGB, img.Width, img.Height, width, height, asciiencoder.Options{
			Mode:       mode,
			ColorDepth: colorDepth,
		})
		if err != nil {
			log.Printf("[video %d] encode error: %v", self.ID, err)
			continue
		}
		if anomalous {
			log.Printf("[video %d] ascii converter emitted no reset sequence", self.ID)
		}

		hash := hashPrefix(ascii, defaultVideoHashPrefix)
		if hash == self.LastVideoHash() {
			self.Metrics.FramesDuplicateSkipped.Add(1)
			continue
		}
		self.SetLastVideoHash(hash)

		payload := encodeVideoFramePayload(width, height, len(sources), ascii)
		if buf, err := self.OutgoingVideo.BeginWrite(len(payload)); err == nil {
			copy(buf, payload)
			self.OutgoingVideo.Commit(len(payload), t.UnixNano())
			self.Metrics.FramesRendered.Add(1)
		} else {
			log.Printf("[video %d] outgoing store BeginWrite: %v", self.ID, err)
		}

		if elapsed := time.Since(t); elapsed > interval*3/2 {
			self.Metrics.FramesLagged.Add(1)
		}
	}
}

func videoTickInterval(self *Client, cfg VideoWorkerConfig) time.Duration {
	fps := cfg.DefaultFPS
	if caps, has := self.Capabilities(); has && caps.DesiredFPS > 0 {
		fps = caps.DesiredFPS
	}
	min, max := cfg.MinFPS, cfg.MaxFPS
	if min <= 0 {
		min = 1
	}
	if max <= 0 {
		max = 144
	}
	if fps < min {
		fps = min
	} else if fps > max {
		fps = max
	}
	return time.Second / time.Duration(fps)
}

func collectVideoSources(snapshots []ClientSnapshot) []compositor.Source {
	sources := make([]compositor.Source, 0, len(snapshots))
	for _, s := range snapshots {
		if !s.IsSendingVideo || s.IncomingVideo == nil {
			continue
		}
		snap := s.IncomingVideo.GetLatest()
		if snap.Empty() {
			continue
		}
		frame, err := wire.DecodeImageFrame(snap.Bytes())
		if err != nil {
			continue
		}
		sources = append(sources, compositor.Source{
			ID:     s.ID,
			Width:  frame.Width,
			Height: frame.Height,
			RGB:    frame.RGB,
		})
	}
	return sources
}

func renderModeFromCaps(m RenderMode) asciiencoder.RenderMode {
	switch m {
	case RenderBackground:
		return asciiencoder.RenderBackground
	case RenderHalfBlock:
		return asciiencoder.RenderHalfBlock
	default:
		return asciiencoder.RenderForeground
	}
}

func hashPrefix(data []byte, n int) uint32 {
	if n > len(data) {
		n = len(data)
	}
	return crc32.ChecksumIEEE(data[:n])
}

// encodeVideoFramePayload prepends width/height/sourceCount (big-endian
// u32 each) to ascii, matching the double-frame store convention (I6) of
// keeping dimensions inline with the bytes rather than trusting a side
// channel. sourceCount lets the send worker (C11) detect a grid-layout
// change without re-deriving it from the registry.
func encodeVideoFramePayload(width, height, sourceCount int, ascii []byte) []byte {
	out := make([]byte, 12+len(ascii))
	putU32BE(out[0:4], uint32(width))
	putU32BE(out[4:8], uint32(height))
	putU32BE(out[8:12], uint32(sourceCount))
	copy(out[12:], ascii)
	return out
}

// decodeVideoFramePayload is the send worker's counterpart to
// encodeVideoFramePayload.
func decodeVideoFramePayload(buf []byte) (width, height, sourceCount int, ascii []byte, ok bool) {
	if len(buf) < 12 {
		return 0, 0, 0, nil, false
	}
	width = int(getU32BE(buf[0:4]))
	height = int(getU32BE(buf[4:8]))
	sourceCount = int(getU32BE(buf[8:12]))
	return width, height, sourceCount, buf[12:], true
}

func putU32BE(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}

func getU32BE(src []byte) uint32 {
	return uint32(src[0])<<24 | uint32(src[1])<<16 | uint32(src[2])<<8 | uint32(src[3])
}
