package fanout

import (
	"context"
	"hash/crc32"
	"sync/atomic"
	"time"

	"github.com/asciichat/fanout/internal/wire"
)

// sendTickInterval is the video-path polling interval (spec: "every 16.667
// ms"), independent of the recipient's own video fps — the send worker
// just checks whether outgoing_video has something new each tick.
const sendTickInterval = 16667 * time.Microsecond

// sendIdleBackoff is how long the send loop waits when neither the audio
// queue nor the video store yielded anything this iteration.
const sendIdleBackoff = 1 * time.Millisecond

// RunSendWorker is the send worker (C11): drains the outbound audio queue
// FIFO-strictly and polls the outgoing video store at a fixed cadence,
// framing whatever it finds and handing it to the Transport.
func RunSendWorker(ctx context.Context, self *Client, running *atomic.Bool) {
	var lastVideoTS int64
	var lastSourceCount int = -1
	lastVideoPoll := time.Now()

	for {
		if ctx.Err() != nil {
			return
		}
		if s := self.State(); s == Closed {
			return
		}

		didWork := false

		if payload, ok := self.OutgoingAudioQueue.TryDequeue(); ok {
			pkt := wire.Packet{Type: wire.TypeAudioOpusBatch, ClientID: self.ID, Payload: payload}
			if err := self.Transport.Send(ctx, pkt); err == nil {
				didWork = true
			}
		}

		if time.Since(lastVideoPoll) >= sendTickInterval {
			lastVideoPoll = time.Now()
			if sentVideo, sourceCount := pollAndSendVideo(ctx, self, &lastVideoTS, lastSourceCount); sentVideo {
				lastSourceCount = sourceCount
				didWork = true
			}
		}

		if !didWork {
			if !adaptiveSleep(ctx, running, sendIdleBackoff) {
				return
			}
		}

		if self.State() == Draining && self.OutgoingAudioQueue.Size() == 0 {
			// Draining clients still flush whatever was already queued above;
			// once drained there is nothing left for this worker to do.
			snap := self.OutgoingVideo.GetLatest()
			if snap.Empty() || snap.Timestamp <= lastVideoTS {
				return
			}
		}
	}
}

// pollAndSendVideo reads outgoing_video, and if it holds a frame newer than
// lastSentTS, frames it as an AsciiFrame (prepending ClearConsole if the
// grid's source count changed since the last send) and sends it. Returns
// whether it sent anything and the source count observed.
func pollAndSendVideo(ctx context.Context, self *Client, lastSentTS *int64, lastSourceCount int) (sent bool, sourceCount int) {
	snap := self.OutgoingVideo.GetLatest()
	if snap.Empty() || snap.Timestamp <= *lastSentTS {
		return false, lastSourceCount
	}
	width, height, count, ascii, ok := decodeVideoFramePayload(snap.Bytes())
	if !ok {
		return false, lastSourceCount
	}
	sourceCount = count

	if lastSourceCount >= 0 && sourceCount != lastSourceCount {
		_ = self.Transport.Send(ctx, wire.Packet{Type: wire.TypeClearConsole, ClientID: self.ID})
	}

	payload := wire.EncodeAsciiFrame(wire.AsciiFrame{
		Width:          uint32(width),
		Height:         uint32(height),
		OriginalSize:   uint32(len(ascii)),
		CompressedSize: uint32(len(ascii)),
		Checksum:       crc32.ChecksumIEEE(ascii),
		Flags:          0,
		Ascii:          ascii,
	})
	if err := self.Transport.Send(ctx, wire.Packet{Type: wire.TypeAsciiFrame, ClientID: self.ID, Payload: payload}); err != nil {
		return false, lastSourceCount
	}
	*lastSentTS = snap.Timestamp
	return true, sourceCount
}
