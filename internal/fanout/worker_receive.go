package fanout

import (
	"context"
	"fmt"
	"log"

	"github.com/asciichat/fanout/internal/ledger"
	"github.com/asciichat/fanout/internal/wire"
)

// RunReceiveWorker is the receive worker (C10): pulls one framed packet at
// a time from the client's transport and routes it into the appropriate
// store. On any transport error it returns without calling remove itself —
// per §7/§4.10, that is always a supervisor's job, so a worker never tries
// to join its own goroutine.
func RunReceiveWorker(ctx context.Context, self *Client, onTransportClosed func(clientID uint32)) {
	for {
		if ctx.Err() != nil {
			return
		}
		if s := self.State(); s == Draining || s == Closed {
			return
		}

		pkt, err := self.Transport.RecvPacket(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[recv %d] transport error: %v", self.ID, err)
			if onTransportClosed != nil {
				onTransportClosed(self.ID)
			}
			return
		}

		switch pkt.Type {
		case wire.TypeImageFrame:
			handleImageFrame(self, pkt.Payload)
		case wire.TypeAudio, wire.TypeAudioBatch:
			handleAudio(self, pkt.Payload)
		case wire.TypeClientCapabilities:
			handleCapabilities(self, pkt.Payload)
		case wire.TypeStreamStart:
			self.SetSendingVideo(true)
		case wire.TypeStreamStop:
			self.SetSendingVideo(false)
		case wire.TypePing:
			_ = self.Transport.Send(ctx, wire.Packet{Type: wire.TypePong, ClientID: self.ID})
		case wire.TypeClientJoin, wire.TypePong:
			// No core-level action; delegated to the ambient connection
			// handshake / liveness tracking that accepted this client.
		default:
			log.Printf("[recv %d] unhandled packet type %s", self.ID, pkt.Type)
		}
	}
}

func handleImageFrame(self *Client, payload []byte) {
	frame, err := wire.DecodeImageFrame(payload)
	if err != nil {
		self.Metrics.FramesRejected.Add(1)
		self.EventSink.RecordEvent(self.ID, ledger.FrameRejected, err.Error())
		return
	}
	// Re-encode verbatim (DecodeImageFrame already validated and clipped to
	// width*height*3) so the store's invariant (I6: dimensions inline with
	// bytes) holds regardless of trailing garbage in the original payload.
	buf := wire.EncodeImageFrame(frame)
	dst, err := self.IncomingVideo.BeginWrite(len(buf))
	if err != nil {
		self.Metrics.FramesRejected.Add(1)
		self.EventSink.RecordEvent(self.ID, ledger.FrameRejected, fmt.Sprintf("begin_write: %v", err))
		return
	}
	copy(dst, buf)
	self.IncomingVideo.Commit(len(buf), monotonicNow())
}

func handleAudio(self *Client, payload []byte) {
	samples, err := wire.DecodeAudio(payload)
	if err != nil {
		return
	}
	self.IncomingAudio.Write(samples)
}

func handleCapabilities(self *Client, payload []byte) {
	caps, err := wire.DecodeClientCapabilities(payload)
	if err != nil {
		log.Printf("[recv %d] invalid capabilities payload: %v", self.ID, err)
		return
	}
	self.SetCapabilities(Capabilities{
		ColorDepth:    int(caps.ColorDepth),
		PaletteChars:  caps.PaletteChars,
		Mode:          RenderMode(caps.Mode),
		DesiredWidth:  int(caps.DesiredWidth),
		DesiredHeight: int(caps.DesiredHeight),
		DesiredFPS:    int(caps.DesiredFPS),
	})
}

