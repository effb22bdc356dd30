// Package tonebot implements a synthetic fanout.Transport-backed client
// that emits a pure sine-wave tone, generalizing the teacher's RunTestBot
// (testbot.go): instead of replaying pre-baked Opus frames from an embedded
// file (to dodge a CGO dependency at runtime), it synthesizes f32 PCM
// on the fly so callers can pick an arbitrary test frequency — needed for
// the mixer-exclusion scenario, which requires three distinct tones (440,
// 660, 880 Hz) rather than one fixed recording.
package tonebot

import (
	"context"
	"math"
	"time"

	"github.com/asciichat/fanout/internal/wire"
)

const (
	sampleRate   = 48000
	tickInterval = 10 * time.Millisecond
	samplesPerTick = sampleRate * int(tickInterval/time.Millisecond) / 1000
)

// Sender is the subset of fanout.Transport the tone bot needs to push
// packets; it never reads, so it does not depend on the full interface.
type Sender interface {
	Send(ctx context.Context, p wire.Packet) error
}

// Config describes one virtual tone-emitting client.
type Config struct {
	ClientID  uint32
	FreqHz    float64
	Amplitude float32 // 0..1, defaults to 0.5 if zero
}

// Run streams a continuous sine wave at cfg.FreqHz as Audio packets every
// 10 ms (matching the real audio worker's tick) until ctx is canceled. It
// sends a StreamStart first so registry-side video/audio workers treat this
// client like any other active source.
func Run(ctx context.Context, sender Sender, cfg Config) {
	amp := cfg.Amplitude
	if amp <= 0 {
		amp = 0.5
	}

	_ = sender.Send(ctx, wire.Packet{Type: wire.TypeStreamStart, ClientID: cfg.ClientID})

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var phase float64
	phaseStep := 2 * math.Pi * cfg.FreqHz / sampleRate

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		samples := make([]float32, samplesPerTick)
		for i := range samples {
			samples[i] = amp * float32(math.Sin(phase))
			phase += phaseStep
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}

		payload := wire.EncodeAudio(samples)
		if err := sender.Send(ctx, wire.Packet{Type: wire.TypeAudio, ClientID: cfg.ClientID, Payload: payload}); err != nil {
			return
		}
	}
}

// SolidColorFrame builds an ImageFrame payload of width x height pixels all
// set to the given RGB color, for scenarios that need a video source without
// driving an actual capture device.
func SolidColorFrame(width, height int, r, g, b byte) []byte {
	rgb := make([]byte, width*height*3)
	for i := 0; i < width*height; i++ {
		rgb[i*3] = r
		rgb[i*3+1] = g
		rgb[i*3+2] = b
	}
	return wire.EncodeImageFrame(wire.ImageFrame{Width: uint32(width), Height: uint32(height), RGB: rgb})
}
