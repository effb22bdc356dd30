package fanout

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asciichat/fanout/internal/fanout/asciiencoder"
	"github.com/asciichat/fanout/internal/wire"
)

func TestVideoTickIntervalClampsToCapsFPS(t *testing.T) {
	c := NewClient(1, newFakeTransport(), 4096, 1024, 10)
	c.SetCapabilities(Capabilities{DesiredFPS: 30})
	got := videoTickInterval(c, VideoWorkerConfig{DefaultFPS: 60, MinFPS: 1, MaxFPS: 144})
	want := time.Second / 30
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestVideoTickIntervalClampsOutOfRangeCaps(t *testing.T) {
	c := NewClient(1, newFakeTransport(), 4096, 1024, 10)
	c.SetCapabilities(Capabilities{DesiredFPS: 500})
	got := videoTickInterval(c, VideoWorkerConfig{DefaultFPS: 60, MinFPS: 1, MaxFPS: 144})
	want := time.Second / 144
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestEncodeDecodeVideoFramePayloadRoundTrip(t *testing.T) {
	ascii := []byte("hello\x1b[0m")
	buf := encodeVideoFramePayload(80, 25, 3, ascii)
	w, h, n, got, ok := decodeVideoFramePayload(buf)
	if !ok || w != 80 || h != 25 || n != 3 || string(got) != string(ascii) {
		t.Fatalf("round trip mismatch: w=%d h=%d n=%d got=%q ok=%v", w, h, n, got, ok)
	}
}

func TestHashPrefixIsStableAndPrefixBounded(t *testing.T) {
	a := []byte("the quick brown fox")
	b := append(append([]byte{}, a...), []byte(" jumps")...)
	if hashPrefix(a, 1000) != hashPrefix(b, len(a)) {
		t.Fatal("expected identical hash when hashing the same shared prefix length")
	}
}

type fakeSnapshotter struct {
	snapshots []ClientSnapshot
}

func (f *fakeSnapshotter) Snapshot() []ClientSnapshot { return f.snapshots }

func TestRunVideoWorkerExitsOnDraining(t *testing.T) {
	c := NewClient(1, newFakeTransport(), 8+4096*3, 1024, 10)
	c.SetState(Draining)
	ctx := context.Background()
	done := make(chan struct{})
	var running atomic.Bool
	running.Store(true)
	go func() {
		RunVideoWorker(ctx, c, &fakeSnapshotter{}, VideoWorkerConfig{DefaultFPS: 60, MinFPS: 1, MaxFPS: 144, Converter: asciiencoder.DefaultConverter{}}, &running)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunVideoWorker did not exit promptly for a Draining client")
	}
}

func TestRunVideoWorkerExitsOnContextCancel(t *testing.T) {
	c := NewClient(1, newFakeTransport(), 8+4096*3, 1024, 10)
	c.SetState(Active)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var running atomic.Bool
	running.Store(true)
	go func() {
		RunVideoWorker(ctx, c, &fakeSnapshotter{}, VideoWorkerConfig{DefaultFPS: 60, MinFPS: 1, MaxFPS: 144, Converter: asciiencoder.DefaultConverter{}}, &running)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunVideoWorker did not exit promptly on context cancel")
	}
}

func TestRunVideoWorkerCommitsCompositeWhenSourceSending(t *testing.T) {
	c := NewClient(1, newFakeTransport(), 8+64*64*3, 1024, 10)
	c.SetState(Active)
	c.SetCapabilities(Capabilities{DesiredWidth: 80, DesiredHeight: 25, DesiredFPS: 200})

	source := NewClient(2, newFakeTransport(), 8+64*64*3, 1024, 10)
	source.SetSendingVideo(true)
	rgb := make([]byte, 64*64*3)
	for i := range rgb {
		rgb[i] = 42
	}
	frame := wire.EncodeImageFrame(wire.ImageFrame{Width: 64, Height: 64, RGB: rgb})
	buf, _ := source.IncomingVideo.BeginWrite(len(frame))
	copy(buf, frame)
	source.IncomingVideo.Commit(len(frame), 1)

	reg := &fakeSnapshotter{snapshots: []ClientSnapshot{
		{ID: 2, Active: true, IsSendingVideo: true, Width: 80, Height: 25, IncomingVideo: source.IncomingVideo},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var running atomic.Bool
	running.Store(true)

	go RunVideoWorker(ctx, c, reg, VideoWorkerConfig{DefaultFPS: 200, MinFPS: 1, MaxFPS: 200, Converter: asciiencoder.DefaultConverter{}}, &running)

	deadline := time.After(2 * time.Second)
	for {
		snap := c.OutgoingVideo.GetLatest()
		if !snap.Empty() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("expected a composited frame to be committed within the deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
