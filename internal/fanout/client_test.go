package fanout

import (
	"context"
	"testing"

	"github.com/asciichat/fanout/internal/wire"
)

type fakeTransport struct {
	sent chan wire.Packet
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(chan wire.Packet, 32)}
}

func (f *fakeTransport) RecvPacket(ctx context.Context) (wire.Packet, error) {
	<-ctx.Done()
	return wire.Packet{}, ctx.Err()
}

func (f *fakeTransport) Send(ctx context.Context, p wire.Packet) error {
	f.sent <- p
	return nil
}

func (f *fakeTransport) Close() error     { return nil }
func (f *fakeTransport) RemoteAddr() string { return "fake:0" }

func TestNewClientStartsConnecting(t *testing.T) {
	c := NewClient(1, newFakeTransport(), 4096, 1024, 10)
	if c.State() != Connecting {
		t.Fatalf("expected Connecting, got %v", c.State())
	}
}

func TestSetStateTransitions(t *testing.T) {
	c := NewClient(1, newFakeTransport(), 4096, 1024, 10)
	c.SetState(Active)
	if c.State() != Active {
		t.Fatalf("expected Active, got %v", c.State())
	}
	c.SetState(Draining)
	if c.State() != Draining {
		t.Fatalf("expected Draining, got %v", c.State())
	}
}

func TestSetCapabilitiesUpdatesWidthHeightAtomics(t *testing.T) {
	c := NewClient(1, newFakeTransport(), 4096, 1024, 10)
	if _, has := c.Capabilities(); has {
		t.Fatal("expected no capabilities before SetCapabilities")
	}
	c.SetCapabilities(Capabilities{DesiredWidth: 120, DesiredHeight: 40, DesiredFPS: 30})
	if c.Width.Load() != 120 || c.Height.Load() != 40 {
		t.Fatalf("width/height atomics not updated: w=%d h=%d", c.Width.Load(), c.Height.Load())
	}
	caps, has := c.Capabilities()
	if !has || caps.DesiredFPS != 30 {
		t.Fatalf("unexpected capabilities: %+v has=%v", caps, has)
	}
}

func TestIsSendingVideoToggle(t *testing.T) {
	c := NewClient(1, newFakeTransport(), 4096, 1024, 10)
	if c.IsSendingVideo() {
		t.Fatal("expected false initially")
	}
	c.SetSendingVideo(true)
	if !c.IsSendingVideo() {
		t.Fatal("expected true after SetSendingVideo(true)")
	}
}

func TestWorkerSetStopJoinReturnsPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ws WorkerSet
	ws.cancel = cancel
	ws.spawn(ctx, func(ctx context.Context) {
		<-ctx.Done()
	})
	ws.Stop()
	ws.Join() // must not hang
}
