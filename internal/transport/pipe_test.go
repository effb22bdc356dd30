package transport

import (
	"context"
	"testing"
	"time"

	"github.com/asciichat/fanout/internal/wire"
)

func TestPipePairDeliversInBothDirections(t *testing.T) {
	a, b := NewPipePair("a", "b")
	ctx := context.Background()

	if err := a.Send(ctx, wire.Packet{Type: wire.TypePing, ClientID: 1}); err != nil {
		t.Fatalf("a.Send: %v", err)
	}
	pkt, err := b.RecvPacket(ctx)
	if err != nil {
		t.Fatalf("b.RecvPacket: %v", err)
	}
	if pkt.Type != wire.TypePing || pkt.ClientID != 1 {
		t.Fatalf("unexpected packet: %+v", pkt)
	}

	if err := b.Send(ctx, wire.Packet{Type: wire.TypePong, ClientID: 2}); err != nil {
		t.Fatalf("b.Send: %v", err)
	}
	pkt, err = a.RecvPacket(ctx)
	if err != nil {
		t.Fatalf("a.RecvPacket: %v", err)
	}
	if pkt.Type != wire.TypePong || pkt.ClientID != 2 {
		t.Fatalf("unexpected packet: %+v", pkt)
	}
}

func TestPipeRecvUnblocksOnClose(t *testing.T) {
	a, _ := NewPipePair("a", "b")
	errCh := make(chan error, 1)
	go func() {
		_, err := a.RecvPacket(context.Background())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	_ = a.Close()
	select {
	case err := <-errCh:
		if err != ErrClosed {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RecvPacket did not unblock after Close")
	}
}

func TestPipeRecvHonorsContextCancel(t *testing.T) {
	a, _ := NewPipePair("a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := a.RecvPacket(ctx)
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected context cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RecvPacket did not unblock after context cancel")
	}
}

func TestPipeRemoteAddrReflectsConstructionLabel(t *testing.T) {
	a, b := NewPipePair("server", "client")
	if a.RemoteAddr() != "server" || b.RemoteAddr() != "client" {
		t.Fatalf("unexpected remote addrs: %s %s", a.RemoteAddr(), b.RemoteAddr())
	}
}
