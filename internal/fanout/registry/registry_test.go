package registry

import (
	"context"
	"testing"
	"time"

	"github.com/asciichat/fanout/internal/config"
	"github.com/asciichat/fanout/internal/fanout/asciiencoder"
	"github.com/asciichat/fanout/internal/wire"
)

type blockingTransport struct {
	closed chan struct{}
}

func newBlockingTransport() *blockingTransport {
	return &blockingTransport{closed: make(chan struct{})}
}

func (b *blockingTransport) RecvPacket(ctx context.Context) (wire.Packet, error) {
	select {
	case <-ctx.Done():
		return wire.Packet{}, ctx.Err()
	case <-b.closed:
		return wire.Packet{}, context.Canceled
	}
}

func (b *blockingTransport) Send(ctx context.Context, p wire.Packet) error { return nil }

func (b *blockingTransport) Close() error {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
	return nil
}

func (b *blockingTransport) RemoteAddr() string { return "test:0" }

func testConfig(maxClients int) config.Config {
	c := config.Default()
	c.MaxClients = maxClients
	return c
}

func TestAddAssignsUniqueIDsAndActivates(t *testing.T) {
	r := New(testConfig(4), asciiencoder.DefaultConverter{}, nil)
	id1, err := r.Add(newBlockingTransport())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	id2, err := r.Add(newBlockingTransport())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}
	c1, ok := r.Lookup(id1)
	if !ok || c1.State().String() != "active" {
		t.Fatalf("expected client %d active after Add, ok=%v", id1, ok)
	}
	if r.Count() != 2 {
		t.Fatalf("expected count 2, got %d", r.Count())
	}
}

func TestAddRejectsWhenFull(t *testing.T) {
	r := New(testConfig(1), asciiencoder.DefaultConverter{}, nil)
	if _, err := r.Add(newBlockingTransport()); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if _, err := r.Add(newBlockingTransport()); err != ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestRemoveClearsSlotAndIsIdempotent(t *testing.T) {
	r := New(testConfig(4), asciiencoder.DefaultConverter{}, nil)
	id, _ := r.Add(newBlockingTransport())

	done := make(chan struct{})
	go func() {
		r.Remove(id)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Remove did not return promptly")
	}

	if _, ok := r.Lookup(id); ok {
		t.Fatal("expected client to be gone after Remove")
	}
	if r.Count() != 0 {
		t.Fatalf("expected count 0 after Remove, got %d", r.Count())
	}
	r.Remove(id) // must not panic or block on a second call
}

func TestSnapshotReflectsOccupiedSlots(t *testing.T) {
	r := New(testConfig(4), asciiencoder.DefaultConverter{}, nil)
	id, _ := r.Add(newBlockingTransport())
	snaps := r.Snapshot()
	if len(snaps) != 1 || snaps[0].ID != id {
		t.Fatalf("unexpected snapshot: %+v", snaps)
	}
}

func TestShutdownRemovesEveryClient(t *testing.T) {
	r := New(testConfig(4), asciiencoder.DefaultConverter{}, nil)
	_, _ = r.Add(newBlockingTransport())
	_, _ = r.Add(newBlockingTransport())

	done := make(chan struct{})
	go func() {
		r.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Shutdown did not return promptly")
	}
	if r.Count() != 0 {
		t.Fatalf("expected 0 clients after Shutdown, got %d", r.Count())
	}
}
