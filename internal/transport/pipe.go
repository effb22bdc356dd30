package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/asciichat/fanout/internal/wire"
)

// ErrClosed is returned by PipeTransport once Close has been called.
var ErrClosed = errors.New("transport: closed")

// PipeTransport is an in-process, channel-backed fanout.Transport used by
// tests and by the synthetic tone-bot client: no socket, no framing round
// trip, just two buffered channels of already-decoded packets.
type PipeTransport struct {
	remote string

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	inbound  chan wire.Packet
	outbound chan wire.Packet
}

// NewPipePair returns two PipeTransports wired to each other: packets sent
// on one arrive as inbound on the other.
func NewPipePair(remoteA, remoteB string) (*PipeTransport, *PipeTransport) {
	toA := make(chan wire.Packet, 64)
	toB := make(chan wire.Packet, 64)
	a := &PipeTransport{remote: remoteA, inbound: toA, outbound: toB, done: make(chan struct{})}
	b := &PipeTransport{remote: remoteB, inbound: toB, outbound: toA, done: make(chan struct{})}
	return a, b
}

// RecvPacket blocks until a packet arrives, ctx is canceled, or the
// transport is closed.
func (p *PipeTransport) RecvPacket(ctx context.Context) (wire.Packet, error) {
	select {
	case pkt, ok := <-p.inbound:
		if !ok {
			return wire.Packet{}, ErrClosed
		}
		return pkt, nil
	case <-p.done:
		return wire.Packet{}, ErrClosed
	case <-ctx.Done():
		return wire.Packet{}, ctx.Err()
	}
}

// Send enqueues a packet for the peer transport. Non-blocking send would
// silently drop under load; this implementation instead honors backpressure
// like a real stream-oriented socket would, up to ctx cancellation.
func (p *PipeTransport) Send(ctx context.Context, pkt wire.Packet) error {
	select {
	case p.outbound <- pkt:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the transport closed, unblocking any pending RecvPacket.
func (p *PipeTransport) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	return nil
}

// RemoteAddr returns the label this side of the pipe was constructed with.
func (p *PipeTransport) RemoteAddr() string { return p.remote }
