package transport

import (
	"context"
	"fmt"

	"github.com/quic-go/webtransport-go"

	"github.com/asciichat/fanout/internal/wire"
)

// WTTransport adapts a *webtransport.Session to fanout.Transport, grounded
// on the teacher's WebTransport client (client/transport.go) and server
// (server/client.go, handleClient/readDatagrams): one reliable stream
// carries control/video traffic framed with internal/wire, while audio is
// sent as unreliable QUIC datagrams — video and control need every byte,
// audio is happier dropped than late.
//
// The stream is opened (client side) or accepted (server side) once at
// construction and held for the session's lifetime; RecvPacket multiplexes
// between the stream and the datagram channel. Both carry full wire-framed
// packets, so the receive worker's switch needs no transport-specific case
// regardless of which path a packet arrived on.
type WTTransport struct {
	session *webtransport.Session
	stream  *webtransport.Stream
	remote  string
}

// NewWTServerTransport accepts the client-opened control stream on an
// already-upgraded session (the teacher's handleClient does the same
// AcceptStream(ctx) before trusting anything else on the session).
func NewWTServerTransport(ctx context.Context, sess *webtransport.Session, remote string) (*WTTransport, error) {
	stream, err := sess.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: accept webtransport stream: %w", err)
	}
	return &WTTransport{session: sess, stream: stream, remote: remote}, nil
}

// NewWTClientTransport opens the control stream on a freshly dialed session.
func NewWTClientTransport(ctx context.Context, sess *webtransport.Session, remote string) (*WTTransport, error) {
	stream, err := sess.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: open webtransport stream: %w", err)
	}
	return &WTTransport{session: sess, stream: stream, remote: remote}, nil
}

// RecvPacket returns whichever arrives first: a framed packet on the
// reliable stream, or a datagram decoded as one full wire-framed packet.
func (t *WTTransport) RecvPacket(ctx context.Context) (wire.Packet, error) {
	type result struct {
		pkt wire.Packet
		err error
	}
	streamCh := make(chan result, 1)
	dgramCh := make(chan result, 1)

	go func() {
		pkt, err := wire.ReadPacket(t.stream)
		streamCh <- result{pkt, err}
	}()
	go func() {
		data, err := t.session.ReceiveDatagram(ctx)
		if err != nil {
			dgramCh <- result{wire.Packet{}, err}
			return
		}
		pkt, err := wire.Decode(data)
		dgramCh <- result{pkt, err}
	}()

	select {
	case r := <-streamCh:
		return r.pkt, r.err
	case r := <-dgramCh:
		return r.pkt, r.err
	case <-ctx.Done():
		return wire.Packet{}, ctx.Err()
	}
}

// Send writes video/control packets to the reliable stream and audio
// packets as unreliable datagrams, matching the teacher's split between
// the control stream and raw SendDatagram for voice.
func (t *WTTransport) Send(ctx context.Context, p wire.Packet) error {
	switch p.Type {
	case wire.TypeAudio, wire.TypeAudioBatch, wire.TypeAudioOpusBatch:
		return t.session.SendDatagram(wire.Encode(p))
	default:
		return wire.WritePacket(t.stream, p)
	}
}

// Close closes the underlying QUIC/WebTransport session.
func (t *WTTransport) Close() error {
	return t.session.CloseWithError(0, "bye")
}

// RemoteAddr returns the peer address captured at construction time.
func (t *WTTransport) RemoteAddr() string { return t.remote }
