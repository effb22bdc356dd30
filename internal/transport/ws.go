package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/asciichat/fanout/internal/wire"
)

// Upgrader wraps a gorilla/websocket upgrader configured for ascii-chat's
// binary framing, grounded on the teacher's server.go/internal/ws/handler.go
// upgrade (CheckOrigin always true — this is a LAN/self-hosted media server,
// not a browser-trust boundary the teacher otherwise polices).
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 16,
	WriteBufferSize: 1 << 16,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

const wsWriteTimeout = 5 * time.Second

// WSTransport adapts a *websocket.Conn to fanout.Transport. Every send/recv
// is exactly one binary websocket message containing one wire-framed
// packet — no message ever straddles two wire.Packets, so the framing
// header's own Length field is redundant over this transport but still
// validated, since the same header feeds every other Transport too.
type WSTransport struct {
	conn   *websocket.Conn
	remote string
}

// NewWSTransport wraps an already-upgraded websocket connection.
func NewWSTransport(conn *websocket.Conn, remote string) *WSTransport {
	conn.SetReadLimit(64 << 20)
	return &WSTransport{conn: conn, remote: remote}
}

// RecvPacket reads the next binary message and decodes it as one wire
// packet. ctx is honored best-effort via a read deadline, since gorilla's
// Conn has no native context-aware read.
func (t *WSTransport) RecvPacket(ctx context.Context) (wire.Packet, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(dl)
	} else {
		_ = t.conn.SetReadDeadline(time.Time{})
	}
	kind, data, err := t.conn.ReadMessage()
	if err != nil {
		return wire.Packet{}, err
	}
	if kind != websocket.BinaryMessage {
		return wire.Packet{}, fmt.Errorf("transport: unexpected websocket message kind %d", kind)
	}
	return wire.Decode(data)
}

// Send encodes p and writes it as a single binary websocket message.
func (t *WSTransport) Send(ctx context.Context, p wire.Packet) error {
	deadline := time.Now().Add(wsWriteTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = t.conn.SetWriteDeadline(deadline)
	return t.conn.WriteMessage(websocket.BinaryMessage, wire.Encode(p))
}

// Close closes the underlying websocket connection.
func (t *WSTransport) Close() error { return t.conn.Close() }

// RemoteAddr returns the peer address captured at upgrade time.
func (t *WSTransport) RemoteAddr() string { return t.remote }
