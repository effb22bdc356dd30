// Package wire implements the ascii-chat packet framing: a fixed 26-byte
// big-endian header (magic, type, length, crc32, client_id, reserved)
// followed by a type-specific payload. It is the one true home for the
// wire format described in the project's transport contract — every
// Transport implementation in internal/transport encodes and decodes
// through this package so the bytes on every listener match bit-for-bit.
package wire

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// Magic identifies an ascii-chat frame. Chosen arbitrarily; readers must
// reject any header whose magic does not match.
const Magic uint64 = 0x61736369696368 // "asciich" in ASCII, zero-padded

// HeaderSize is the fixed size of the frame header in bytes: 8 (magic) +
// 2 (type) + 4 (length) + 4 (crc32) + 4 (client_id) + 4 (reserved).
const HeaderSize = 26

// Type enumerates the packet types carried by a frame.
type Type uint16

const (
	TypeImageFrame Type = iota + 1
	TypeAsciiFrame
	TypeAudio
	TypeAudioBatch
	TypeAudioOpusBatch
	TypeClearConsole
	TypeClientCapabilities
	TypeClientJoin
	TypeStreamStart
	TypeStreamStop
	TypePing
	TypePong
)

func (t Type) String() string {
	switch t {
	case TypeImageFrame:
		return "ImageFrame"
	case TypeAsciiFrame:
		return "AsciiFrame"
	case TypeAudio:
		return "Audio"
	case TypeAudioBatch:
		return "AudioBatch"
	case TypeAudioOpusBatch:
		return "AudioOpusBatch"
	case TypeClearConsole:
		return "ClearConsole"
	case TypeClientCapabilities:
		return "ClientCapabilities"
	case TypeClientJoin:
		return "ClientJoin"
	case TypeStreamStart:
		return "StreamStart"
	case TypeStreamStop:
		return "StreamStop"
	case TypePing:
		return "Ping"
	case TypePong:
		return "Pong"
	default:
		return fmt.Sprintf("Type(%d)", uint16(t))
	}
}

// Header is the fixed-size frame header, always sent big-endian.
type Header struct {
	Magic    uint64
	Type     Type
	Length   uint32
	CRC32    uint32
	ClientID uint32
	Reserved uint32
}

// Packet is a decoded frame: header plus payload bytes.
type Packet struct {
	Type     Type
	ClientID uint32
	Payload  []byte
}

// EncodeHeader writes a HeaderSize-byte header into dst, which must be at
// least HeaderSize bytes long.
func EncodeHeader(dst []byte, h Header) {
	encodeHeaderInto(dst[:HeaderSize], h)
}

// DecodeHeader parses a HeaderSize-byte header from src.
func DecodeHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, fmt.Errorf("wire: header too short: %d bytes", len(src))
	}
	return Header{
		Magic:    binary.BigEndian.Uint64(src[0:8]),
		Type:     Type(binary.BigEndian.Uint16(src[8:10])),
		Length:   binary.BigEndian.Uint32(src[10:14]),
		CRC32:    binary.BigEndian.Uint32(src[14:18]),
		ClientID: binary.BigEndian.Uint32(src[18:22]),
		Reserved: binary.BigEndian.Uint32(src[22:26]),
	}, nil
}

// Encode serializes a packet (header + payload) into a single byte slice
// ready to hand to a Transport.
func Encode(p Packet) []byte {
	buf := make([]byte, HeaderSize+len(p.Payload))
	var crc uint32
	if len(p.Payload) > 0 {
		crc = crc32.ChecksumIEEE(p.Payload)
	}
	h := Header{
		Magic:    Magic,
		Type:     p.Type,
		Length:   uint32(len(p.Payload)),
		CRC32:    crc,
		ClientID: p.ClientID,
	}
	encodeHeaderInto(buf[:HeaderSize], h)
	copy(buf[HeaderSize:], p.Payload)
	return buf
}

// encodeHeaderInto writes exactly HeaderSize bytes into dst.
func encodeHeaderInto(dst []byte, h Header) {
	binary.BigEndian.PutUint64(dst[0:8], h.Magic)
	binary.BigEndian.PutUint16(dst[8:10], uint16(h.Type))
	binary.BigEndian.PutUint32(dst[10:14], h.Length)
	binary.BigEndian.PutUint32(dst[14:18], h.CRC32)
	binary.BigEndian.PutUint32(dst[18:22], h.ClientID)
	binary.BigEndian.PutUint32(dst[22:26], h.Reserved)
}

// Decode parses a full frame (header + payload) from buf. It validates the
// magic number and the CRC32 of the payload.
func Decode(buf []byte) (Packet, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return Packet{}, err
	}
	if h.Magic != Magic {
		return Packet{}, fmt.Errorf("wire: bad magic %x", h.Magic)
	}
	rest := buf[HeaderSize:]
	if uint32(len(rest)) < h.Length {
		return Packet{}, fmt.Errorf("wire: truncated payload: want %d have %d", h.Length, len(rest))
	}
	payload := rest[:h.Length]
	if h.Length > 0 {
		if got := crc32.ChecksumIEEE(payload); got != h.CRC32 {
			return Packet{}, fmt.Errorf("wire: crc32 mismatch: got %x want %x", got, h.CRC32)
		}
	}
	return Packet{Type: h.Type, ClientID: h.ClientID, Payload: payload}, nil
}

// ReadPacket reads exactly one frame from r: the fixed header, then its
// declared payload length.
func ReadPacket(r io.Reader) (Packet, error) {
	hdr := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return Packet{}, err
	}
	h, err := DecodeHeader(hdr)
	if err != nil {
		return Packet{}, err
	}
	if h.Magic != Magic {
		return Packet{}, fmt.Errorf("wire: bad magic %x", h.Magic)
	}
	payload := make([]byte, h.Length)
	if h.Length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Packet{}, err
		}
		if got := crc32.ChecksumIEEE(payload); got != h.CRC32 {
			return Packet{}, fmt.Errorf("wire: crc32 mismatch: got %x want %x", got, h.CRC32)
		}
	}
	return Packet{Type: h.Type, ClientID: h.ClientID, Payload: payload}, nil
}

// WritePacket encodes and writes one frame to w.
func WritePacket(w io.Writer, p Packet) error {
	_, err := w.Write(Encode(p))
	return err
}
