package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxImageWidth and MaxImageHeight bound an ImageFrame's declared dimensions;
// anything larger is rejected as corrupt (spec: w>4096 or h>2160 is invalid).
const (
	MaxImageWidth  = 4096
	MaxImageHeight = 2160
)

// ImageFrame is the payload of a TypeImageFrame packet: raw RGB pixels
// prefixed with network-ordered dimensions.
type ImageFrame struct {
	Width  uint32
	Height uint32
	RGB    []byte
}

// EncodeImageFrame serializes an ImageFrame payload.
func EncodeImageFrame(f ImageFrame) []byte {
	buf := make([]byte, 8+len(f.RGB))
	binary.BigEndian.PutUint32(buf[0:4], f.Width)
	binary.BigEndian.PutUint32(buf[4:8], f.Height)
	copy(buf[8:], f.RGB)
	return buf
}

// DecodeImageFrame parses an ImageFrame payload, validating dimensions
// against the bounds above and recomputing the expected length from
// width*height*3 rather than trusting any length field embedded elsewhere.
// Trailing bytes beyond the expected length are tolerated and discarded.
func DecodeImageFrame(payload []byte) (ImageFrame, error) {
	if len(payload) < 8 {
		return ImageFrame{}, fmt.Errorf("wire: image frame too short")
	}
	w := binary.BigEndian.Uint32(payload[0:4])
	h := binary.BigEndian.Uint32(payload[4:8])
	if w == 0 || w > MaxImageWidth || h == 0 || h > MaxImageHeight {
		return ImageFrame{}, fmt.Errorf("wire: image dimensions out of range: %dx%d", w, h)
	}
	expected := 8 + uint64(w)*uint64(h)*3
	if uint64(len(payload)) < expected {
		return ImageFrame{}, fmt.Errorf("wire: image frame truncated: have %d want >= %d", len(payload), expected)
	}
	return ImageFrame{Width: w, Height: h, RGB: payload[8:expected]}, nil
}

// AsciiFrame is the payload of a TypeAsciiFrame packet.
type AsciiFrame struct {
	Width          uint32
	Height         uint32
	OriginalSize   uint32
	CompressedSize uint32
	Checksum       uint32
	Flags          uint32
	Ascii          []byte
}

// EncodeAsciiFrame serializes an AsciiFrame payload.
func EncodeAsciiFrame(f AsciiFrame) []byte {
	buf := make([]byte, 24+len(f.Ascii))
	binary.BigEndian.PutUint32(buf[0:4], f.Width)
	binary.BigEndian.PutUint32(buf[4:8], f.Height)
	binary.BigEndian.PutUint32(buf[8:12], f.OriginalSize)
	binary.BigEndian.PutUint32(buf[12:16], f.CompressedSize)
	binary.BigEndian.PutUint32(buf[16:20], f.Checksum)
	binary.BigEndian.PutUint32(buf[20:24], f.Flags)
	copy(buf[24:], f.Ascii)
	return buf
}

// DecodeAsciiFrame parses an AsciiFrame payload.
func DecodeAsciiFrame(payload []byte) (AsciiFrame, error) {
	if len(payload) < 24 {
		return AsciiFrame{}, fmt.Errorf("wire: ascii frame too short")
	}
	f := AsciiFrame{
		Width:          binary.BigEndian.Uint32(payload[0:4]),
		Height:         binary.BigEndian.Uint32(payload[4:8]),
		OriginalSize:   binary.BigEndian.Uint32(payload[8:12]),
		CompressedSize: binary.BigEndian.Uint32(payload[12:16]),
		Checksum:       binary.BigEndian.Uint32(payload[16:20]),
		Flags:          binary.BigEndian.Uint32(payload[20:24]),
	}
	rest := payload[24:]
	if uint64(len(rest)) < uint64(f.OriginalSize) {
		return AsciiFrame{}, fmt.Errorf("wire: ascii frame truncated")
	}
	f.Ascii = rest[:f.OriginalSize]
	return f, nil
}

// EncodeAudio serializes raw f32 (native-endian, per spec) PCM samples.
func EncodeAudio(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.NativeEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(s))
	}
	return buf
}

// DecodeAudio parses raw f32 PCM samples from an Audio/AudioBatch payload.
func DecodeAudio(payload []byte) ([]float32, error) {
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("wire: audio payload not a multiple of 4 bytes")
	}
	n := len(payload) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.NativeEndian.Uint32(payload[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

// ClientCapabilities is the payload of a TypeClientCapabilities packet.
// The spec leaves this packet's payload opaque to the core; this encoding
// is this implementation's own choice of wire representation for it.
type ClientCapabilities struct {
	ColorDepth    uint32
	Mode          uint8
	DesiredWidth  uint32
	DesiredHeight uint32
	DesiredFPS    uint32
	PaletteChars  string
}

// EncodeClientCapabilities serializes a ClientCapabilities payload.
func EncodeClientCapabilities(c ClientCapabilities) []byte {
	palette := []byte(c.PaletteChars)
	buf := make([]byte, 19+2+len(palette))
	binary.BigEndian.PutUint32(buf[0:4], c.ColorDepth)
	buf[4] = c.Mode
	binary.BigEndian.PutUint32(buf[5:9], c.DesiredWidth)
	binary.BigEndian.PutUint32(buf[9:13], c.DesiredHeight)
	binary.BigEndian.PutUint32(buf[13:17], c.DesiredFPS)
	binary.BigEndian.PutUint16(buf[17:19], uint16(len(palette)))
	copy(buf[19:], palette)
	return buf
}

// DecodeClientCapabilities parses a ClientCapabilities payload.
func DecodeClientCapabilities(payload []byte) (ClientCapabilities, error) {
	if len(payload) < 19 {
		return ClientCapabilities{}, fmt.Errorf("wire: client capabilities too short")
	}
	c := ClientCapabilities{
		ColorDepth:    binary.BigEndian.Uint32(payload[0:4]),
		Mode:          payload[4],
		DesiredWidth:  binary.BigEndian.Uint32(payload[5:9]),
		DesiredHeight: binary.BigEndian.Uint32(payload[9:13]),
		DesiredFPS:    binary.BigEndian.Uint32(payload[13:17]),
	}
	n := binary.BigEndian.Uint16(payload[17:19])
	if uint64(19)+uint64(n) > uint64(len(payload)) {
		return ClientCapabilities{}, fmt.Errorf("wire: client capabilities palette truncated")
	}
	c.PaletteChars = string(payload[19 : 19+n])
	return c, nil
}

// AudioOpusBatch is the payload of a TypeAudioOpusBatch packet: one or more
// Opus frames concatenated, each frame's size recorded up front.
type AudioOpusBatch struct {
	SampleRate      uint32
	FrameDurationMs uint32
	FrameSizes      []uint16
	OpusBytes       []byte
}

// EncodeAudioOpusBatch serializes an AudioOpusBatch payload.
func EncodeAudioOpusBatch(b AudioOpusBatch) []byte {
	size := 12 + 2*len(b.FrameSizes) + len(b.OpusBytes)
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], b.SampleRate)
	binary.BigEndian.PutUint32(buf[4:8], b.FrameDurationMs)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(b.FrameSizes)))
	off := 12
	for _, fs := range b.FrameSizes {
		binary.BigEndian.PutUint16(buf[off:off+2], fs)
		off += 2
	}
	copy(buf[off:], b.OpusBytes)
	return buf
}

// DecodeAudioOpusBatch parses an AudioOpusBatch payload.
func DecodeAudioOpusBatch(payload []byte) (AudioOpusBatch, error) {
	if len(payload) < 12 {
		return AudioOpusBatch{}, fmt.Errorf("wire: opus batch too short")
	}
	b := AudioOpusBatch{
		SampleRate:      binary.BigEndian.Uint32(payload[0:4]),
		FrameDurationMs: binary.BigEndian.Uint32(payload[4:8]),
	}
	count := binary.BigEndian.Uint32(payload[8:12])
	off := 12
	if uint64(off)+uint64(count)*2 > uint64(len(payload)) {
		return AudioOpusBatch{}, fmt.Errorf("wire: opus batch frame table truncated")
	}
	b.FrameSizes = make([]uint16, count)
	for i := range b.FrameSizes {
		b.FrameSizes[i] = binary.BigEndian.Uint16(payload[off : off+2])
		off += 2
	}
	b.OpusBytes = payload[off:]
	return b, nil
}
