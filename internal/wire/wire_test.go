package wire

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := Packet{Type: TypeClearConsole, ClientID: 42, Payload: nil}
	buf := Encode(p)
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Type != p.Type || got.ClientID != p.ClientID {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, p)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := Encode(Packet{Type: TypePing, ClientID: 1})
	buf[0] ^= 0xFF
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected magic mismatch error")
	}
}

func TestDecodeRejectsCRCMismatch(t *testing.T) {
	buf := Encode(Packet{Type: TypeAudio, ClientID: 1, Payload: []byte{1, 2, 3, 4}})
	buf[len(buf)-1] ^= 0xFF
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected crc mismatch error")
	}
}

func TestReadWritePacket(t *testing.T) {
	var w bytes.Buffer
	p := Packet{Type: TypeAudio, ClientID: 7, Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	if err := WritePacket(&w, p); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	got, err := ReadPacket(&w)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if !bytes.Equal(got.Payload, p.Payload) {
		t.Fatalf("payload mismatch: got %v want %v", got.Payload, p.Payload)
	}
}

func TestImageFrameRoundTrip(t *testing.T) {
	rgb := bytes.Repeat([]byte{128, 64, 32}, 4*4)
	buf := EncodeImageFrame(ImageFrame{Width: 4, Height: 4, RGB: rgb})
	got, err := DecodeImageFrame(buf)
	if err != nil {
		t.Fatalf("DecodeImageFrame: %v", err)
	}
	if got.Width != 4 || got.Height != 4 || !bytes.Equal(got.RGB, rgb) {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestImageFrameRejectsOversizedDimensions(t *testing.T) {
	buf := EncodeImageFrame(ImageFrame{Width: 5000, Height: 10, RGB: make([]byte, 5000*10*3)})
	if _, err := DecodeImageFrame(buf); err == nil {
		t.Fatal("expected rejection of width > 4096")
	}
}

func TestImageFrameToleratesTrailingBytes(t *testing.T) {
	rgb := bytes.Repeat([]byte{1, 2, 3}, 2*2)
	buf := EncodeImageFrame(ImageFrame{Width: 2, Height: 2, RGB: rgb})
	buf = append(buf, 0xAA, 0xBB, 0xCC)
	got, err := DecodeImageFrame(buf)
	if err != nil {
		t.Fatalf("DecodeImageFrame: %v", err)
	}
	if len(got.RGB) != len(rgb) {
		t.Fatalf("trailing bytes not discarded: got %d want %d", len(got.RGB), len(rgb))
	}
}

func TestAudioRoundTrip(t *testing.T) {
	samples := []float32{0.1, -0.2, 0.3, 1.0, -1.0}
	buf := EncodeAudio(samples)
	got, err := DecodeAudio(buf)
	if err != nil {
		t.Fatalf("DecodeAudio: %v", err)
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d mismatch: got %v want %v", i, got[i], samples[i])
		}
	}
}

func TestClientCapabilitiesRoundTrip(t *testing.T) {
	c := ClientCapabilities{
		ColorDepth:    16777216,
		Mode:          2,
		DesiredWidth:  120,
		DesiredHeight: 40,
		DesiredFPS:    30,
		PaletteChars:  " .:-=+*#%@",
	}
	buf := EncodeClientCapabilities(c)
	got, err := DecodeClientCapabilities(buf)
	if err != nil {
		t.Fatalf("DecodeClientCapabilities: %v", err)
	}
	if got != c {
		t.Fatalf("mismatch: got %+v want %+v", got, c)
	}
}

func TestAudioOpusBatchRoundTrip(t *testing.T) {
	b := AudioOpusBatch{
		SampleRate:      48000,
		FrameDurationMs: 20,
		FrameSizes:      []uint16{100, 120},
		OpusBytes:       bytes.Repeat([]byte{0xAB}, 220),
	}
	buf := EncodeAudioOpusBatch(b)
	got, err := DecodeAudioOpusBatch(buf)
	if err != nil {
		t.Fatalf("DecodeAudioOpusBatch: %v", err)
	}
	if got.SampleRate != b.SampleRate || len(got.FrameSizes) != 2 || !bytes.Equal(got.OpusBytes, b.OpusBytes) {
		t.Fatalf("mismatch: %+v", got)
	}
}
