// Package asciiencoder implements the ASCII encoder adapter (C7): it
// delegates raw-pixel-to-text conversion to a pluggable Converter and
// enforces the output policy the spec requires regardless of which
// converter is behind it — every emitted buffer ends in a terminal reset
// sequence.
//
// No third-party ASCII-art/terminal-image library appears anywhere in the
// retrieved corpus, so the default Converter here is a small from-scratch
// luminance/half-block renderer built on stdlib byte and color math; this
// is documented in DESIGN.md as a justified stdlib fallback (there was
// nothing in-pack to adapt instead).
package asciiencoder

import "bytes"

// ResetSequence is the ANSI SGR reset the output policy requires every
// emitted buffer to end with.
var ResetSequence = []byte{0x1B, '[', '0', 'm'}

// RenderMode mirrors the three rendering strategies a terminal client can
// request. Declared locally (rather than imported from the fanout package)
// so this package stays a leaf with no dependency back on client state.
type RenderMode uint8

const (
	RenderForeground RenderMode = iota
	RenderBackground
	RenderHalfBlock
)

// Options carries everything a Converter needs to know about the
// recipient besides the raw pixels.
type Options struct {
	Mode         RenderMode
	ColorDepth   int // 0 = monochrome, 16, 256, or 24-bit (16777216)
	PaletteChars string
	TargetRows   int // rows of output text; half-block mode wants 2*H
	TargetCols   int // columns of output text; 0 means "same as source width"
}

// Converter turns an RGB raster into terminal text. width/height are in
// pixels; rgb is width*height*3 bytes row-major.
type Converter interface {
	Convert(rgb []byte, width, height int, opts Options) ([]byte, error)
}

// Encode runs conv over the given raster with capability-appropriate
// options and applies the output policy: the result always ends with
// ResetSequence. destWChars/destHChars are the recipient's character grid
// dimensions; when opts.Mode is RenderHalfBlock the converter is asked for
// 2*destHChars target rows so it emits one character per vertical
// half-pixel, matching the compositor's half-block pixel canvas (C6 step
// 4). Passing destWChars <= 0 leaves column fitting to the source's own
// width, which is what every multi-source composite already wants since
// the grid compositor pre-sizes its canvas to the destination; the grid
// compositor's V=1 case instead hands over a source at its native
// resolution, relying on this column fit to bring it to the recipient's
// terminal width. anomalous reports whether the converter emitted no
// reset sequence at all, so the caller can log it; the returned bytes are
// still policy-compliant regardless.
func Encode(conv Converter, rgb []byte, width, height, destWChars, destHChars int, caps Options) (out []byte, anomalous bool, err error) {
	if caps.Mode == RenderHalfBlock {
		caps.TargetRows = 2 * destHChars
	} else {
		caps.TargetRows = destHChars
	}
	caps.TargetCols = destWChars
	raw, err := conv.Convert(rgb, width, height, caps)
	if err != nil {
		return nil, false, err
	}
	return enforceReset(raw), hadAnomalousTail(raw), nil
}

// enforceReset ensures out ends with ResetSequence. If out already ends
// with it, it is returned unchanged. If a reset appears earlier but
// trailing bytes after it look like converter garbage, the buffer is
// truncated at the last reset. If no reset exists anywhere, the whole
// buffer is kept and ResetSequence is appended to it (the caller is
// expected to log this anomaly).
func enforceReset(out []byte) []byte {
	if bytes.HasSuffix(out, ResetSequence) {
		return out
	}
	if idx := bytes.LastIndex(out, ResetSequence); idx >= 0 {
		return out[:idx+len(ResetSequence)]
	}
	return append(out, ResetSequence...)
}

// hadAnomalousTail reports whether out contains no reset sequence at all,
// i.e. the caller should log an anomaly rather than silently accept the
// append enforceReset performed.
func hadAnomalousTail(out []byte) bool {
	return bytes.Index(out, ResetSequence) < 0
}
