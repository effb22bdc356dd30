package asciiencoder

import (
	"fmt"
	"strings"
)

// grayscalePalette is the fallback character ramp for ColorDepth == 0,
// ordered dark to light.
const grayscalePalette = " .:-=+*#%@"

// halfBlock is U+2580 UPPER HALF BLOCK: with a foreground color set to the
// top source pixel and a background color set to the bottom one, one
// character represents two vertical source pixels.
const halfBlock = "▀"

// DefaultConverter is a from-scratch luminance/half-block renderer. It
// nearest-neighbor samples the source raster down to the requested
// TargetRows and TargetCols, so a raster whose dimensions don't already
// match the destination character grid (the grid compositor's V=1 case
// hands over a source at its native resolution) still lands on exactly
// destWChars columns, and emits ANSI truecolor or 256-color escapes per
// the requested ColorDepth.
type DefaultConverter struct{}

func (DefaultConverter) Convert(rgb []byte, width, height int, opts Options) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("asciiencoder: invalid source dimensions %dx%d", width, height)
	}
	if len(rgb) < width*height*3 {
		return nil, fmt.Errorf("asciiencoder: short raster: have %d bytes, want %d", len(rgb), width*height*3)
	}
	targetRows := opts.TargetRows
	if targetRows <= 0 {
		targetRows = height
	}
	targetCols := opts.TargetCols
	if targetCols <= 0 {
		targetCols = width
	}
	opts.TargetCols = targetCols

	var b strings.Builder

	if opts.Mode == RenderHalfBlock {
		renderHalfBlock(&b, rgb, width, height, targetRows, opts)
	} else {
		renderFlat(&b, rgb, width, height, targetRows, opts)
	}
	b.Write(ResetSequence)
	return []byte(b.String()), nil
}

// renderHalfBlock emits one row of half-block characters per pair of
// source scanlines, sampling targetRows/2 such pairs across height.
func renderHalfBlock(b *strings.Builder, rgb []byte, width, height, targetRows int, opts Options) {
	rowPairs := targetRows / 2
	if rowPairs <= 0 {
		rowPairs = 1
	}
	var lastFG, lastBG [3]byte
	first := true
	for ry := 0; ry < rowPairs; ry++ {
		topY := ry * 2 * height / targetRows
		botY := topY + 1
		if botY >= height {
			botY = height - 1
		}
		for tx := 0; tx < opts.TargetCols; tx++ {
			srcX := tx * width / opts.TargetCols
			fg := pixelAt(rgb, width, srcX, topY)
			bg := pixelAt(rgb, width, srcX, botY)
			if first || fg != lastFG || bg != lastBG {
				writeColor(b, fg, true, opts.ColorDepth)
				writeColor(b, bg, false, opts.ColorDepth)
				lastFG, lastBG = fg, bg
				first = false
			}
			b.WriteString(halfBlock)
		}
		b.Write(ResetSequence)
		b.WriteByte('\n')
		first = true
	}
}

// renderFlat emits one character per sampled source pixel using either a
// foreground-colored block glyph, a background-colored space, or (when
// ColorDepth is 0) a luminance-mapped grayscale glyph.
func renderFlat(b *strings.Builder, rgb []byte, width, height, targetRows int, opts Options) {
	if targetRows <= 0 {
		targetRows = height
	}
	for ty := 0; ty < targetRows; ty++ {
		srcY := ty * height / targetRows
		for tx := 0; tx < opts.TargetCols; tx++ {
			srcX := tx * width / opts.TargetCols
			px := pixelAt(rgb, width, srcX, srcY)
			if opts.ColorDepth == 0 {
				b.WriteByte(luminanceGlyph(px))
				continue
			}
			switch opts.Mode {
			case RenderBackground:
				writeColor(b, px, false, opts.ColorDepth)
				b.WriteByte(' ')
			default:
				writeColor(b, px, true, opts.ColorDepth)
				b.WriteByte('#')
			}
		}
		b.Write(ResetSequence)
		b.WriteByte('\n')
	}
}

func pixelAt(rgb []byte, width, x, y int) [3]byte {
	idx := (y*width + x) * 3
	if idx+2 >= len(rgb) {
		return [3]byte{}
	}
	return [3]byte{rgb[idx], rgb[idx+1], rgb[idx+2]}
}

func luminanceGlyph(px [3]byte) byte {
	lum := (int(px[0])*299 + int(px[1])*587 + int(px[2])*114) / 1000
	idx := lum * (len(grayscalePalette) - 1) / 255
	return grayscalePalette[idx]
}

func writeColor(b *strings.Builder, px [3]byte, foreground bool, colorDepth int) {
	code := 38
	if !foreground {
		code = 48
	}
	if colorDepth >= 16777216 {
		fmt.Fprintf(b, "\x1b[%d;2;%d;%d;%dm", code, px[0], px[1], px[2])
		return
	}
	fmt.Fprintf(b, "\x1b[%d;5;%dm", code, rgbTo256(px))
}

// rgbTo256 maps an RGB triple onto the xterm 256-color 6x6x6 cube.
func rgbTo256(px [3]byte) int {
	quant := func(c byte) int { return int(c) * 5 / 255 }
	r, g, bl := quant(px[0]), quant(px[1]), quant(px[2])
	return 16 + 36*r + 6*g + bl
}
