package ascii

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
)

// CursorMove returns the control sequence to position the cursor at the
// given 0-indexed column/row, so cells can be assembled without depending
// on the client's line-wrap behavior.
func CursorMove(col, row int) string {
	return fmt.Sprintf("\x1b[%d;%dH", row+1, col+1)
}

// Cell is one rendered participant's placement, matching what the layout
// engine hands the renderer: a source image plus target character
// dimensions at a composite-frame offset.
type Cell struct {
	Source     image.Image
	X, Y       int
	Width      int // character columns
	Height     int // character rows
	Palette    string
	ColorDepth ColorDepth
}

// RenderCell produces the ANSI byte sequence for one cell: resize with
// aspect-preserving letterboxing, luminance bucketing, glyph lookup, and
// per-scanline run-length color encoding.
func RenderCell(c Cell) string {
	if c.Width < 1 || c.Height < 1 {
		return " " // CellTooSmall: render as a single space, never abort
	}
	resized := letterbox(c.Source, c.Width, c.Height)
	table := globalCache.lookupOrBuild(c.Palette)

	var b strings.Builder
	glyphs := make([]rune, c.Width)
	colors := make([]RGB, c.Width)
	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			px := resized.At(col, row)
			r, g, bl, _ := px.RGBA()
			rgb := RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}
			y := Luminance(rgb.R, rgb.G, rgb.B)
			glyphs[col] = table.direct[y]
			colors[col] = rgb
		}
		b.WriteString(CursorMove(c.X, c.Y+row))
		b.WriteString(runLengthEncode(glyphs, colors, c.ColorDepth))
	}
	return b.String()
}

// letterbox resizes src to fit within w×h character cells, preserving
// aspect ratio, and centers it on a black background so cells never show
// stretched content.
func letterbox(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}

	scale := float64(w) / float64(sw)
	if s := float64(h) / float64(sh); s < scale {
		scale = s
	}
	fitW := int(float64(sw) * scale)
	fitH := int(float64(sh) * scale)
	if fitW < 1 {
		fitW = 1
	}
	if fitH < 1 {
		fitH = 1
	}
	offX := (w - fitW) / 2
	offY := (h - fitH) / 2

	dstRect := image.Rect(offX, offY, offX+fitW, offY+fitH)
	draw.CatmullRom.Scale(dst, dstRect, src, sb, draw.Over, nil)
	return dst
}
