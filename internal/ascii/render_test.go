package ascii

import (
	"image"
	"image/color"
	"strings"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRenderCellSolidRedEmitsTrueColorRed(t *testing.T) {
	img := solidImage(16, 16, color.RGBA{R: 0xFF, A: 0xFF})
	out := RenderCell(Cell{Source: img, X: 0, Y: 0, Width: 80, Height: 24, Palette: DefaultPalette, ColorDepth: ColorTrueColor})
	if out == "" {
		t.Fatalf("expected non-empty render output")
	}
	if !strings.Contains(out, "38;2;255;0;0") {
		t.Fatalf("expected a true-color red control sequence in output")
	}
	// Every row starts with a cursor-move sequence, so 24 rows give at
	// least 24 control sequences (color changes add more).
	if strings.Count(out, "\x1b[") < 24 {
		t.Fatalf("expected at least one control sequence per row")
	}
}

func TestRenderCellTooSmallIsSpace(t *testing.T) {
	img := solidImage(4, 4, color.White)
	out := RenderCell(Cell{Source: img, Width: 0, Height: 0})
	if out != " " {
		t.Fatalf("expected a single space for a zero-size cell, got %q", out)
	}
}

func TestLetterboxPreservesAspect(t *testing.T) {
	src := solidImage(100, 50, color.White) // 2:1 aspect
	dst := letterbox(src, 40, 40)           // square target
	if dst.Bounds().Dx() != 40 || dst.Bounds().Dy() != 40 {
		t.Fatalf("letterbox output should match requested target dimensions")
	}
	// Top and bottom rows should be background (black) since a wide
	// source letterboxed into a square target leaves horizontal bars.
	topLeft := dst.RGBAAt(0, 0)
	if topLeft.R != 0 || topLeft.G != 0 || topLeft.B != 0 {
		t.Fatalf("expected letterbox padding to be black, got %+v", topLeft)
	}
}

func TestRunLengthEncodeOnlyEmitsOnColorChange(t *testing.T) {
	glyphs := []rune{'#', '#', '.', '.'}
	colors := []RGB{{255, 0, 0}, {255, 0, 0}, {0, 255, 0}, {0, 255, 0}}
	out := runLengthEncode(glyphs, colors, ColorTrueColor)
	if strings.Count(out, "\x1b[38;2;") != 2 {
		t.Fatalf("expected exactly 2 color control sequences for 2 distinct runs, got %q", out)
	}
}

func TestControlSequenceMonochromeIsEmpty(t *testing.T) {
	if seq := controlSequence(RGB{R: 255}, ColorMonochrome); seq != "" {
		t.Fatalf("expected no control sequence for monochrome, got %q", seq)
	}
}
