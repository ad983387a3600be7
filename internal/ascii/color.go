package ascii

import "fmt"

// ColorDepth selects how a client's declared terminal capability encodes
// foreground/background color control sequences.
type ColorDepth int

const (
	ColorMonochrome ColorDepth = iota
	Color16
	Color256
	ColorTrueColor
)

// RGB is a single renderer-internal color sample.
type RGB struct {
	R, G, B uint8
}

// controlSequence returns the ANSI escape sequence selecting fg as the
// foreground color at the given depth, or "" for monochrome.
func controlSequence(fg RGB, depth ColorDepth) string {
	switch depth {
	case ColorTrueColor:
		return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", fg.R, fg.G, fg.B)
	case Color256:
		return fmt.Sprintf("\x1b[38;5;%dm", rgbTo256(fg))
	case Color16:
		return fmt.Sprintf("\x1b[%dm", rgbTo16(fg))
	default:
		return ""
	}
}

func rgbTo256(c RGB) int {
	r := int(c.R) * 5 / 255
	g := int(c.G) * 5 / 255
	b := int(c.B) * 5 / 255
	return 16 + 36*r + 6*g + b
}

func rgbTo16(c RGB) int {
	y := Luminance(c.R, c.G, c.B)
	bright := y > 127
	base := 30
	if bright {
		base = 90
	}
	idx := 0
	if c.R > 127 {
		idx |= 1
	}
	if c.G > 127 {
		idx |= 2
	}
	if c.B > 127 {
		idx |= 4
	}
	return base + idx
}

// runLengthEncode walks a scanline of colors, emitting a control sequence
// only when the color changes from the previous cell, per §4.7's
// "foreground color control sequence only when the color changes".
func runLengthEncode(glyphs []rune, colors []RGB, depth ColorDepth) string {
	var out []byte
	var last RGB
	haveLast := false
	for i, g := range glyphs {
		c := colors[i]
		if !haveLast || c != last {
			out = append(out, controlSequence(c, depth)...)
			last = c
			haveLast = true
		}
		out = append(out, []byte(string(g))...)
	}
	return string(out)
}
