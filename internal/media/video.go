// Package media parses the application-layer payloads carried inside
// IMAGE_FRAME and AUDIO_BATCH packets.
package media

import (
	"fmt"
	"image"
	"image/color"
)

// Pixel formats supported in an IMAGE_FRAME header.
const (
	PixelFormatRGB24 = "RGB24"
	PixelFormatRGBA  = "RGBA"
	PixelFormatGray8 = "GRAY8"
)

func bytesPerPixel(format string) (int, error) {
	switch format {
	case PixelFormatRGB24:
		return 3, nil
	case PixelFormatRGBA:
		return 4, nil
	case PixelFormatGray8:
		return 1, nil
	default:
		return 0, fmt.Errorf("video.parse: unsupported pixel format %q", format)
	}
}

// VideoFrame is a parsed IMAGE_FRAME payload: a decoded header plus the raw
// pixel bytes, left untouched for the frame store to copy.
//
// Wire layout:
//
//	width(2B) | height(2B) | pixel_format(1B) | pixels[width*height*bpp]
//
// pixel_format is a single byte selecting one of the PixelFormat* constants
// (0=RGB24, 1=RGBA, 2=GRAY8).
type VideoFrame struct {
	Width  int
	Height int
	Format string
	Pixels []byte
}

// ParseVideoFrame decodes the header of an IMAGE_FRAME payload and
// validates that the pixel buffer is exactly the expected size for the
// declared dimensions and format.
func ParseVideoFrame(data []byte) (*VideoFrame, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("video.parse: header truncated, need 5 bytes, got %d", len(data))
	}
	width := int(data[0])<<8 | int(data[1])
	height := int(data[2])<<8 | int(data[3])
	format, err := pixelFormatFromByte(data[4])
	if err != nil {
		return nil, err
	}
	bpp, err := bytesPerPixel(format)
	if err != nil {
		return nil, err
	}
	pixels := data[5:]
	want := width * height * bpp
	if len(pixels) != want {
		return nil, fmt.Errorf("video.parse: expected %d pixel bytes for %dx%d %s, got %d", want, width, height, format, len(pixels))
	}
	return &VideoFrame{Width: width, Height: height, Format: format, Pixels: pixels}, nil
}

func pixelFormatFromByte(b byte) (string, error) {
	switch b {
	case 0:
		return PixelFormatRGB24, nil
	case 1:
		return PixelFormatRGBA, nil
	case 2:
		return PixelFormatGray8, nil
	default:
		return "", fmt.Errorf("video.parse: unknown pixel format id=%d", b)
	}
}

// ToImage adapts the frame's raw pixel buffer to an image.Image so the
// renderer can resize and sample it without knowing the wire pixel format.
func (f *VideoFrame) ToImage() image.Image {
	switch f.Format {
	case PixelFormatGray8:
		img := &image.Gray{Pix: f.Pixels, Stride: f.Width, Rect: image.Rect(0, 0, f.Width, f.Height)}
		return img
	case PixelFormatRGBA:
		img := &image.RGBA{Pix: f.Pixels, Stride: f.Width * 4, Rect: image.Rect(0, 0, f.Width, f.Height)}
		return img
	default: // PixelFormatRGB24
		img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		for i := 0; i < f.Width*f.Height; i++ {
			r, g, b := f.Pixels[i*3], f.Pixels[i*3+1], f.Pixels[i*3+2]
			img.SetRGBA(i%f.Width, i/f.Width, color.RGBA{R: r, G: g, B: b, A: 255})
		}
		return img
	}
}

// EncodeVideoFrame serializes a VideoFrame back into an IMAGE_FRAME payload.
func EncodeVideoFrame(f *VideoFrame) ([]byte, error) {
	var formatByte byte
	switch f.Format {
	case PixelFormatRGB24:
		formatByte = 0
	case PixelFormatRGBA:
		formatByte = 1
	case PixelFormatGray8:
		formatByte = 2
	default:
		return nil, fmt.Errorf("video.encode: unsupported pixel format %q", f.Format)
	}
	bpp, err := bytesPerPixel(f.Format)
	if err != nil {
		return nil, err
	}
	if len(f.Pixels) != f.Width*f.Height*bpp {
		return nil, fmt.Errorf("video.encode: pixel buffer length %d does not match %dx%d %s", len(f.Pixels), f.Width, f.Height, f.Format)
	}
	out := make([]byte, 5+len(f.Pixels))
	out[0] = byte(f.Width >> 8)
	out[1] = byte(f.Width)
	out[2] = byte(f.Height >> 8)
	out[3] = byte(f.Height)
	out[4] = formatByte
	copy(out[5:], f.Pixels)
	return out, nil
}
