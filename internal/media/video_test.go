package media

import (
	"bytes"
	"testing"
)

func TestVideoFrameRoundTrip(t *testing.T) {
	pixels := bytes.Repeat([]byte{0xFF, 0x00, 0x00}, 16*16)
	f := &VideoFrame{Width: 16, Height: 16, Format: PixelFormatRGB24, Pixels: pixels}
	encoded, err := EncodeVideoFrame(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := ParseVideoFrame(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if decoded.Width != 16 || decoded.Height != 16 || decoded.Format != PixelFormatRGB24 {
		t.Fatalf("header mismatch: %+v", decoded)
	}
	if !bytes.Equal(decoded.Pixels, pixels) {
		t.Fatalf("pixel mismatch")
	}
}

func TestVideoFrameGray8(t *testing.T) {
	pixels := make([]byte, 4*4)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	encoded, err := EncodeVideoFrame(&VideoFrame{Width: 4, Height: 4, Format: PixelFormatGray8, Pixels: pixels})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := ParseVideoFrame(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if decoded.Format != PixelFormatGray8 || len(decoded.Pixels) != 16 {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestVideoFrameTruncatedHeader(t *testing.T) {
	if _, err := ParseVideoFrame([]byte{0x00, 0x10}); err == nil {
		t.Fatalf("expected error on truncated header")
	}
}

func TestVideoFramePixelSizeMismatch(t *testing.T) {
	data := []byte{0x00, 0x02, 0x00, 0x02, 0x00, 0x01, 0x02} // 2x2 RGB24 needs 12 bytes, only 2 given
	if _, err := ParseVideoFrame(data); err == nil {
		t.Fatalf("expected error on pixel size mismatch")
	}
}

func TestVideoFrameUnknownFormat(t *testing.T) {
	data := []byte{0x00, 0x01, 0x00, 0x01, 0x09, 0xFF}
	if _, err := ParseVideoFrame(data); err == nil {
		t.Fatalf("expected error on unknown pixel format")
	}
}

func TestEncodeVideoFrameSizeMismatch(t *testing.T) {
	f := &VideoFrame{Width: 2, Height: 2, Format: PixelFormatRGB24, Pixels: []byte{0x01}}
	if _, err := EncodeVideoFrame(f); err == nil {
		t.Fatalf("expected error encoding mismatched pixel buffer")
	}
}
