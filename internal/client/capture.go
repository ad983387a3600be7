package client

import "github.com/asciichat/asciichat/internal/media"

// VideoSource is the interface contract a host application implements to
// supply webcam frames. This package only consumes already-captured frames
// via SendVideoFrame/SendAudioBatch; OS-level capture (v4l2, AVFoundation,
// DirectShow, ...) is out of scope here and left to the embedder.
type VideoSource interface {
	// CaptureFrame blocks until the next frame is available and returns it
	// encoded as an IMAGE_FRAME payload (see media.EncodeVideoFrame).
	CaptureFrame() (*media.VideoFrame, error)
	Close() error
}

// AudioSource is the interface contract for a microphone capture backend.
// Each call returns one fixed-size PCM frame (48 kHz, stereo, 256 samples
// per the design's ring-buffer sizing) ready to hand to AudioRing-style
// batching before SendAudioBatch.
type AudioSource interface {
	CaptureSamples() ([]int16, error)
	Close() error
}
