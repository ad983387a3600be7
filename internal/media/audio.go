package media

import "fmt"

// Fixed audio parameters, per the design decision to hold frame size,
// sample rate and channel count constant rather than negotiate them.
const (
	SampleRateHz     = 48000
	Channels         = 2
	SamplesPerFrame  = 256
	BytesPerSample   = 2 // 16-bit signed PCM
	BytesPerAudioPCM = SamplesPerFrame * Channels * BytesPerSample
)

// AudioBatch is a parsed AUDIO_BATCH payload: zero or more fixed-size PCM
// frames, each pushed individually onto the receiving client's audio ring.
//
// Wire layout: a sequence of frame_count(2B) | frames[frame_count][BytesPerAudioPCM],
// each frame holding interleaved little-endian int16 samples.
type AudioBatch struct {
	Frames [][]int16 // one []int16 of length SamplesPerFrame*Channels per frame
}

// ParseAudioBatch decodes an AUDIO_BATCH payload into individual PCM frames.
func ParseAudioBatch(data []byte) (*AudioBatch, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("audio.parse: header truncated, need 2 bytes, got %d", len(data))
	}
	count := int(data[0])<<8 | int(data[1])
	rest := data[2:]
	want := count * BytesPerAudioPCM
	if len(rest) != want {
		return nil, fmt.Errorf("audio.parse: expected %d bytes for %d frames, got %d", want, count, len(rest))
	}
	batch := &AudioBatch{Frames: make([][]int16, count)}
	for i := 0; i < count; i++ {
		frameBytes := rest[i*BytesPerAudioPCM : (i+1)*BytesPerAudioPCM]
		samples := make([]int16, SamplesPerFrame*Channels)
		for s := range samples {
			lo := frameBytes[s*2]
			hi := frameBytes[s*2+1]
			samples[s] = int16(uint16(lo) | uint16(hi)<<8)
		}
		batch.Frames[i] = samples
	}
	return batch, nil
}

// EncodeAudioBatch serializes frames into an AUDIO_BATCH payload.
func EncodeAudioBatch(frames [][]int16) ([]byte, error) {
	for i, f := range frames {
		if len(f) != SamplesPerFrame*Channels {
			return nil, fmt.Errorf("audio.encode: frame %d has %d samples, want %d", i, len(f), SamplesPerFrame*Channels)
		}
	}
	out := make([]byte, 2+len(frames)*BytesPerAudioPCM)
	out[0] = byte(len(frames) >> 8)
	out[1] = byte(len(frames))
	off := 2
	for _, f := range frames {
		for _, s := range f {
			out[off] = byte(uint16(s))
			out[off+1] = byte(uint16(s) >> 8)
			off += 2
		}
	}
	return out, nil
}
