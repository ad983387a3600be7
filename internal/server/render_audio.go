package server

// Audio render worker: per §4.9, a ~5.8ms periodic loop mixing one PCM
// frame from every other active peer into this client's own output frame.
// Mixing grounded on the N-1 conference mix cycle pattern (sum into a
// wider accumulator, then saturate back to int16) used by the flowpbx
// media mixer's per-destination mix phase.

import (
	"time"

	"github.com/asciichat/asciichat/internal/media"
	"github.com/asciichat/asciichat/internal/protocol/packet"
)

const audioRenderPeriod = 5800 * time.Microsecond

func (c *Client) runAudioRenderWorker(reg *Registry) {
	if !reg.AudioEnabled {
		return
	}
	ticker := time.NewTicker(audioRenderPeriod)
	defer ticker.Stop()

	const samplesPerFrame = media.SamplesPerFrame * media.Channels
	mixBuf := make([]int32, samplesPerFrame)

	for c.liveAudioRender.Load() {
		<-ticker.C
		if !c.Ready() {
			continue
		}

		for i := range mixBuf {
			mixBuf[i] = 0
		}
		sources := 0

		for _, peer := range reg.Snapshot() {
			if peer.ID == c.ID || !peer.Active.Load() || !peer.HasAudio.Load() {
				continue
			}
			frame, ok := peer.AudioRing.Pop()
			if !ok {
				continue
			}
			sources++
			for i := 0; i < samplesPerFrame && i < len(frame); i++ {
				mixBuf[i] += int32(frame[i])
			}
		}

		if sources == 0 {
			continue
		}

		out := make([]int16, samplesPerFrame)
		for i, s := range mixBuf {
			mixed := s / int32(sources)
			out[i] = saturateInt16(mixed)
		}

		payload, err := media.EncodeAudioBatch([][]int16{out})
		if err != nil {
			c.log.Warn("audio render worker: encode failed", "error", err)
			continue
		}
		c.SendQ.Enqueue(&packet.Packet{Type: packet.TypeAudioBatch, ClientID: c.ID, Payload: payload})
	}
}

func saturateInt16(s int32) int16 {
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}
