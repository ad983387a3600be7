package server

// Video render worker: per §4.9, a ~16.6ms periodic loop that snapshots
// this client's terminal size, acquires every visible peer's latest frame
// without holding the registry lock across rendering, computes a layout,
// and enqueues one composite ASCII_FRAME packet per period.

import (
	"sort"
	"time"

	"github.com/asciichat/asciichat/internal/ascii"
	"github.com/asciichat/asciichat/internal/layout"
	"github.com/asciichat/asciichat/internal/media"
	"github.com/asciichat/asciichat/internal/protocol/packet"
)

const videoRenderPeriod = 16600 * time.Microsecond

// peerFrame pairs a snapshot of a peer's latest video frame with its id.
type peerFrame struct {
	id    uint32
	frame *media.VideoFrame
}

func (c *Client) runVideoRenderWorker(reg *Registry) {
	ticker := time.NewTicker(videoRenderPeriod)
	defer ticker.Stop()

	cache := make(map[uint32]*media.VideoFrame)

	for c.liveVideoRender.Load() {
		<-ticker.C
		if !c.Ready() {
			continue
		}

		width, height, depth, palette := c.Dimensions()
		focus, mirrorSelf := c.FocusAndMirror()

		peers := reg.Snapshot()
		frames := make([]peerFrame, 0, len(peers))
		ids := make([]uint32, 0, len(peers))
		for _, peer := range peers {
			if peer.ID == c.ID && !mirrorSelf {
				continue
			}
			if !peer.Active.Load() || !peer.HasVideo.Load() {
				continue
			}
			if f := peer.FrameStore.AcquireLatest(); f != nil {
				cache[peer.ID] = f
			}
			if f, ok := cache[peer.ID]; ok {
				frames = append(frames, peerFrame{id: peer.ID, frame: f})
				ids = append(ids, peer.ID)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		l := layout.Compute(width, height, ids, focus, 0)
		composite := renderComposite(l, frames, depth, palette)

		p := &packet.Packet{Type: packet.TypeASCIIFrame, ClientID: c.ID, Payload: []byte(composite)}
		c.SendQ.Enqueue(p)
	}
}

func renderComposite(l layout.Layout, frames []peerFrame, depth ascii.ColorDepth, palette string) string {
	byID := make(map[uint32]*media.VideoFrame, len(frames))
	for _, pf := range frames {
		byID[pf.id] = pf.frame
	}

	var out []byte
	for _, cell := range l.Cells {
		frame, ok := byID[cell.ParticipantID]
		if !ok {
			continue
		}
		rendered := ascii.RenderCell(ascii.Cell{
			Source:     frame.ToImage(),
			X:          cell.X,
			Y:          cell.Y,
			Width:      cell.Width,
			Height:     cell.Height,
			Palette:    palette,
			ColorDepth: depth,
		})
		out = append(out, rendered...)
	}
	return string(out)
}
