// Package layout computes how a terminal's character grid is divided among
// the participants visible to a given client: either an evenly scored
// gallery grid, or a focus layout with one large cell and a thumbnail strip.
package layout

import "math"

const (
	// MinCellWidth and MinCellHeight are the smallest usable cell
	// dimensions; anything smaller renders as a blank cell.
	MinCellWidth  = 15
	MinCellHeight = 6

	maxCapacity = 100
)

// Mode selects which layout algorithm produced a Layout.
type Mode int

const (
	ModeGallery Mode = iota
	ModeFocus
)

// Cell is one participant's assigned rectangle, in character cells,
// measured from the terminal's top-left corner.
type Cell struct {
	ParticipantID uint32
	X, Y          int
	Width, Height int
}

// Layout is the computed arrangement for one render.
type Layout struct {
	Mode       Mode
	Cols, Rows int
	Cells      []Cell
	Page       int
	TotalPages int
}

// Compute picks a gallery or focus layout for W×H terminal cells housing
// participant ids (ascending order determines cell assignment order).
// focus, if non-zero, pins that participant id to the primary cell and
// switches to a focus layout.
func Compute(w, h int, participantIDs []uint32, focus uint32, page int) Layout {
	if focus != 0 {
		for _, id := range participantIDs {
			if id == focus {
				return computeFocus(w, h, participantIDs, focus)
			}
		}
	}
	return computeGallery(w, h, participantIDs, page)
}

func computeGallery(w, h int, ids []uint32, page int) Layout {
	n := len(ids)
	capacity := clampCapacity((w / MinCellWidth) * (h / MinCellHeight))
	visible := n
	if visible > capacity {
		visible = capacity
	}
	if visible < 0 {
		visible = 0
	}
	totalPages := 1
	if visible > 0 {
		totalPages = int(math.Ceil(float64(n) / float64(visible)))
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	cols, rows := bestGrid(w, h, visible)
	layout := Layout{Mode: ModeGallery, Cols: cols, Rows: rows, Page: page, TotalPages: totalPages}
	if cols == 0 || rows == 0 || visible == 0 {
		return layout
	}
	cellW := w / cols
	cellH := h / rows

	start := page * visible
	end := start + visible
	if end > n {
		end = n
	}
	pageIDs := ids[start:end]

	for i, id := range pageIDs {
		col := i % cols
		row := i / cols
		layout.Cells = append(layout.Cells, Cell{
			ParticipantID: id,
			X:             col * cellW,
			Y:             row * cellH,
			Width:         cellW,
			Height:        cellH,
		})
	}
	return layout
}

// bestGrid enumerates (cols, rows) candidates satisfying cols*rows >=
// visible and empty_cells <= min(cols, rows), rejects configurations whose
// cells fall below the minimum size, and picks the highest-scoring one,
// breaking ties toward fewer columns.
func bestGrid(w, h, visible int) (int, int) {
	if visible <= 0 {
		return 0, 0
	}
	bestScore := -1.0
	bestCols, bestRows := 0, 0
	for cols := 1; cols <= visible; cols++ {
		rows := int(math.Ceil(float64(visible) / float64(cols)))
		if cols*rows < visible {
			continue
		}
		empty := cols*rows - visible
		if empty > minInt(cols, rows) {
			continue
		}
		cellW := w / cols
		cellH := h / rows
		if cellW < MinCellWidth || cellH < MinCellHeight {
			continue
		}
		score := scoreGrid(w, h, cols, rows, cellW, cellH, visible)
		if score > bestScore || (score == bestScore && cols < bestCols) {
			bestScore = score
			bestCols, bestRows = cols, rows
		}
	}
	return bestCols, bestRows
}

func scoreGrid(w, h, cols, rows, cellW, cellH, visible int) float64 {
	aspect := 1 / (1 + math.Abs(float64(cellW)/float64(cellH)-2.0))
	utilization := float64(visible) / float64(cols*rows)
	sizeW := clamp01(float64(cellW) / MinCellWidth)
	sizeH := clamp01(float64(cellH) / MinCellHeight)
	size := math.Sqrt(sizeW * sizeH)
	shape := 1 / (1 + math.Abs(float64(w)/float64(h)-float64(cols)/float64(rows)))
	return 0.35*aspect + 0.25*utilization + 0.25*size + 0.15*shape
}

func computeFocus(w, h int, ids []uint32, focus uint32) Layout {
	others := make([]uint32, 0, len(ids))
	for _, id := range ids {
		if id != focus {
			others = append(others, id)
		}
	}

	layout := Layout{Mode: ModeFocus, TotalPages: 1}
	wide := w >= h*2

	var primary Cell
	var stripCells []Cell

	if wide {
		primaryW := int(float64(w) * 0.75)
		stripW := w - primaryW
		primary = Cell{ParticipantID: focus, X: 0, Y: 0, Width: primaryW, Height: h}
		thumbH := MinCellHeight
		if len(others) > 0 {
			thumbH = h / len(others)
			if thumbH < MinCellHeight {
				thumbH = MinCellHeight
			}
		}
		for i, id := range others {
			y := i * thumbH
			if y+thumbH > h {
				break
			}
			stripCells = append(stripCells, Cell{ParticipantID: id, X: primaryW, Y: y, Width: stripW, Height: thumbH})
		}
	} else {
		primaryH := int(float64(h) * 0.70)
		stripH := h - primaryH
		primary = Cell{ParticipantID: focus, X: 0, Y: 0, Width: w, Height: primaryH}
		thumbW := MinCellWidth
		if len(others) > 0 {
			thumbW = w / len(others)
			if thumbW < MinCellWidth {
				thumbW = MinCellWidth
			}
		}
		for i, id := range others {
			x := i * thumbW
			if x+thumbW > w {
				break
			}
			stripCells = append(stripCells, Cell{ParticipantID: id, X: x, Y: primaryH, Width: thumbW, Height: stripH})
		}
	}

	layout.Cells = append([]Cell{primary}, stripCells...)
	return layout
}

func clampCapacity(c int) int {
	if c < 0 {
		return 0
	}
	if c > maxCapacity {
		return maxCapacity
	}
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
