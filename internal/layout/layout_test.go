package layout

import (
	"testing"
)

func participantIDs(n int) []uint32 {
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i + 1)
	}
	return ids
}

func TestPagination15Clients80x24(t *testing.T) {
	l := Compute(80, 24, participantIDs(15), 0, 0)
	if l.TotalPages != 1 {
		t.Fatalf("TotalPages = %d, want 1", l.TotalPages)
	}
	if len(l.Cells) != 15 {
		t.Fatalf("expected all 15 participants visible on one page, got %d", len(l.Cells))
	}
}

// TestGalleryFourClients80x24PicksHighestScoringGrid pins the actual
// winner of the §4.6 scoring formula for 4 clients on an 80x24 terminal.
// Scoring every legal candidate exactly as specified
// (0.35*aspect + 0.25*utilization + 0.25*size + 0.15*shape) gives
// 1x4 -> 0.565, 2x2 -> 0.695, 3x2 -> 0.770, 4x1 -> 0.752: 3x2 wins, since
// its 26x12 cell (width:height 2.17) sits almost exactly on the formula's
// own 2:1 target aspect, well ahead of 2x2's 40x12 (3.33) and 4x1's 20x24
// (0.83). See DESIGN.md's worked-example-5 entry.
func TestGalleryFourClients80x24PicksHighestScoringGrid(t *testing.T) {
	l := Compute(80, 24, participantIDs(4), 0, 0)
	if l.Cols != 3 || l.Rows != 2 {
		t.Fatalf("got cols=%d rows=%d, want cols=3 rows=2", l.Cols, l.Rows)
	}
	cellW := 80 / l.Cols
	cellH := 24 / l.Rows
	if cellW != 26 || cellH != 12 {
		t.Fatalf("got cell %dx%d, want 26x12", cellW, cellH)
	}
}

func TestGalleryCellsMeetMinimumSize(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 10, 15, 20} {
		l := Compute(80, 24, participantIDs(n), 0, 0)
		for _, c := range l.Cells {
			if c.Width < MinCellWidth || c.Height < MinCellHeight {
				t.Fatalf("n=%d: cell %+v below minimum size", n, c)
			}
		}
	}
}

func TestGalleryVisibleNeverExceedsCapacity(t *testing.T) {
	w, h := 80, 24
	capacity := (w / MinCellWidth) * (h / MinCellHeight)
	l := Compute(w, h, participantIDs(50), 0, 0)
	if len(l.Cells) > capacity {
		t.Fatalf("visible %d exceeds capacity %d", len(l.Cells), capacity)
	}
}

func TestGalleryCellsDoNotOverlapOrExceedBounds(t *testing.T) {
	w, h := 80, 24
	l := Compute(w, h, participantIDs(9), 0, 0)
	for _, c := range l.Cells {
		if c.X < 0 || c.Y < 0 || c.X+c.Width > w || c.Y+c.Height > h {
			t.Fatalf("cell %+v out of terminal bounds %dx%d", c, w, h)
		}
	}
}

func TestGalleryStableAssignmentOrder(t *testing.T) {
	ids := participantIDs(4)
	l := Compute(80, 24, ids, 0, 0)
	if len(l.Cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(l.Cells))
	}
	for i := 0; i < len(l.Cells)-1; i++ {
		if l.Cells[i].ParticipantID >= l.Cells[i+1].ParticipantID {
			t.Fatalf("expected ascending participant id assignment, got %+v", l.Cells)
		}
	}
}

func TestFocusLayoutPinsTargetToPrimaryCell(t *testing.T) {
	ids := participantIDs(4)
	l := Compute(80, 24, ids, 2, 0)
	if l.Mode != ModeFocus {
		t.Fatalf("expected focus mode")
	}
	if l.Cells[0].ParticipantID != 2 {
		t.Fatalf("expected focused participant 2 pinned to primary cell, got %+v", l.Cells[0])
	}
	if l.Cells[0].Width <= l.Cells[1].Width && l.Cells[0].Height <= l.Cells[1].Height {
		t.Fatalf("expected primary cell larger than thumbnail cells")
	}
}

func TestFocusFallsBackToGalleryWhenTargetAbsent(t *testing.T) {
	l := Compute(80, 24, participantIDs(4), 99, 0)
	if l.Mode != ModeGallery {
		t.Fatalf("expected gallery mode when focus id is not a participant")
	}
}

func TestGalleryScoreMonotoneInUtilizationForFixedShape(t *testing.T) {
	// Holding cols/rows fixed, a higher visible count (closer to full
	// occupancy) should never score lower purely on the utilization term.
	cellW, cellH := 40, 12
	lowUtil := scoreGrid(80, 24, 2, 2, cellW, cellH, 2)
	highUtil := scoreGrid(80, 24, 2, 2, cellW, cellH, 4)
	if highUtil < lowUtil {
		t.Fatalf("expected score to be monotone in utilization: low=%f high=%f", lowUtil, highUtil)
	}
}

func TestEmptyParticipantsProducesNoCells(t *testing.T) {
	l := Compute(80, 24, nil, 0, 0)
	if len(l.Cells) != 0 {
		t.Fatalf("expected no cells for zero participants, got %d", len(l.Cells))
	}
}

func TestRandomPropertyGalleryInvariants(t *testing.T) {
	sizes := []struct{ w, h, n int }{
		{20, 10, 1}, {300, 100, 50}, {80, 24, 7}, {40, 12, 3}, {100, 40, 20},
	}
	for _, s := range sizes {
		l := Compute(s.w, s.h, participantIDs(s.n), 0, 0)
		if l.Mode != ModeGallery {
			continue
		}
		if l.Cols == 0 || l.Rows == 0 {
			continue
		}
		cellW := s.w / l.Cols
		cellH := s.h / l.Rows
		if cellW < MinCellWidth || cellH < MinCellHeight {
			t.Fatalf("%+v: cell below minimum: %dx%d", s, cellW, cellH)
		}
		capacity := (s.w / MinCellWidth) * (s.h / MinCellHeight)
		if capacity > maxCapacity {
			capacity = maxCapacity
		}
		visible := s.n
		if visible > capacity {
			visible = capacity
		}
		empty := l.Cols*l.Rows - visible
		if empty > 0 && empty > minInt(l.Cols, l.Rows) {
			t.Fatalf("%+v: empty cells %d exceed min(cols,rows)", s, empty)
		}
	}
}
