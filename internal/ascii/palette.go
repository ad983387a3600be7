package ascii

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultPalette is the fallback 10-glyph ramp used when a client supplies
// an invalid palette string.
const DefaultPalette = " .:-=+*#%@"

const (
	lumaBuckets     = 64
	lumaDirectTable = 256
	lumaBucketShift = 2 // Y(0..255) >> 2 -> 64 buckets
)

// glyphTable is the immutable, per-palette lookup data amortized across
// renders: a direct 256-entry luminance->glyph table and the 64-bucket
// ramp it is built from.
type glyphTable struct {
	direct [lumaDirectTable]rune
	ramp   [lumaBuckets]rune
}

func buildGlyphTable(palette string) glyphTable {
	glyphs := []rune(palette)
	var t glyphTable
	for b := 0; b < lumaBuckets; b++ {
		idx := b * (len(glyphs) - 1) / (lumaBuckets - 1)
		t.ramp[b] = glyphs[idx]
	}
	for y := 0; y < lumaDirectTable; y++ {
		t.direct[y] = t.ramp[y>>lumaBucketShift]
	}
	return t
}

// cache is the glyph/palette cache: readers-writer lock with
// double-checked creation, keyed by the active palette's content hash so
// distinct client-supplied ramps don't collide.
type cache struct {
	mu     sync.RWMutex
	tables map[uint64]glyphTable
}

var globalCache = &cache{tables: make(map[uint64]glyphTable)}

func paletteKey(palette string) uint64 {
	return xxhash.Sum64String(palette)
}

// lookupOrBuild returns the glyph table for palette, validating it first;
// an empty or single-glyph palette is treated as invalid and falls back to
// DefaultPalette.
func (c *cache) lookupOrBuild(palette string) glyphTable {
	if !validPalette(palette) {
		palette = DefaultPalette
	}
	key := paletteKey(palette)

	c.mu.RLock()
	if t, ok := c.tables[key]; ok {
		c.mu.RUnlock()
		return t
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[key]; ok {
		return t
	}
	t := buildGlyphTable(palette)
	c.tables[key] = t
	return t
}

func validPalette(palette string) bool {
	return len([]rune(palette)) >= 2
}

// Luminance computes fixed-point Rec.601 luminance for one RGB pixel.
func Luminance(r, g, b uint8) uint8 {
	return uint8((77*uint32(r) + 150*uint32(g) + 29*uint32(b) + 128) >> 8)
}

// Glyph returns the glyph for luminance y under palette, using the shared
// glyph cache.
func Glyph(palette string, y uint8) rune {
	t := globalCache.lookupOrBuild(palette)
	return t.direct[y]
}
