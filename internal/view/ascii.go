package view

import (
	"strings"

	"vinnyverse-client/internal/protocol"
)

var (
	shades = []rune(" ░▒▓█")

	occupantGlyphs = map[string]rune{
		"Tissue":  'T',
		"Eyeball": 'O',
		"Mouth":   'M',
		"Butt":    'B',
		"Muscle":  'U',
		"Anchor":  'A',
		"Armor":   '#',
	}
)

// Glyph returns the character used for content in the text map.
func Glyph(c protocol.Content) rune {
	switch c := c.(type) {
	case protocol.Terrain:
		return shades[int(c.Intensity)*len(shades)/256]
	case protocol.Occupant:
		if g, ok := occupantGlyphs[c.Kind]; ok {
			return g
		}
		return '*'
	default:
		return '?'
	}
}

// MaxASCIISide caps the width and height of a rendered text map.
const MaxASCIISide = 256

// RenderASCII draws the snapshot as rows of glyphs covering its bounding
// box, top row first, clipped to MaxASCIISide from the top-left corner.
// Positions with no cell are blank. Later cells at the same position win.
// An empty snapshot renders as "".
func RenderASCII(s protocol.Snapshot) string {
	minX, minY, maxX, maxY, ok := s.Bounds()
	if !ok {
		return ""
	}
	w, h := span(minX, maxX), span(minY, maxY)
	grid := make([][]rune, h)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", w))
	}
	for _, c := range s.Cells() {
		x, y := uint64(c.X)-uint64(minX), uint64(c.Y)-uint64(minY)
		if x >= uint64(w) || y >= uint64(h) {
			continue
		}
		grid[y][x] = Glyph(c.Content)
	}

	var b strings.Builder
	for _, row := range grid {
		b.WriteString(strings.TrimRight(string(row), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// span returns the clipped number of positions in [lo, hi] without
// overflowing on extreme coordinates.
func span(lo, hi int) int {
	d := uint64(hi) - uint64(lo)
	if d >= MaxASCIISide {
		return MaxASCIISide
	}
	return int(d) + 1
}
