package fakeserver

import (
	"fmt"
	"sync"

	"vinnyverse-client/internal/protocol"
)

// occupantKinds are the block types a Build command may place.
var occupantKinds = map[string]bool{
	"Tissue": true, "Eyeball": true, "Mouth": true, "Butt": true,
	"Muscle": true, "Anchor": true, "Armor": true,
}

var directions = map[string]bool{"N": true, "S": true, "E": true, "W": true, "C": true}

// World is a square terrain grid with an occupant layer on top.
type World struct {
	mu        sync.RWMutex
	size      int
	terrain   [][]uint8 // [y][x]
	occupants map[[2]int]protocol.Occupant
}

// NewWorld creates a size×size world with a diagonal terrain gradient.
func NewWorld(size int) *World {
	if size < 1 {
		size = 1
	}
	terrain := make([][]uint8, size)
	for y := range terrain {
		terrain[y] = make([]uint8, size)
		for x := range terrain[y] {
			terrain[y][x] = uint8((x + y) * 255 / max(2*(size-1), 1))
		}
	}
	return &World{
		size:      size,
		terrain:   terrain,
		occupants: make(map[[2]int]protocol.Occupant),
	}
}

// Sun brightens every terrain cell by one, saturating at 255.
func (w *World) Sun() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for y := range w.terrain {
		for x := range w.terrain[y] {
			if w.terrain[y][x] < 255 {
				w.terrain[y][x]++
			}
		}
	}
}

// Place puts an occupant at (x, y).
func (w *World) Place(x, y int, occ protocol.Occupant) error {
	if !occupantKinds[occ.Kind] {
		return fmt.Errorf("unknown block type: %s", occ.Kind)
	}
	if occ.Orientation != "" && !directions[occ.Orientation] {
		return fmt.Errorf("unknown direction: %s", occ.Orientation)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if x < 0 || y < 0 || x >= w.size || y >= w.size {
		return fmt.Errorf("build request out of bounds: (%d, %d)", x, y)
	}
	key := [2]int{x, y}
	if _, taken := w.occupants[key]; taken {
		return fmt.Errorf("cell at (%d, %d) is not empty, cannot build", x, y)
	}
	w.occupants[key] = occ
	return nil
}

// Cells returns the whole world in row-major order, occupants shadowing
// terrain.
func (w *World) Cells() []protocol.Cell {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cells := make([]protocol.Cell, 0, w.size*w.size)
	for y := range w.terrain {
		for x, intensity := range w.terrain[y] {
			var content protocol.Content = protocol.Terrain{Intensity: intensity}
			if occ, ok := w.occupants[[2]int{x, y}]; ok {
				content = occ
			}
			cells = append(cells, protocol.Cell{X: x, Y: y, Content: content})
		}
	}
	return cells
}
