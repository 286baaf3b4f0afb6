package fakeserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinnyverse-client/internal/protocol"
)

func TestWorld_CellsCoverGridInRowMajorOrder(t *testing.T) {
	w := NewWorld(3)
	cells := w.Cells()
	require.Len(t, cells, 9)
	assert.Equal(t, 0, cells[0].X)
	assert.Equal(t, 0, cells[0].Y)
	assert.Equal(t, 2, cells[5].X)
	assert.Equal(t, 1, cells[5].Y)
	assert.Equal(t, protocol.Terrain{Intensity: 0}, cells[0].Content)
	assert.Equal(t, protocol.Terrain{Intensity: 255}, cells[8].Content)
}

func TestWorld_SunSaturates(t *testing.T) {
	w := NewWorld(2)
	for range 300 {
		w.Sun()
	}
	for _, c := range w.Cells() {
		assert.Equal(t, protocol.Terrain{Intensity: 255}, c.Content)
	}
}

func TestWorld_Place(t *testing.T) {
	w := NewWorld(4)
	occ := protocol.Occupant{Kind: "Tissue", ID: "s1", Energy: 50, Orientation: "N"}
	require.NoError(t, w.Place(1, 2, occ))

	cells := w.Cells()
	assert.Equal(t, occ, cells[2*4+1].Content)

	assert.ErrorContains(t, w.Place(1, 2, occ), "not empty")
	assert.ErrorContains(t, w.Place(4, 0, occ), "out of bounds")
	assert.ErrorContains(t, w.Place(0, -1, occ), "out of bounds")
	assert.ErrorContains(t, w.Place(0, 0, protocol.Occupant{Kind: "Wing"}), "unknown block type")
	assert.ErrorContains(t, w.Place(0, 0, protocol.Occupant{Kind: "Tissue", Orientation: "NE"}), "unknown direction")
}
