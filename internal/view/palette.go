package view

import (
	"image/color"

	"vinnyverse-client/internal/protocol"
)

var (
	ColorBackground = color.RGBA{A: 255}
	ColorEyeball    = color.RGBA{B: 255, A: 255}
	ColorMuscle     = color.RGBA{R: 255, A: 255}
	ColorOccupant   = color.RGBA{G: 255, A: 255}
	ColorUnknown    = color.RGBA{R: 255, B: 255, A: 255}
)

// CellColor returns the fill color for a cell's content: terrain as
// grayscale intensity, occupants by kind.
func CellColor(c protocol.Content) color.RGBA {
	switch c := c.(type) {
	case protocol.Terrain:
		return color.RGBA{R: c.Intensity, G: c.Intensity, B: c.Intensity, A: 255}
	case protocol.Occupant:
		switch c.Kind {
		case "Eyeball":
			return ColorEyeball
		case "Muscle":
			return ColorMuscle
		default:
			return ColorOccupant
		}
	case protocol.Unknown:
		return ColorUnknown
	default:
		return ColorBackground
	}
}
