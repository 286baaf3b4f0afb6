package client

import (
	"image"
	"image/color"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"vinnyverse-client/internal/view"
)

const (
	maxInputLen = 512
	// debugGlyphWidth is the advance of ebitenutil's debug font.
	debugGlyphWidth = 6
)

var (
	colorButton      = color.RGBA{R: 0, G: 120, B: 215, A: 255}
	colorButtonHover = color.RGBA{R: 30, G: 150, B: 240, A: 255}
	colorInput       = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	colorFocus       = color.RGBA{R: 255, G: 255, B: 255, A: 200}
	colorBorder      = color.RGBA{R: 140, G: 140, B: 140, A: 255}
)

// button is a clickable rectangle bound to an action.
type button struct {
	action view.Action
	rect   image.Rectangle
}

func (b button) hovered() bool {
	return image.Pt(ebiten.CursorPosition()).In(b.rect)
}

func (b button) clicked() bool {
	return inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && b.hovered()
}

func (b button) draw(screen *ebiten.Image) {
	c := colorButton
	if b.hovered() {
		c = colorButtonHover
	}
	drawRect(screen, b.rect, c)
	ebitenutil.DebugPrintAt(screen, string(b.action), b.rect.Min.X+8, b.rect.Min.Y+6)
}

// textInput is a single-line text box.
type textInput struct {
	label string
	text  string
	rect  image.Rectangle
}

// update appends typed characters and handles backspace.
func (t *textInput) update() {
	for _, r := range ebiten.AppendInputChars(nil) {
		if utf8.RuneCountInString(t.text) >= maxInputLen {
			break
		}
		t.text += string(r)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) || repeating(ebiten.KeyBackspace) {
		if _, size := utf8.DecodeLastRuneInString(t.text); size > 0 {
			t.text = t.text[:len(t.text)-size]
		}
	}
}

func (t *textInput) clicked() bool {
	return inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) &&
		image.Pt(ebiten.CursorPosition()).In(t.rect)
}

func (t *textInput) draw(screen *ebiten.Image, focused bool) {
	drawRect(screen, t.rect, colorInput)
	border := colorBorder
	if focused {
		border = colorFocus
	}
	vector.StrokeRect(screen, float32(t.rect.Min.X), float32(t.rect.Min.Y),
		float32(t.rect.Dx()), float32(t.rect.Dy()), 1, border, false)
	ebitenutil.DebugPrintAt(screen, t.label, t.rect.Min.X, t.rect.Min.Y-16)

	// Show the tail when the text is wider than the box.
	visible := []rune(t.text)
	if limit := (t.rect.Dx() - 12) / debugGlyphWidth; limit > 0 && len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	shown := string(visible)
	if focused {
		shown += "_"
	}
	ebitenutil.DebugPrintAt(screen, shown, t.rect.Min.X+6, t.rect.Min.Y+6)
}

// repeating reports key auto-repeat after a short hold, in ticks.
func repeating(key ebiten.Key) bool {
	const delay, interval = 30, 4
	d := inpututil.KeyPressDuration(key)
	return d >= delay && (d-delay)%interval == 0
}

func drawRect(screen *ebiten.Image, r image.Rectangle, c color.Color) {
	vector.DrawFilledRect(screen, float32(r.Min.X), float32(r.Min.Y),
		float32(r.Dx()), float32(r.Dy()), c, false)
}

// layoutButtons stacks the buttons for actions vertically from (x, y).
func layoutButtons(actions []view.Action, x, y int) []button {
	const w, h, gap = 140, 28, 10
	out := make([]button, len(actions))
	for i, a := range actions {
		top := y + i*(h+gap)
		out[i] = button{action: a, rect: image.Rect(x, top, x+w, top+h)}
	}
	return out
}
