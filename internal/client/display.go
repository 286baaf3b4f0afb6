package client

import (
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"vinnyverse-client/internal/config"
)

// window applies display modes to the ebiten window.
type window struct {
	width, height int
	mode          string
	logger        *zap.Logger
}

// SetDisplayMode switches between windowed, borderless and fullscreen.
// Unknown modes are ignored.
func (w *window) SetDisplayMode(mode string) {
	switch mode {
	case config.ModeWindowed:
		ebiten.SetFullscreen(false)
		ebiten.SetWindowDecorated(true)
		ebiten.SetWindowSize(w.width, w.height)
	case config.ModeBorderless:
		ebiten.SetFullscreen(false)
		ebiten.SetWindowDecorated(false)
		mw, mh := ebiten.Monitor().Size()
		ebiten.SetWindowPosition(0, 0)
		ebiten.SetWindowSize(mw, mh)
	case config.ModeFullscreen:
		ebiten.SetFullscreen(true)
	default:
		w.logger.Warn("unknown display mode", zap.String("mode", mode))
		return
	}
	w.mode = mode
	w.logger.Debug("display mode changed", zap.String("mode", mode))
}

// ApplyWindow sets up the ebiten window from cfg before RunGame. The display
// mode is applied by the Game on its first tick, once a monitor is known.
func ApplyWindow(cfg config.WindowConfig) {
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
}
