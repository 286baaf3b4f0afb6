package client

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"

	"vinnyverse-client/internal/bridge"
	"vinnyverse-client/internal/config"
	"vinnyverse-client/internal/view"
)

var (
	colorMenu     = color.RGBA{A: 255}
	colorSettings = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	colorGameplay = color.RGBA{R: 34, G: 34, B: 34, A: 255}
)

// Game implements the ebiten.Game interface.
type Game struct {
	cfg     config.WindowConfig
	net     *bridge.Network
	model   *view.Model
	window  *window
	logger  *zap.Logger
	actions view.ActionContext

	username, soulID, command *textInput
	focus                     *textInput
	started                   bool
}

// NewGame creates a Game on the main menu driving net.
func NewGame(net *bridge.Network, cfg config.WindowConfig, logger *zap.Logger) *Game {
	if logger == nil {
		logger = zap.NewNop()
	}
	cx := cfg.Width / 2
	g := &Game{
		cfg:      cfg,
		net:      net,
		model:    view.NewModel(view.DefaultNoticeLimit),
		window:   &window{width: cfg.Width, height: cfg.Height, mode: config.ModeWindowed, logger: logger},
		logger:   logger,
		username: &textInput{label: "username", rect: image.Rect(cx-110, cfg.Height/2, cx+110, cfg.Height/2+26)},
		soulID:   &textInput{label: "soul id", rect: image.Rect(cx-110, cfg.Height/2+60, cx+110, cfg.Height/2+86)},
		command: &textInput{
			label: "command  <Type> <JSON payload>",
			rect:  image.Rect(20, cfg.Height-40, cfg.Width-180, cfg.Height-14),
		},
	}
	g.actions = view.ActionContext{Net: net, Display: g.window, Model: g.model}
	g.focus = g.username
	return g
}

// Update drains network events, handles input, and dispatches actions.
func (g *Game) Update() error {
	if !g.started {
		g.started = true
		if g.cfg.Mode != config.ModeWindowed {
			g.window.SetDisplayMode(g.cfg.Mode)
		}
	}
	g.model.ApplyAll(g.net.DrainEvents())

	switch g.actions.Screen {
	case view.ScreenMenu:
		g.updateMenu()
	case view.ScreenSettings:
		g.updateButtons(g.buttons())
	case view.ScreenGameplay:
		g.updateGameplay()
	}

	if g.actions.Exit {
		g.logger.Info("exiting")
		return ebiten.Termination
	}
	return nil
}

func (g *Game) updateMenu() {
	for _, in := range []*textInput{g.username, g.soulID} {
		if in.clicked() {
			g.focus = in
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		if g.focus == g.username {
			g.focus = g.soulID
		} else {
			g.focus = g.username
		}
	}
	if g.focus == g.username || g.focus == g.soulID {
		g.focus.update()
	}
	g.actions.Username, g.actions.SoulID = g.username.text, g.soulID.text

	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.dispatch(view.ActionLogin)
	} else {
		g.updateButtons(g.buttons())
	}
	if g.actions.Screen == view.ScreenGameplay {
		g.focus = g.command
	}
}

func (g *Game) updateGameplay() {
	g.command.update()
	g.actions.Command = g.command.text

	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.dispatch(view.ActionSend)
	} else {
		g.updateButtons(g.buttons())
	}
	g.command.text = g.actions.Command
	if g.actions.Screen == view.ScreenMenu {
		g.focus = g.username
	}
}

func (g *Game) updateButtons(buttons []button) {
	for _, b := range buttons {
		if b.clicked() {
			g.dispatch(b.action)
			return
		}
	}
}

func (g *Game) dispatch(a view.Action) {
	if err := view.Dispatch(a, &g.actions); err != nil {
		g.logger.Warn("action failed", zap.String("action", string(a)), zap.Error(err))
	}
}

func (g *Game) buttons() []button {
	actions := view.ScreenActions(g.actions.Screen)
	if g.actions.Screen == view.ScreenGameplay {
		return layoutButtons(actions, g.cfg.Width-160, 20)
	}
	return layoutButtons(actions, 20, 60)
}

// Draw renders the current screen.
func (g *Game) Draw(screen *ebiten.Image) {
	switch g.actions.Screen {
	case view.ScreenMenu:
		screen.Fill(colorMenu)
		ebitenutil.DebugPrintAt(screen, "VinnyVerse", g.cfg.Width/2-30, 40)
		g.username.draw(screen, g.focus == g.username)
		g.soulID.draw(screen, g.focus == g.soulID)
	case view.ScreenSettings:
		screen.Fill(colorSettings)
		ebitenutil.DebugPrintAt(screen, "Settings  (display: "+g.window.mode+")", g.cfg.Width/2-60, 40)
	case view.ScreenGameplay:
		screen.Fill(colorGameplay)
		g.drawWorld(screen)
		g.command.draw(screen, true)
		ebitenutil.DebugPrintAt(screen, g.statusLine(), 20, 4)
	}
	for _, b := range g.buttons() {
		b.draw(screen)
	}
	g.drawNotices(screen)
}

// drawWorld paints the latest snapshot as a flat grid anchored at its
// top-left cell.
func (g *Game) drawWorld(screen *ebiten.Image) {
	minX, minY, _, _, ok := g.model.World.Bounds()
	if !ok {
		ebitenutil.DebugPrintAt(screen, "waiting for world...", 20, 40)
		return
	}
	tile := float32(g.cfg.TileSize)
	const originX, originY = 20, 24
	for _, c := range g.model.World.Cells() {
		x := originX + float32(c.X-minX)*tile
		y := originY + float32(c.Y-minY)*tile
		if x > float32(g.cfg.Width) || y > float32(g.cfg.Height) {
			continue
		}
		vector.DrawFilledRect(screen, x, y, tile, tile, view.CellColor(c.Content), false)
	}
}

func (g *Game) drawNotices(screen *ebiten.Image) {
	lines := g.model.Notices.Lines()
	y := g.cfg.Height - 60 - 16*len(lines)
	for _, line := range lines {
		ebitenutil.DebugPrintAt(screen, strings.ReplaceAll(line, "\n", "  "), 20, y)
		y += 16
	}
}

func (g *Game) statusLine() string {
	state := g.net.Status()
	return fmt.Sprintf("%s | %s | %d cells | frame %d",
		g.actions.Username, state, g.model.World.Len(), g.model.Frames)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}
