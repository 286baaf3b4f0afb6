package view

import (
	"errors"
	"fmt"
	"strings"
)

// Screen is the renderer's current page.
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenSettings
	ScreenGameplay
)

func (s Screen) String() string {
	switch s {
	case ScreenMenu:
		return "menu"
	case ScreenSettings:
		return "settings"
	case ScreenGameplay:
		return "gameplay"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}

// Action names a button or key binding.
type Action string

const (
	ActionLogin      Action = "login"
	ActionSettings   Action = "settings"
	ActionBack       Action = "back"
	ActionQuit       Action = "quit"
	ActionSend       Action = "send"
	ActionWindowed   Action = "windowed"
	ActionBorderless Action = "borderless"
	ActionFullscreen Action = "fullscreen"
)

// ErrUnknownAction is returned by Dispatch for an action with no handler.
var ErrUnknownAction = errors.New("unknown action")

// Controller is the session side of the UI. bridge.Network implements it.
type Controller interface {
	Login(username, soulID string) error
	Submit(line string) error
	Quit()
}

// Display switches the window between display modes.
type Display interface {
	SetDisplayMode(mode string)
}

// ActionContext carries everything an action handler may read or change.
type ActionContext struct {
	Net     Controller
	Display Display
	Model   *Model

	Screen   Screen
	Username string
	SoulID   string
	// Command is the gameplay command box contents.
	Command string
	// Exit is set when the application should terminate.
	Exit bool
}

type actionFunc func(actx *ActionContext) error

// actionHandlers is the single source of truth for UI dispatch.
// To add a button: add an Action constant AND an entry here.
var actionHandlers = map[Action]actionFunc{
	ActionLogin:      actionLogin,
	ActionSettings:   actionSettings,
	ActionBack:       actionBack,
	ActionQuit:       actionQuit,
	ActionSend:       actionSend,
	ActionWindowed:   displayMode(ActionWindowed),
	ActionBorderless: displayMode(ActionBorderless),
	ActionFullscreen: displayMode(ActionFullscreen),
}

// screenActions lists the buttons of each screen in layout order.
var screenActions = map[Screen][]Action{
	ScreenMenu:     {ActionLogin, ActionSettings, ActionQuit},
	ScreenSettings: {ActionWindowed, ActionBorderless, ActionFullscreen, ActionBack},
	ScreenGameplay: {ActionSend, ActionBack},
}

// Actions returns every action that has a handler.
func Actions() []Action {
	out := make([]Action, 0, len(actionHandlers))
	for a := range actionHandlers {
		out = append(out, a)
	}
	return out
}

// ScreenActions returns the buttons shown on s.
func ScreenActions(s Screen) []Action {
	return append([]Action(nil), screenActions[s]...)
}

// Dispatch runs the handler for a. Handler errors are also recorded as
// notices when the context has a model.
func Dispatch(a Action, actx *ActionContext) error {
	h, ok := actionHandlers[a]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
	err := h(actx)
	if err != nil && actx.Model != nil {
		actx.Model.Notices.Add(err.Error())
	}
	return err
}

func actionLogin(actx *ActionContext) error {
	username, soulID := strings.TrimSpace(actx.Username), strings.TrimSpace(actx.SoulID)
	if username == "" || soulID == "" {
		return errors.New("username and soul id are required")
	}
	if actx.Net == nil {
		return errors.New("no network")
	}
	if err := actx.Net.Login(username, soulID); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if actx.Model != nil {
		actx.Model.Reset()
	}
	actx.Screen = ScreenGameplay
	return nil
}

func actionSettings(actx *ActionContext) error {
	actx.Screen = ScreenSettings
	return nil
}

// actionBack leaves gameplay (ending the session) or settings for the menu.
func actionBack(actx *ActionContext) error {
	if actx.Screen == ScreenGameplay && actx.Net != nil {
		actx.Net.Quit()
	}
	actx.Screen = ScreenMenu
	return nil
}

func actionQuit(actx *ActionContext) error {
	if actx.Net != nil {
		actx.Net.Quit()
	}
	actx.Exit = true
	return nil
}

func actionSend(actx *ActionContext) error {
	line := strings.TrimSpace(actx.Command)
	if line == "" {
		return nil
	}
	if actx.Net == nil {
		return errors.New("no network")
	}
	if err := actx.Net.Submit(line); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	actx.Command = ""
	return nil
}

func displayMode(mode Action) actionFunc {
	return func(actx *ActionContext) error {
		if actx.Display != nil {
			actx.Display.SetDisplayMode(string(mode))
		}
		return nil
	}
}
