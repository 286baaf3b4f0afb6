package view

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"vinnyverse-client/internal/protocol"
	"vinnyverse-client/internal/session"
)

func terrain(x, y int, v uint8) protocol.Cell {
	return protocol.Cell{X: x, Y: y, Content: protocol.Terrain{Intensity: v}}
}

func TestModel_SnapshotsReplaceWorld(t *testing.T) {
	m := NewModel(0)
	first := protocol.NewSnapshot([]protocol.Cell{terrain(0, 0, 1), terrain(1, 0, 2)})
	second := protocol.NewSnapshot([]protocol.Cell{terrain(5, 5, 9)})

	assert.True(t, m.Apply(session.Event{Kind: session.EventSnapshot, Snapshot: first}))
	assert.True(t, m.Apply(session.Event{Kind: session.EventSnapshot, Snapshot: second}))
	assert.Equal(t, 1, m.World.Len())
	assert.Equal(t, terrain(5, 5, 9), m.World.At(0))
	assert.Equal(t, 2, m.Frames)
}

func TestModel_StatusAndNotices(t *testing.T) {
	m := NewModel(4)
	changed := m.ApplyAll([]session.Event{
		{Kind: session.EventStatus, State: session.State{Status: session.Active}},
		{Kind: session.EventNotice, Text: "Soul generated"},
		{Kind: session.EventCommandError, Text: "Build {", Err: protocol.ErrMalformedCommand},
		{Kind: session.EventStatus, State: session.State{Status: session.Failed, Reason: session.ReasonTransport}},
	})
	assert.False(t, changed)
	assert.Equal(t, session.Failed, m.Status.Status)

	lines := m.Notices.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "Soul generated", lines[0])
	assert.Contains(t, lines[1], protocol.CommandFormat)
	assert.Equal(t, "session failed: transport error", lines[2])
}

func TestModel_ResetKeepsNotices(t *testing.T) {
	m := NewModel(2)
	m.Apply(session.Event{Kind: session.EventSnapshot, Snapshot: protocol.NewSnapshot([]protocol.Cell{terrain(0, 0, 1)})})
	m.Apply(session.Event{Kind: session.EventNotice, Text: "hello"})
	m.Reset()
	assert.Equal(t, 0, m.World.Len())
	assert.Equal(t, 1, m.Notices.Len())
}

func TestNoticeLog_KeepsMostRecent(t *testing.T) {
	l := NewNoticeLog(3)
	for i := range 5 {
		l.Add(fmt.Sprintf("n%d", i))
	}
	l.Add("   ")
	assert.Equal(t, []string{"n2", "n3", "n4"}, l.Lines())
}

func TestPropertyNoticeLog_BoundedAndOrdered(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 10).Draw(rt, "limit")
		n := rapid.IntRange(0, 40).Draw(rt, "n")
		l := NewNoticeLog(limit)
		for i := range n {
			l.Add(fmt.Sprintf("line %d", i))
		}
		lines := l.Lines()
		assert.Equal(rt, min(n, limit), len(lines))
		for i, line := range lines {
			assert.Equal(rt, fmt.Sprintf("line %d", n-len(lines)+i), line)
		}
	})
}

func TestCellColor(t *testing.T) {
	assert.Equal(t, uint8(77), CellColor(protocol.Terrain{Intensity: 77}).G)
	assert.Equal(t, ColorEyeball, CellColor(protocol.Occupant{Kind: "Eyeball"}))
	assert.Equal(t, ColorMuscle, CellColor(protocol.Occupant{Kind: "Muscle"}))
	assert.Equal(t, ColorOccupant, CellColor(protocol.Occupant{Kind: "Anchor"}))
	assert.Equal(t, ColorUnknown, CellColor(protocol.Unknown{Key: "Plasma"}))
}

func TestRenderASCII(t *testing.T) {
	snap := protocol.NewSnapshot([]protocol.Cell{
		terrain(0, 0, 0),
		terrain(1, 0, 255),
		terrain(2, 0, 128),
		{X: 0, Y: 1, Content: protocol.Occupant{Kind: "Eyeball"}},
		{X: 2, Y: 1, Content: protocol.Occupant{Kind: "Armor"}},
		{X: 1, Y: 2, Content: protocol.Unknown{Key: "Plasma"}},
	})
	assert.Equal(t, " █▒\nO #\n ?\n", RenderASCII(snap))
}

func TestRenderASCII_EmptyAndOffset(t *testing.T) {
	assert.Equal(t, "", RenderASCII(protocol.Snapshot{}))

	snap := protocol.NewSnapshot([]protocol.Cell{
		{X: -3, Y: 10, Content: protocol.Occupant{Kind: "Tissue"}},
		{X: -2, Y: 10, Content: protocol.Occupant{Kind: "Mouth"}},
	})
	assert.Equal(t, "TM\n", RenderASCII(snap))
}

func TestRenderASCII_ClipsHugeWorlds(t *testing.T) {
	snap := protocol.NewSnapshot([]protocol.Cell{
		{X: -1 << 40, Y: 0, Content: protocol.Occupant{Kind: "Butt"}},
		{X: 1 << 40, Y: 0, Content: protocol.Occupant{Kind: "Butt"}},
	})
	out := RenderASCII(snap)
	assert.Equal(t, "B\n", out)
}

func TestPropertyRenderASCII_RowPerLine(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := rapid.IntRange(1, 12).Draw(rt, "w")
		h := rapid.IntRange(1, 12).Draw(rt, "h")
		var cells []protocol.Cell
		for y := range h {
			for x := range w {
				cells = append(cells, protocol.Cell{X: x, Y: y, Content: protocol.Occupant{Kind: "Tissue"}})
			}
		}
		out := RenderASCII(protocol.NewSnapshot(cells))
		rows := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		require.Len(rt, rows, h)
		for _, row := range rows {
			assert.Equal(rt, strings.Repeat("T", w), row)
		}
	})
}

type fakeController struct {
	logins    [][2]string
	submitted []string
	quits     int
	err       error
}

func (f *fakeController) Login(username, soulID string) error {
	f.logins = append(f.logins, [2]string{username, soulID})
	return f.err
}

func (f *fakeController) Submit(line string) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = append(f.submitted, line)
	return nil
}

func (f *fakeController) Quit() { f.quits++ }

type fakeDisplay struct{ modes []string }

func (f *fakeDisplay) SetDisplayMode(mode string) { f.modes = append(f.modes, mode) }

func TestAllScreenActionsAreWired(t *testing.T) {
	for _, s := range []Screen{ScreenMenu, ScreenSettings, ScreenGameplay} {
		for _, a := range ScreenActions(s) {
			assert.Contains(t, Actions(), a, "%s button %q has no handler", s, a)
		}
	}
}

func TestDispatch_UnknownAction(t *testing.T) {
	err := Dispatch("dance", &ActionContext{})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestDispatch_LoginFlow(t *testing.T) {
	net := &fakeController{}
	actx := &ActionContext{Net: net, Model: NewModel(4), Username: " alice ", SoulID: "s1"}

	require.NoError(t, Dispatch(ActionLogin, actx))
	assert.Equal(t, ScreenGameplay, actx.Screen)
	assert.Equal(t, [][2]string{{"alice", "s1"}}, net.logins)

	actx.Command = `Activate {"X":1}`
	require.NoError(t, Dispatch(ActionSend, actx))
	assert.Equal(t, []string{`Activate {"X":1}`}, net.submitted)
	assert.Empty(t, actx.Command)

	require.NoError(t, Dispatch(ActionBack, actx))
	assert.Equal(t, ScreenMenu, actx.Screen)
	assert.Equal(t, 1, net.quits)
}

func TestDispatch_LoginRequiresCredentials(t *testing.T) {
	net := &fakeController{}
	actx := &ActionContext{Net: net, Model: NewModel(4), Username: "alice"}

	require.Error(t, Dispatch(ActionLogin, actx))
	assert.Empty(t, net.logins)
	assert.Equal(t, ScreenMenu, actx.Screen)
	assert.Equal(t, 1, actx.Model.Notices.Len())
}

func TestDispatch_SendErrorKeepsCommand(t *testing.T) {
	net := &fakeController{err: errors.New("command queue full")}
	actx := &ActionContext{Net: net, Screen: ScreenGameplay, Command: "ReadBrain"}

	err := Dispatch(ActionSend, actx)
	require.Error(t, err)
	assert.Equal(t, "ReadBrain", actx.Command)
}

func TestDispatch_SettingsAndDisplayModes(t *testing.T) {
	display := &fakeDisplay{}
	actx := &ActionContext{Display: display}

	require.NoError(t, Dispatch(ActionSettings, actx))
	assert.Equal(t, ScreenSettings, actx.Screen)
	for _, a := range []Action{ActionBorderless, ActionFullscreen, ActionWindowed} {
		require.NoError(t, Dispatch(a, actx))
	}
	assert.Equal(t, []string{"borderless", "fullscreen", "windowed"}, display.modes)

	require.NoError(t, Dispatch(ActionBack, actx))
	assert.Equal(t, ScreenMenu, actx.Screen)
}

func TestDispatch_QuitExits(t *testing.T) {
	net := &fakeController{}
	actx := &ActionContext{Net: net}
	require.NoError(t, Dispatch(ActionQuit, actx))
	assert.True(t, actx.Exit)
	assert.Equal(t, 1, net.quits)
}
