// Package view holds renderer-independent presentation state: the latest
// world, the session status, recent notices, and the action table the
// screens dispatch through. Both the ebiten client and the headless agent
// build on it.
package view

import (
	"vinnyverse-client/internal/protocol"
	"vinnyverse-client/internal/session"
)

// DefaultNoticeLimit is the number of notices a Model keeps.
const DefaultNoticeLimit = 8

// Model is the render-side view of one session. It is owned by the render
// loop and is not safe for concurrent use.
type Model struct {
	World   protocol.Snapshot
	Status  session.State
	Notices *NoticeLog
	// Frames counts snapshots applied since the model was created.
	Frames int
}

// NewModel returns an empty model keeping up to noticeLimit notices.
func NewModel(noticeLimit int) *Model {
	if noticeLimit <= 0 {
		noticeLimit = DefaultNoticeLimit
	}
	return &Model{Notices: NewNoticeLog(noticeLimit)}
}

// Apply folds one session event into the model. Snapshots replace the world
// wholesale. It reports whether the world changed.
func (m *Model) Apply(ev session.Event) bool {
	switch ev.Kind {
	case session.EventSnapshot:
		m.World = ev.Snapshot
		m.Frames++
		return true
	case session.EventStatus:
		m.Status = ev.State
		if ev.State.Status == session.Failed {
			m.Notices.Add("session failed: " + ev.State.Reason)
		}
	case session.EventNotice, session.EventCommandError, session.EventFrameError:
		m.Notices.Add(ev.Message())
	}
	return false
}

// ApplyAll applies evs in order and reports whether any changed the world.
func (m *Model) ApplyAll(evs []session.Event) bool {
	changed := false
	for _, ev := range evs {
		if m.Apply(ev) {
			changed = true
		}
	}
	return changed
}

// Reset clears the world and status for a new session, keeping notices.
func (m *Model) Reset() {
	m.World = protocol.Snapshot{}
	m.Status = session.State{}
}
