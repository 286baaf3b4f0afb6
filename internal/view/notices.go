package view

import "strings"

// NoticeLog keeps the most recent lines, oldest first.
type NoticeLog struct {
	limit int
	lines []string
}

// NewNoticeLog returns a log holding up to limit lines.
func NewNoticeLog(limit int) *NoticeLog {
	if limit < 1 {
		limit = 1
	}
	return &NoticeLog{limit: limit}
}

// Add appends line, evicting the oldest once full. Blank lines are ignored.
func (l *NoticeLog) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(l.lines) == l.limit {
		copy(l.lines, l.lines[1:])
		l.lines = l.lines[:l.limit-1]
	}
	l.lines = append(l.lines, line)
}

// Lines returns a copy of the kept lines, oldest first.
func (l *NoticeLog) Lines() []string {
	return append([]string(nil), l.lines...)
}

// Len returns the number of kept lines.
func (l *NoticeLog) Len() int { return len(l.lines) }
