package board

import "time"

// Entry is one appended move. Entries are never modified once appended.
type Entry struct {
	Player      string    `json:"player"`
	Identity    string    `json:"identity,omitempty"`
	From        Pos       `json:"from"`
	To          *Pos      `json:"to,omitempty"`
	Notation    string    `json:"notation"`
	Timestamp   time.Time `json:"timestamp"`
	PlayerIndex int       `json:"playerIndex"`
}

// MoveLog is an append-only ordered move history.
type MoveLog struct {
	entries []Entry
}

func (l *MoveLog) Append(e Entry) {
	if e.To != nil {
		to := *e.To
		e.To = &to
	}
	l.entries = append(l.entries, e)
}

func (l *MoveLog) Len() int { return len(l.entries) }

// Last returns the most recent entry.
func (l *MoveLog) Last() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Entries returns a copy in append order.
func (l *MoveLog) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Notations returns the notation column in append order.
func (l *MoveLog) Notations() []string {
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Notation)
	}
	return out
}

// Reset drops every entry; used when a rematch starts a new game.
func (l *MoveLog) Reset() { l.entries = nil }

// Restore replaces the history with a persisted copy.
func (l *MoveLog) Restore(entries []Entry) {
	l.entries = make([]Entry, len(entries))
	copy(l.entries, entries)
}
