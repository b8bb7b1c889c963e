package domain

import (
	"strings"
	"time"
)

// Action is the mutation recorded by a history entry.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionRestored Action = "restored"
)

// ParseAction validates a caller-supplied action filter.
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionRestored:
		return a, true
	default:
		return "", false
	}
}

// HistoryEntry is an immutable snapshot of an announcement taken when it
// was mutated. Entries are the only durable record of deleted announcements.
type HistoryEntry struct {
	Snapshot Announcement `json:"snapshot"`
	Action   Action       `json:"action"`
	ActionAt time.Time    `json:"actionAt"`
	User     *string      `json:"user"`
}

// NewHistoryEntry snapshots a for action, attributing it to user when non-empty.
func NewHistoryEntry(a Announcement, action Action, user string, at time.Time) HistoryEntry {
	e := HistoryEntry{Snapshot: a, Action: action, ActionAt: at}
	if user = strings.TrimSpace(user); user != "" {
		e.User = &user
	}
	return e
}

// HistoryFilter narrows a history listing. Zero values match everything.
type HistoryFilter struct {
	Action Action
	Query  string
}

// Matches reports whether e passes the filter. Query matches title or
// content case-insensitively.
func (f HistoryFilter) Matches(e HistoryEntry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Snapshot.Title), q) ||
		strings.Contains(strings.ToLower(e.Snapshot.Content), q)
}
