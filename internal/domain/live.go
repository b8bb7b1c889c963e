package domain

import "time"

// LiveStatus is the on/off state of the live session.
type LiveStatus string

const (
	LiveOn  LiveStatus = "ON"
	LiveOff LiveStatus = "OFF"
)

// LiveSession is the board-wide live broadcast link.
type LiveSession struct {
	Status    LiveStatus `json:"status"`
	Link      *string    `json:"link"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	StoppedAt *time.Time `json:"stoppedAt,omitempty"`
}

// LiveOffSession is the state before any session was started.
func LiveOffSession() LiveSession {
	return LiveSession{Status: LiveOff}
}
