package broadcast

import (
	"encoding/json"
	"time"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
)

const (
	TopicStateChanged = "state-changed"
	TopicLiveChanged  = "live-changed"
	TopicHeartbeat    = "heartbeat"
)

// State change actions carried by state-changed events.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionRestore = "restore"
	// ActionWindow means the visible sequence changed because time passed.
	ActionWindow = "window"
)

// Publisher is the write side of the broadcast channel.
type Publisher interface {
	Publish(topic string, payload any)
}

// Event is one message on the channel. Origin identifies the instance that
// published it.
type Event struct {
	ID     string          `json:"id"`
	Topic  string          `json:"topic"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin,omitempty"`
}

// StateChanged tells displays to re-fetch the visible sequence.
type StateChanged struct {
	Action       string                   `json:"action"`
	Announcement *domain.AnnouncementView `json:"announcement,omitempty"`
	ID           string                   `json:"id,omitempty"`
	Timestamp    time.Time                `json:"timestamp"`
}

// LiveChanged reports the current live session.
type LiveChanged struct {
	Status domain.LiveStatus `json:"status"`
	Link   *string           `json:"link"`
}

// AnnouncementChanged builds the payload for a mutation of a.
func AnnouncementChanged(action string, a domain.Announcement, at time.Time) StateChanged {
	v := a.View()
	return StateChanged{Action: action, Announcement: &v, Timestamp: at}
}

// AnnouncementRemoved builds the payload for a deletion of id.
func AnnouncementRemoved(id string, at time.Time) StateChanged {
	return StateChanged{Action: ActionDelete, ID: id, Timestamp: at}
}

func encode(payload any) json.RawMessage {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}
