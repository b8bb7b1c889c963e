// Package broadcasttest provides an in-memory publisher for tests.
package broadcasttest

import (
	"encoding/json"
	"sync"

	"github.com/MrSnakeDoc/noticeboard/internal/broadcast"
)

// Recorder captures published events in order.
type Recorder struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (r *Recorder) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("null")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcast.Event{Topic: topic, Data: data})
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []broadcast.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast.Event(nil), r.events...)
}

// Topic returns the events published on topic.
func (r *Recorder) Topic(topic string) []broadcast.Event {
	var out []broadcast.Event
	for _, ev := range r.Events() {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}

// StateChanges decodes every state-changed payload.
func (r *Recorder) StateChanges() []broadcast.StateChanged {
	var out []broadcast.StateChanged
	for _, ev := range r.Topic(broadcast.TopicStateChanged) {
		var sc broadcast.StateChanged
		if err := json.Unmarshal(ev.Data, &sc); err == nil {
			out = append(out, sc)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
