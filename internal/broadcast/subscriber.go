package broadcast

import (
	"sync"
	"sync/atomic"
)

// Subscriber receives events published after it subscribed.
type Subscriber struct {
	ID        string
	Transport string

	ch     chan Event
	done   chan struct{}
	topics map[string]struct{}

	fullStreak atomic.Int32
	closeOnce  sync.Once
}

func newSubscriber(id, transport string, buffer int, topics []string) *Subscriber {
	s := &Subscriber{
		ID:        id,
		Transport: transport,
		ch:        make(chan Event, buffer),
		done:      make(chan struct{}),
	}
	if len(topics) > 0 {
		s.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}
	return s
}

// Events yields delivered events. It is never closed; select on Done too.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// Done is closed when the subscriber is unsubscribed or evicted.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Wants reports whether topic passes the subscriber's filter. Heartbeats
// always pass.
func (s *Subscriber) Wants(topic string) bool {
	if s.topics == nil || topic == TopicHeartbeat {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Subscriber) markDelivered() {
	s.fullStreak.Store(0)
}

func (s *Subscriber) markFull() int32 {
	return s.fullStreak.Add(1)
}
