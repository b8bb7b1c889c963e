// Package broadcast fans board changes out to connected displays.
//
// Delivery is best effort: a publish never blocks on a subscriber, and a
// subscriber whose buffer stays full is disconnected. Subscribers only see
// events published after they subscribed.
package broadcast

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/metrics"
)

const (
	DefaultBuffer         = 64
	DefaultHeartbeat      = 30 * time.Second
	backpressureFullLimit = 5
)

type Options struct {
	// Buffer is the per-subscriber queue length.
	Buffer int
	// Heartbeat is the keep-alive interval. Zero disables heartbeats.
	Heartbeat time.Duration
	// Origin identifies this instance on a shared relay.
	Origin string
}

// Hub is the in-process broadcast channel.
type Hub struct {
	subscribers sync.Map // id -> *Subscriber

	// mu orders dispatch so every subscriber sees events in publish order.
	mu  sync.Mutex
	seq uint64

	forward atomic.Pointer[func(Event)]

	opts      Options
	logger    logger.Logger
	stopCh    chan struct{}
	closeOnce sync.Once
}

func NewHub(log logger.Logger, opts Options) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Origin == "" {
		opts.Origin = uuid.NewString()
	}
	return &Hub{
		opts:   opts,
		logger: log,
		stopCh: make(chan struct{}),
	}
}

// Origin returns this instance's id.
func (h *Hub) Origin() string { return h.opts.Origin }

// Start launches the heartbeat loop when one is configured.
func (h *Hub) Start() {
	if h.opts.Heartbeat > 0 {
		go h.heartbeat(h.opts.Heartbeat)
	}
}

// SetForwarder installs fn to receive every locally published event, e.g.
// to mirror it to peer instances. fn must not block.
func (h *Hub) SetForwarder(fn func(Event)) {
	if fn == nil {
		h.forward.Store(nil)
		return
	}
	h.forward.Store(&fn)
}

// Publish delivers payload on topic to all current subscribers. With no
// subscribers it does nothing.
func (h *Hub) Publish(topic string, payload any) {
	if h == nil {
		return
	}
	ev := Event{Topic: topic, Data: encode(payload), Origin: h.opts.Origin}
	h.deliver(ev)

	if topic == TopicHeartbeat {
		return
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	if fn := h.forward.Load(); fn != nil {
		(*fn)(ev)
	}
}

// Deliver dispatches an event received from a peer instance. It is not
// forwarded again.
func (h *Hub) Deliver(ev Event) {
	if h == nil || ev.Origin == h.opts.Origin {
		return
	}
	h.deliver(ev)
}

// deliver numbers ev in local delivery order and hands it to subscribers.
func (h *Hub) deliver(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	ev.ID = strconv.FormatUint(h.seq, 10)

	h.subscribers.Range(func(_, value any) bool {
		if sub, ok := value.(*Subscriber); ok && sub.Wants(ev.Topic) {
			h.dispatch(sub, ev)
		}
		return true
	})
}

// Subscribe registers a new subscriber for topics (all topics when empty).
func (h *Hub) Subscribe(transport string, topics ...string) *Subscriber {
	sub := newSubscriber(uuid.NewString(), transport, h.opts.Buffer, topics)
	h.subscribers.Store(sub.ID, sub)
	h.reportCount(transport)

	h.logger.Debug("subscriber connected",
		logger.String("subscriber_id", sub.ID),
		logger.String("transport", transport))
	return sub
}

// Unsubscribe removes sub and closes its Done channel. It is safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	if _, loaded := h.subscribers.LoadAndDelete(sub.ID); !loaded {
		return
	}
	sub.close()
	h.reportCount(sub.Transport)

	h.logger.Debug("subscriber disconnected",
		logger.String("subscriber_id", sub.ID),
		logger.String("transport", sub.Transport))
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	n := 0
	h.subscribers.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the heartbeat and disconnects every subscriber.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.stopCh)
	})
	h.subscribers.Range(func(_, value any) bool {
		if sub, ok := value.(*Subscriber); ok {
			h.Unsubscribe(sub)
		}
		return true
	})
}

func (h *Hub) dispatch(sub *Subscriber, ev Event) {
	select {
	case <-sub.done:
		return
	case sub.ch <- ev:
		sub.markDelivered()
		return
	default:
	}

	streak := sub.markFull()
	metrics.EventsDropped.WithLabelValues(ev.Topic).Inc()
	h.logger.Warn("drop event due to full buffer",
		logger.String("subscriber_id", sub.ID),
		logger.String("topic", ev.Topic),
		logger.Int("full_streak", int(streak)))

	if streak >= backpressureFullLimit {
		h.logger.Warn("disconnect slow subscriber due to backpressure",
			logger.String("subscriber_id", sub.ID),
			logger.String("transport", sub.Transport))
		metrics.SlowSubscribersEvicted.Inc()
		h.Unsubscribe(sub)
	}
}

func (h *Hub) reportCount(transport string) {
	n := 0
	h.subscribers.Range(func(_, value any) bool {
		if sub, ok := value.(*Subscriber); ok && sub.Transport == transport {
			n++
		}
		return true
	})
	metrics.SetSubscribers(transport, n)
}

func (h *Hub) heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case now := <-ticker.C:
			h.Publish(TopicHeartbeat, map[string]string{
				"ts": now.UTC().Format(time.RFC3339Nano),
			})
		}
	}
}
