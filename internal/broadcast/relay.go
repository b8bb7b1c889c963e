package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/metrics"
)

const (
	DefaultRelayChannel = "noticeboard:events"
	relayQueueSize      = 256
)

// Relay mirrors events between instances sharing a Redis server. Local
// events are queued and published from a background goroutine so a slow
// Redis never stalls a mutation.
type Relay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  logger.Logger
	queue   chan Event
}

func NewRelay(client *redis.Client, channel string, hub *Hub, log logger.Logger) *Relay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	r := &Relay{
		client:  client,
		channel: channel,
		hub:     hub,
		logger:  log,
		queue:   make(chan Event, relayQueueSize),
	}
	hub.SetForwarder(r.forward)
	return r
}

func (r *Relay) forward(ev Event) {
	select {
	case r.queue <- ev:
	default:
		metrics.RelayErrors.Inc()
		r.logger.Warn("relay queue full, event not mirrored",
			logger.String("topic", ev.Topic))
	}
}

// Run publishes queued local events and delivers peer events to the hub
// until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	r.logger.Info("event relay subscribed",
		logger.String("channel", r.channel),
		logger.String("origin", r.hub.Origin()))

	go r.publishLoop(ctx)

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.hub.SetForwarder(nil)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				metrics.RelayErrors.Inc()
				r.logger.Warn("relay dropped malformed event", logger.Error(err))
				continue
			}
			r.hub.Deliver(ev)
		}
	}
}

func (r *Relay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.queue:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
				metrics.RelayErrors.Inc()
				r.logger.Warn("relay publish failed",
					logger.String("topic", ev.Topic),
					logger.Error(err))
			}
		}
	}
}
