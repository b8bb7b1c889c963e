package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Subscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "noticeboard_subscribers",
		Help: "Current number of connected real-time subscribers",
	}, []string{"transport"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noticeboard_events_published_total",
		Help: "Events published on the broadcast channel",
	}, []string{"topic"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noticeboard_events_dropped_total",
		Help: "Events dropped because a subscriber buffer was full",
	}, []string{"topic"})

	SlowSubscribersEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticeboard_slow_subscribers_evicted_total",
		Help: "Subscribers disconnected for sustained backpressure",
	})

	RelayErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticeboard_relay_errors_total",
		Help: "Failures mirroring events to or from peer instances",
	})

	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noticeboard_mutations_total",
		Help: "Committed announcement mutations by action",
	}, []string{"action"})

	MutationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noticeboard_mutation_errors_total",
		Help: "Rejected or failed mutations by error kind",
	}, []string{"kind"})

	VisibleAnnouncements = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "noticeboard_visible_announcements",
		Help: "Announcements visible at the last window evaluation",
	})

	EmergencyActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "noticeboard_emergency_active",
		Help: "1 while an emergency announcement suspends rotation",
	})
)

func SetSubscribers(transport string, count int) {
	Subscribers.WithLabelValues(transport).Set(float64(count))
}

func ObserveMutation(action string) {
	Mutations.WithLabelValues(action).Inc()
}

func ObserveMutationError(kind string) {
	MutationErrors.WithLabelValues(kind).Inc()
}

func SetVisibility(visible int, emergency bool) {
	VisibleAnnouncements.Set(float64(visible))
	if emergency {
		EmergencyActive.Set(1)
		return
	}
	EmergencyActive.Set(0)
}
