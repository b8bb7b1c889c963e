package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MrSnakeDoc/noticeboard/internal/broadcast"
	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/metrics"
)

// VisibilitySource evaluates what displays should currently show.
type VisibilitySource interface {
	Visible(ctx context.Context) (domain.Visibility, error)
}

// WindowWatcher re-evaluates the board on a schedule and tells displays to
// re-fetch when an announcement enters or leaves its display window.
// Mutations publish their own events; this covers the passage of time.
type WindowWatcher struct {
	source    VisibilitySource
	publisher broadcast.Publisher
	logger    logger.Logger
	spec      string
	now       func() time.Time

	mu   sync.Mutex
	last string
	seen bool

	cron          *cron.Cron
	manualTrigger chan struct{}
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// NewWindowWatcher creates a watcher that runs on the given cron spec,
// e.g. "@every 30s".
func NewWindowWatcher(source VisibilitySource, pub broadcast.Publisher, log logger.Logger, spec string) *WindowWatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &WindowWatcher{
		source:        source,
		publisher:     pub,
		logger:        log,
		spec:          spec,
		now:           func() time.Time { return time.Now().UTC() },
		cron:          cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		manualTrigger: make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
}

// Start records the current visibility and schedules periodic checks.
func (w *WindowWatcher) Start(ctx context.Context) error {
	if _, err := w.Check(ctx); err != nil {
		return fmt.Errorf("initial visibility check failed: %w", err)
	}

	if _, err := w.cron.AddFunc(w.spec, func() { w.run(ctx) }); err != nil {
		return fmt.Errorf("invalid window check spec %q: %w", w.spec, err)
	}
	w.cron.Start()

	go func() {
		for {
			select {
			case <-w.manualTrigger:
				w.logger.Debug("manual visibility check triggered")
				w.run(ctx)
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.logger.Info("window watcher started", logger.String("spec", w.spec))
	return nil
}

// Trigger requests an immediate check without waiting for the schedule.
func (w *WindowWatcher) Trigger() {
	select {
	case w.manualTrigger <- struct{}{}:
	default:
	}
}

// Stop halts the schedule and waits for a running check to finish.
func (w *WindowWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.cron.Stop().Done()
	})
}

func (w *WindowWatcher) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.Check(ctx); err != nil {
		w.logger.Error("visibility check failed", logger.Error(err))
	}
}

// Check evaluates the board and publishes a window event when the visible
// sequence differs from the previous check. The first check only records
// the baseline.
func (w *WindowWatcher) Check(ctx context.Context) (bool, error) {
	vis, err := w.source.Visible(ctx)
	if err != nil {
		return false, err
	}
	metrics.SetVisibility(len(vis.Items), vis.RotationSuspended)

	fp := vis.Fingerprint()

	w.mu.Lock()
	changed := w.seen && fp != w.last
	w.last, w.seen = fp, true
	w.mu.Unlock()

	if !changed {
		return false, nil
	}

	w.logger.Info("visible announcements changed",
		logger.Int("visible", len(vis.Items)),
		logger.Bool("rotation_suspended", vis.RotationSuspended))
	if w.publisher != nil {
		w.publisher.Publish(broadcast.TopicStateChanged, broadcast.StateChanged{
			Action:    broadcast.ActionWindow,
			Timestamp: w.now(),
		})
	}
	return true, nil
}
