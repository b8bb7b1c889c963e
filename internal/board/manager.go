// Package board orchestrates announcement lifecycles.
//
// Every mutation runs as one store transaction that writes the announcement
// and its history entry together. The state-changed event is published after
// the commit and before the call returns, so a caller acknowledging the
// mutation never races ahead of the broadcast.
package board

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/noticeboard/internal/broadcast"
	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/history"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/metrics"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
)

// ImageRemover deletes a stored image by its public reference.
type ImageRemover interface {
	Remove(ref string) error
}

type Config struct {
	Store     store.Store
	Publisher broadcast.Publisher
	Logger    logger.Logger
	// Images is optional; without it replaced images are left on disk.
	Images ImageRemover
	// Clock defaults to time.Now.
	Clock func() time.Time
	// NewID defaults to UUIDv7.
	NewID func() (string, error)
}

// Manager is the only writer of announcements and categories.
type Manager struct {
	store     store.Store
	history   *history.Log
	publisher broadcast.Publisher
	images    ImageRemover
	logger    logger.Logger
	now       func() time.Time
	newID     func() (string, error)
}

func New(cfg Config) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = newUUIDv7
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	now := func() time.Time { return cfg.Clock().UTC() }
	return &Manager{
		store:     cfg.Store,
		history:   history.New(cfg.Store, now),
		publisher: cfg.Publisher,
		images:    cfg.Images,
		logger:    cfg.Logger,
		now:       now,
		newID:     cfg.NewID,
	}
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// History exposes the audit log for listing.
func (m *Manager) History() *history.Log { return m.history }

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time { return m.now() }

// ─────────────────────────────
// Queries
// ─────────────────────────────

func (m *Manager) Get(ctx context.Context, id string) (domain.Announcement, error) {
	var a domain.Announcement
	err := m.store.View(ctx, func(tx store.Tx) error {
		var err error
		a, err = getAnnouncement(tx, id)
		return err
	})
	if err != nil {
		return domain.Announcement{}, store.Wrap("get announcement", err)
	}
	return a, nil
}

// List returns every stored announcement, newest first.
func (m *Manager) List(ctx context.Context) ([]domain.Announcement, error) {
	anns, err := m.all(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(anns, domain.CompareNewestFirst)
	return anns, nil
}

// Visible evaluates the board at the manager's current time.
func (m *Manager) Visible(ctx context.Context) (domain.Visibility, error) {
	return m.VisibleAt(ctx, m.now())
}

func (m *Manager) VisibleAt(ctx context.Context, now time.Time) (domain.Visibility, error) {
	anns, err := m.all(ctx)
	if err != nil {
		return domain.Visibility{}, err
	}
	return domain.Visible(now, anns), nil
}

func (m *Manager) all(ctx context.Context) ([]domain.Announcement, error) {
	var anns []domain.Announcement
	err := m.store.View(ctx, func(tx store.Tx) error {
		var err error
		anns, err = tx.Announcements()
		return err
	})
	if err != nil {
		return nil, store.Wrap("list announcements", err)
	}
	return anns, nil
}

// ─────────────────────────────
// Mutations
// ─────────────────────────────

func (m *Manager) Create(ctx context.Context, d domain.Draft, user string) (domain.Announcement, error) {
	id, err := m.newID()
	if err != nil {
		return domain.Announcement{}, m.fail("create", "", domain.StorageFailure("generate id", err))
	}

	a, err := domain.NewAnnouncement(id, d, m.now())
	if err != nil {
		return domain.Announcement{}, m.fail("create", "", err)
	}

	err = m.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutAnnouncement(a); err != nil {
			return err
		}
		_, err := m.history.Append(tx, a, domain.ActionCreated, user)
		return err
	})
	if err != nil {
		return domain.Announcement{}, m.fail("create", id, store.Wrap("create announcement", err))
	}

	m.committed(broadcast.ActionCreate, a, user)
	return a, nil
}

// Update merges the non-nil fields of p into announcement id.
func (m *Manager) Update(ctx context.Context, id string, p domain.Patch, user string) (domain.Announcement, error) {
	if p.IsEmpty() {
		return domain.Announcement{}, m.fail("update", id, domain.InvalidInput("no fields to update"))
	}

	var prev, next domain.Announcement
	err := m.store.Update(ctx, func(tx store.Tx) error {
		var err error
		if prev, err = getAnnouncement(tx, id); err != nil {
			return err
		}
		if next, err = prev.Apply(p, m.now()); err != nil {
			return err
		}
		if err := tx.PutAnnouncement(next); err != nil {
			return err
		}
		_, err = m.history.Append(tx, next, domain.ActionUpdated, user)
		return err
	})
	if err != nil {
		return domain.Announcement{}, m.fail("update", id, store.Wrap("update announcement", err))
	}

	if prev.Image != "" && prev.Image != next.Image {
		m.removeImage(prev.Image, id)
	}
	m.committed(broadcast.ActionUpdate, next, user)
	return next, nil
}

// Delete removes id from the board. The pre-delete snapshot stays in history
// and its image is kept so the announcement can be restored intact.
func (m *Manager) Delete(ctx context.Context, id, user string) (domain.Announcement, error) {
	var deleted domain.Announcement
	err := m.store.Update(ctx, func(tx store.Tx) error {
		var err error
		if deleted, err = getAnnouncement(tx, id); err != nil {
			return err
		}
		if err := tx.RemoveAnnouncement(id); err != nil {
			return err
		}
		_, err = m.history.Append(tx, deleted, domain.ActionDeleted, user)
		return err
	})
	if err != nil {
		return domain.Announcement{}, m.fail("delete", id, store.Wrap("delete announcement", err))
	}

	metrics.ObserveMutation(broadcast.ActionDelete)
	m.logger.Info("announcement deleted",
		logger.String("id", id),
		logger.String("user", user))
	m.publisher.Publish(broadcast.TopicStateChanged, broadcast.AnnouncementRemoved(id, m.now()))
	return deleted, nil
}

// Restore reinstates the latest deleted snapshot of id. Restoring an id that
// is still live is a conflict.
func (m *Manager) Restore(ctx context.Context, id, user string) (domain.Announcement, error) {
	var a domain.Announcement
	err := m.store.Update(ctx, func(tx store.Tx) error {
		var err error
		a, err = m.history.RestoreTx(tx, id, user)
		return err
	})
	if err != nil {
		return domain.Announcement{}, m.fail("restore", id, store.Wrap("restore announcement", err))
	}

	m.committed(broadcast.ActionRestore, a, user)
	return a, nil
}

func (m *Manager) committed(action string, a domain.Announcement, user string) {
	metrics.ObserveMutation(action)
	m.logger.Info("announcement "+action+"d",
		logger.String("id", a.ID),
		logger.Int("priority", a.Priority),
		logger.Bool("active", a.Active),
		logger.String("user", user))
	m.publisher.Publish(broadcast.TopicStateChanged, broadcast.AnnouncementChanged(action, a, m.now()))
}

func (m *Manager) fail(op, id string, err error) error {
	kind := domain.KindOf(err)
	metrics.ObserveMutationError(string(kind))

	fields := []logger.Field{
		logger.String("op", op),
		logger.String("kind", string(kind)),
		logger.Error(err),
	}
	if id != "" {
		fields = append(fields, logger.String("id", id))
	}
	if kind == domain.KindStorageFailure {
		m.logger.Error("announcement mutation failed", fields...)
	} else {
		m.logger.Debug("announcement mutation rejected", fields...)
	}
	return err
}

func (m *Manager) removeImage(ref, id string) {
	if m.images == nil {
		return
	}
	if err := m.images.Remove(ref); err != nil {
		m.logger.Warn("could not remove old image",
			logger.String("id", id),
			logger.String("image", ref),
			logger.Error(err))
	}
}

func getAnnouncement(tx store.Tx, id string) (domain.Announcement, error) {
	a, err := tx.Announcement(id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Announcement{}, domain.NotFound("announcement", id)
	}
	return a, err
}
