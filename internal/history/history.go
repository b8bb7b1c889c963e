// Package history records every announcement mutation and materialises
// deleted announcements back onto the board.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
)

// Log is the append-only audit trail of announcement mutations.
type Log struct {
	store store.Store
	now   func() time.Time
}

func New(s store.Store, now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{store: s, now: now}
}

// Append records a snapshot of a inside tx, so the entry commits or rolls
// back together with the change it describes.
func (l *Log) Append(tx store.Tx, a domain.Announcement, action domain.Action, user string) (domain.HistoryEntry, error) {
	e := domain.NewHistoryEntry(a, action, user, l.now().UTC())
	if err := tx.AppendHistory(e); err != nil {
		return domain.HistoryEntry{}, err
	}
	return e, nil
}

// List returns entries most recent first, narrowed by filter.
func (l *Log) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	var out []domain.HistoryEntry
	err := l.store.View(ctx, func(tx store.Tx) error {
		entries, err := tx.History()
		if err != nil {
			return err
		}
		out = make([]domain.HistoryEntry, 0, len(entries))
		for _, e := range entries {
			if filter.Matches(e) {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, store.Wrap("list history", err)
	}
	return out, nil
}

// RestoreTx reinstates the most recently deleted snapshot of id under the
// same id with a fresh UpdatedAt, and appends a restored entry. An id that is
// already live is a conflict and nothing changes. It runs inside the caller's
// transaction so the caller can publish only after commit.
func (l *Log) RestoreTx(tx store.Tx, id, user string) (domain.Announcement, error) {
	if _, err := tx.Announcement(id); err == nil {
		return domain.Announcement{}, domain.Conflict("announcement is already live: " + id)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Announcement{}, err
	}

	entries, err := tx.History()
	if err != nil {
		return domain.Announcement{}, err
	}
	deleted, ok := LatestDeleted(entries, id)
	if !ok {
		return domain.Announcement{}, domain.NotFound("deleted announcement", id)
	}

	a := deleted.Snapshot
	a.UpdatedAt = l.now().UTC()
	if err := tx.PutAnnouncement(a); err != nil {
		return domain.Announcement{}, err
	}
	if _, err := l.Append(tx, a, domain.ActionRestored, user); err != nil {
		return domain.Announcement{}, err
	}
	return a, nil
}

// LatestDeleted finds the newest deleted entry for id in entries ordered most
// recent first.
func LatestDeleted(entries []domain.HistoryEntry, id string) (domain.HistoryEntry, bool) {
	for _, e := range entries {
		if e.Action == domain.ActionDeleted && e.Snapshot.ID == id {
			return e, true
		}
	}
	return domain.HistoryEntry{}, false
}
