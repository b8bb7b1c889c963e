// Package store defines the board's durable state contract and the
// document-backed implementations (memory and JSON file).
//
// All reads and writes happen inside a transaction. Update runs its
// function against one consistent snapshot and commits every write or none,
// so read-modify-write cycles never lose a concurrent writer's change.
package store

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
)

var (
	// ErrNotFound is returned by Tx getters when the key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrReadOnly is returned when a write is attempted inside View.
	ErrReadOnly = errors.New("write in read-only transaction")
)

// Store is a transactional keyed collection of board state.
type Store interface {
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(Tx) error) error
	// Update runs fn in a serialized read-write transaction. If fn returns
	// an error nothing is written. A nil return means the writes are durable.
	Update(ctx context.Context, fn func(Tx) error) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Tx exposes per-entity operations within a transaction.
type Tx interface {
	Announcement(id string) (domain.Announcement, error)
	Announcements() ([]domain.Announcement, error)
	PutAnnouncement(a domain.Announcement) error
	RemoveAnnouncement(id string) error

	// AppendHistory prepends e; History returns entries most recent first.
	AppendHistory(e domain.HistoryEntry) error
	History() ([]domain.HistoryEntry, error)

	Category(id string) (domain.Category, error)
	Categories() ([]domain.Category, error)
	PutCategory(c domain.Category) error
	RemoveCategory(id string) error

	// Live returns the live session, LiveOffSession when never set.
	Live() (domain.LiveSession, error)
	PutLive(s domain.LiveSession) error

	// User looks a user up by normalized email.
	User(email string) (domain.User, error)
	Users() ([]domain.User, error)
	PutUser(u domain.User) error
}

// Wrap classifies an error returned by View or Update. Domain errors raised
// inside the transaction pass through; anything else is a storage failure.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.StorageFailure(op, err)
}
