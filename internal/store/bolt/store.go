// Package bolt provides a BoltDB-backed board store. Each bucket holds one
// entity collection; BoltDB serializes writers and commits atomically with
// an fsync, so a crash never leaves a partially written transaction.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
)

const (
	announcementBucket = "announcements"
	historyBucket      = "history"
	categoryBucket     = "categories"
	userBucket         = "users"
	metaBucket         = "meta"

	liveKey = "live"
)

var buckets = []string{announcementBucket, historyBucket, categoryBucket, userBucket, metaBucket}

// Store is a store.Store on top of a BoltDB file.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(announcementBucket)) == nil {
			return fmt.Errorf("announcement bucket is missing")
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type boltTx struct {
	tx *bbolt.Tx
}

func (t *boltTx) bucket(name string) (*bbolt.Bucket, error) {
	b := t.tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("%s bucket is missing", name)
	}
	return b, nil
}

func (t *boltTx) writable() error {
	if !t.tx.Writable() {
		return store.ErrReadOnly
	}
	return nil
}

func get[T any](t *boltTx, bucket, key string) (T, error) {
	var v T
	b, err := t.bucket(bucket)
	if err != nil {
		return v, err
	}
	payload := b.Get([]byte(key))
	if payload == nil {
		return v, store.ErrNotFound
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("unmarshal %s/%s: %w", bucket, key, err)
	}
	return v, nil
}

func list[T any](t *boltTx, bucket string) ([]T, error) {
	b, err := t.bucket(bucket)
	if err != nil {
		return nil, err
	}
	out := []T{}
	err = b.ForEach(func(k, payload []byte) error {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("unmarshal %s/%s: %w", bucket, k, err)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func put(t *boltTx, bucket, key string, v any) error {
	if err := t.writable(); err != nil {
		return err
	}
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", bucket, key, err)
	}
	return b.Put([]byte(key), payload)
}

func remove(t *boltTx, bucket, key string) error {
	if err := t.writable(); err != nil {
		return err
	}
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return b.Delete([]byte(key))
}

func (t *boltTx) Announcement(id string) (domain.Announcement, error) {
	return get[domain.Announcement](t, announcementBucket, id)
}

func (t *boltTx) Announcements() ([]domain.Announcement, error) {
	return list[domain.Announcement](t, announcementBucket)
}

func (t *boltTx) PutAnnouncement(a domain.Announcement) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("announcement id is required")
	}
	return put(t, announcementBucket, a.ID, a)
}

func (t *boltTx) RemoveAnnouncement(id string) error {
	return remove(t, announcementBucket, id)
}

// AppendHistory stores entries under an increasing big-endian sequence so a
// reverse cursor walk yields the most recent entry first.
func (t *boltTx) AppendHistory(e domain.HistoryEntry) error {
	if err := t.writable(); err != nil {
		return err
	}
	b, err := t.bucket(historyBucket)
	if err != nil {
		return err
	}
	seq, err := b.NextSequence()
	if err != nil {
		return fmt.Errorf("history sequence: %w", err)
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	return b.Put(seqKey(seq), payload)
}

func (t *boltTx) History() ([]domain.HistoryEntry, error) {
	b, err := t.bucket(historyBucket)
	if err != nil {
		return nil, err
	}
	out := []domain.HistoryEntry{}
	c := b.Cursor()
	for k, payload := c.Last(); k != nil; k, payload = c.Prev() {
		var e domain.HistoryEntry
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshal history entry %d: %w", binary.BigEndian.Uint64(k), err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (t *boltTx) Category(id string) (domain.Category, error) {
	return get[domain.Category](t, categoryBucket, id)
}

func (t *boltTx) Categories() ([]domain.Category, error) {
	return list[domain.Category](t, categoryBucket)
}

func (t *boltTx) PutCategory(c domain.Category) error {
	return put(t, categoryBucket, c.ID, c)
}

func (t *boltTx) RemoveCategory(id string) error {
	return remove(t, categoryBucket, id)
}

func (t *boltTx) Live() (domain.LiveSession, error) {
	live, err := get[domain.LiveSession](t, metaBucket, liveKey)
	if errors.Is(err, store.ErrNotFound) {
		return domain.LiveOffSession(), nil
	}
	return live, err
}

func (t *boltTx) PutLive(s domain.LiveSession) error {
	return put(t, metaBucket, liveKey, s)
}

func (t *boltTx) User(email string) (domain.User, error) {
	return get[domain.User](t, userBucket, domain.NormalizeEmail(email))
}

func (t *boltTx) Users() ([]domain.User, error) {
	return list[domain.User](t, userBucket)
}

func (t *boltTx) PutUser(u domain.User) error {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.Email == "" {
		return fmt.Errorf("user email is required")
	}
	return put(t, userBucket, u.Email, u)
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
