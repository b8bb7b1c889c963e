package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/noticeboard/internal/store"
)

const (
	// DefaultMaxRetries bounds optimistic transaction retries when another
	// writer changes the board between WATCH and EXEC.
	DefaultMaxRetries = 16
)

// ErrContention is returned when an update keeps losing the optimistic race.
var ErrContention = errors.New("board document changed concurrently, retries exhausted")

// Store keeps the board document under a single Redis key. Updates WATCH the
// key, apply the transaction to a decoded copy and write it back in
// MULTI/EXEC, retrying when a concurrent writer got there first.
type Store struct {
	client     *redis.Client
	key        string
	maxRetries int
}

// NewStore creates a Redis-backed store. An empty prefix uses DefaultKeyPrefix.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{
		client:     client,
		key:        BoardKey(prefix),
		maxRetries: DefaultMaxRetries,
	}
}

func (s *Store) load(ctx context.Context, getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}) (*store.Document, error) {
	data, err := getter.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.NewDocument(), nil
		}
		return nil, fmt.Errorf("failed to get board: %w", err)
	}
	doc, err := store.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}
	return doc, nil
}

func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	doc, err := s.load(ctx, s.client)
	if err != nil {
		return err
	}
	return store.RunView(doc, fn)
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	var fnErr error

	txf := func(tx *redis.Tx) error {
		doc, err := s.load(ctx, tx)
		if err != nil {
			return err
		}

		next, err := store.RunUpdate(doc, fn)
		if err != nil {
			fnErr = err
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal board: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		fnErr = nil
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			return nil
		}
		if fnErr != nil {
			return fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("failed to save board: %w", err)
	}
	return ErrContention
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the client is owned by the caller.
func (s *Store) Close() error { return nil }
