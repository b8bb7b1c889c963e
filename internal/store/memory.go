package store

import (
	"context"
	"sync"
)

// Memory keeps the document in process. Writers are serialized by a mutex
// and commit by swapping in a modified clone, so readers never observe a
// half-applied transaction.
type Memory struct {
	mu      sync.RWMutex
	doc     *Document
	persist func(*Document) error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{doc: NewDocument()}
}

// NewMemoryFrom seeds an in-memory store with doc.
func NewMemoryFrom(doc *Document) *Memory {
	if doc == nil {
		doc = NewDocument()
	}
	return &Memory{doc: doc}
}

func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return RunView(m.doc, fn)
}

func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := RunUpdate(m.doc, fn)
	if err != nil {
		return err
	}
	if m.persist != nil {
		if err := m.persist(next); err != nil {
			return err
		}
	}
	m.doc = next
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }
