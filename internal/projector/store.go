package projector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/models"
)

// Store persists read-model items. Put is a compare-and-swap on Revision.
type Store interface {
	// Load returns the stored item, tombstones included; ok is false when absent.
	Load(ctx context.Context, id string) (item models.Item, ok bool, err error)
	// Put writes item if the stored revision still equals prev (0 = absent).
	Put(ctx context.Context, item models.Item, prev int64) error
	Count(ctx context.Context) (int64, error)
	Cursor(ctx context.Context, name string) (time.Time, error)
	SetCursor(ctx context.Context, name string, at time.Time) error
	// Clear drops every item and cursor.
	Clear(ctx context.Context) error
}

// MemoryStore is a concurrency-safe in-memory Store
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]models.Item
	cursors map[string]time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[string]models.Item),
		cursors: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (models.Item, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[id]
	if ok {
		it.Versions = cloneVersions(it.Versions)
	}
	return it, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, item models.Item, prev int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.items[item.ID]
	if (!ok && prev != 0) || (ok && current.Revision != prev) {
		return fmt.Errorf("put item %s: %w", item.ID, auctionerrors.ErrConflict)
	}
	item.Versions = cloneVersions(item.Versions)
	m.items[item.ID] = item
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.items)), nil
}

func (m *MemoryStore) Cursor(_ context.Context, name string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursors[name], nil
}

func (m *MemoryStore) SetCursor(_ context.Context, name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[name] = at.UTC()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]models.Item)
	m.cursors = make(map[string]time.Time)
	return nil
}
