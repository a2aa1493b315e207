package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/models"
)

// Store persists registry auctions. Save is a compare-and-swap on UpdatedAt.
type Store interface {
	Create(ctx context.Context, auction models.Auction) error
	Get(ctx context.Context, id string) (models.Auction, error)
	// Save replaces the auction if its stored UpdatedAt still equals prev,
	// otherwise it fails with ErrConflict.
	Save(ctx context.Context, auction models.Auction, prev time.Time) error
	Delete(ctx context.Context, id string, prev time.Time) error
	// List returns auctions updated strictly after since, oldest update first.
	List(ctx context.Context, since time.Time) ([]models.Auction, error)
}

// MemoryStore is a concurrency-safe in-memory Store
type MemoryStore struct {
	mu       sync.RWMutex
	auctions map[string]models.Auction
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{auctions: make(map[string]models.Auction)}
}

func (m *MemoryStore) Create(_ context.Context, auction models.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.auctions[auction.ID]; ok {
		return fmt.Errorf("create auction %s: %w", auction.ID, auctionerrors.ErrAlreadyExists)
	}
	m.auctions[auction.ID] = auction
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (models.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.auctions[id]
	if !ok {
		return models.Auction{}, fmt.Errorf("get auction %s: %w", id, auctionerrors.ErrNotFound)
	}
	return a, nil
}

func (m *MemoryStore) Save(_ context.Context, auction models.Auction, prev time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.auctions[auction.ID]
	if !ok {
		return fmt.Errorf("save auction %s: %w", auction.ID, auctionerrors.ErrNotFound)
	}
	if !current.UpdatedAt.Equal(prev) {
		return fmt.Errorf("save auction %s: %w", auction.ID, auctionerrors.ErrConflict)
	}
	m.auctions[auction.ID] = auction
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string, prev time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.auctions[id]
	if !ok {
		return fmt.Errorf("delete auction %s: %w", id, auctionerrors.ErrNotFound)
	}
	if !current.UpdatedAt.Equal(prev) {
		return fmt.Errorf("delete auction %s: %w", id, auctionerrors.ErrConflict)
	}
	delete(m.auctions, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context, since time.Time) ([]models.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Auction, 0, len(m.auctions))
	for _, a := range m.auctions {
		if a.UpdatedAt.After(since) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}
