package projector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/database"
	"auction-platform/internal/events"
	"auction-platform/internal/models"

	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]func() Store {
	t.Helper()
	seq := 0
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"gorm": func() Store {
			seq++
			db, err := database.OpenTest("projector_" + strings.ReplaceAll(t.Name(), "/", "_") + "_" + string(rune('a'+seq)))
			require.NoError(t, err)
			return NewGormStore(db)
		},
	}
}

func envelope(t *testing.T, kind events.Kind, key string, payload any) events.Envelope {
	t.Helper()
	env, err := events.New(kind, key, "test", payload)
	require.NoError(t, err)
	return env
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// normalized strips bookkeeping that depends on the number of writes
func normalized(it models.Item) models.Item {
	it.Revision = 0
	it.AuctionEnd = it.AuctionEnd.UTC()
	it.UpdatedAt = it.UpdatedAt.UTC()
	return it
}

var (
	t0      = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	created = events.AuctionCreated{
		ID:           "a1",
		Seller:       "seller",
		Item:         models.ItemAttributes{Make: "Audi", Model: "R8", Year: 2019, Color: "Black", Mileage: 12000},
		ReservePrice: 90000,
		AuctionEnd:   t0.Add(72 * time.Hour),
		UpdatedAt:    t0,
	}
	updated = events.AuctionUpdated{ID: "a1", Color: strPtr("Blue"), Mileage: intPtr(12500), UpdatedAt: t0.Add(time.Minute)}
)

func TestProjector_UpdatedBeforeCreatedMatchesInOrder(t *testing.T) {
	for name, newStore := range stores(t) {
		newStore := newStore
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := envelope(t, events.KindAuctionCreated, "a1", created)
			u := envelope(t, events.KindAuctionUpdated, "a1", updated)

			inOrder := New(newStore())
			require.NoError(t, inOrder.Apply(ctx, c))
			require.NoError(t, inOrder.Apply(ctx, u))

			reordered := New(newStore())
			require.NoError(t, reordered.Apply(ctx, u))
			_, err := reordered.Get(ctx, "a1")
			require.ErrorIs(t, err, auctionerrors.ErrNotFound, "not visible before its creation is seen")
			require.NoError(t, reordered.Apply(ctx, c))

			// duplicates change nothing
			duplicated := New(newStore())
			for _, env := range []events.Envelope{c, u, c, u, u} {
				require.NoError(t, duplicated.Apply(ctx, env))
			}

			want, err := inOrder.Get(ctx, "a1")
			require.NoError(t, err)
			require.Equal(t, "Blue", want.Color)
			require.Equal(t, 12500, want.Mileage)
			require.Equal(t, "Audi", want.Make)
			require.True(t, updated.UpdatedAt.Equal(want.UpdatedAt))

			got, err := reordered.Get(ctx, "a1")
			require.NoError(t, err)
			require.Equal(t, normalized(want), normalized(got))

			got, err = duplicated.Get(ctx, "a1")
			require.NoError(t, err)
			require.Equal(t, normalized(want), normalized(got))
		})
	}
}

func TestProjector_StaleUpdateDiscarded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := New(NewMemoryStore())
	require.NoError(t, p.Apply(ctx, envelope(t, events.KindAuctionCreated, "a1", created)))
	require.NoError(t, p.Apply(ctx, envelope(t, events.KindAuctionUpdated, "a1", updated)))

	stale := events.AuctionUpdated{ID: "a1", Color: strPtr("Green"), Make: strPtr("Audi Sport"), UpdatedAt: t0.Add(30 * time.Second)}
	require.NoError(t, p.Apply(ctx, envelope(t, events.KindAuctionUpdated, "a1", stale)))

	got, err := p.Get(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "Blue", got.Color, "older write never regresses a newer field")
	require.Equal(t, "Audi Sport", got.Make, "fields the newer write did not touch still merge")
	require.True(t, updated.UpdatedAt.Equal(got.UpdatedAt))
}

func TestProjector_DeleteIsSticky(t *testing.T) {
	for name, newStore := range stores(t) {
		newStore := newStore
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := New(newStore())
			del := envelope(t, events.KindAuctionDeleted, "a1", events.AuctionDeleted{ID: "a1", UpdatedAt: t0.Add(time.Hour)})

			// deleting an unknown item is a no-op that still blocks late creates
			require.NoError(t, p.Apply(ctx, del))
			require.NoError(t, p.Apply(ctx, del))
			require.NoError(t, p.Apply(ctx, envelope(t, events.KindAuctionCreated, "a1", created)))
			require.NoError(t, p.Apply(ctx, envelope(t, events.KindAuctionUpdated, "a1", updated)))

			_, err := p.Get(ctx, "a1")
			require.ErrorIs(t, err, auctionerrors.ErrNotFound)
		})
	}
}

func TestProjector_FinishedAndBids(t *testing.T) {
	for name, newStore := range stores(t) {
		newStore := newStore
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := New(newStore())
			require.NoError(t, p.Apply(ctx, envelope(t, events.KindAuctionCreated, "a1", created)))

			for _, b := range []events.BidPlaced{
				{AuctionID: "a1", Amount: 95000, Status: models.BidAccepted},
				{AuctionID: "a1", Amount: 99000, Status: models.BidTooLow},
				{AuctionID: "a1", Amount: 80000, Status: models.BidAcceptedBelowReserve},
			} {
				require.NoError(t, p.Apply(ctx, envelope(t, events.KindBidPlaced, "a1", b)))
			}

			winner, amount := "bob", 95000
			fin := envelope(t, events.KindAuctionFinished, "a1", events.AuctionFinished{
				AuctionID: "a1", ItemSold: true, Winner: &winner, Amount: &amount, Seller: "seller",
			})
			require.NoError(t, p.Apply(ctx, fin))
			require.NoError(t, p.Apply(ctx, fin))

			// a conflicting late decision does not overwrite the first one
			other := "eve"
			require.NoError(t, p.Apply(ctx, envelope(t, events.KindAuctionFinished, "a1", events.AuctionFinished{
				AuctionID: "a1", ItemSold: true, Winner: &other, Amount: intPtr(1), Seller: "seller",
			})))

			got, err := p.Get(ctx, "a1")
			require.NoError(t, err)
			require.Equal(t, models.StatusFinished, got.Status)
			require.Equal(t, "bob", got.Winner)
			require.Equal(t, 95000, got.SoldAmount)
			require.Equal(t, 95000, got.CurrentHighBid)
		})
	}
}

// concurrency test: events for one auction applied from many goroutines
func TestProjector_ConcurrentApply(t *testing.T) {
	for name, newStore := range stores(t) {
		newStore := newStore
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := New(newStore())

			envs := []events.Envelope{envelope(t, events.KindAuctionCreated, "a1", created)}
			for i := 1; i <= 8; i++ {
				envs = append(envs, envelope(t, events.KindAuctionUpdated, "a1", events.AuctionUpdated{
					ID: "a1", Mileage: intPtr(12000 + i), UpdatedAt: t0.Add(time.Duration(i) * time.Second),
				}))
				envs = append(envs, envelope(t, events.KindBidPlaced, "a1", events.BidPlaced{
					AuctionID: "a1", Amount: i * 1000, Status: models.BidAccepted,
				}))
			}

			var wg sync.WaitGroup
			for _, env := range envs {
				wg.Add(1)
				go func(env events.Envelope) {
					defer wg.Done()
					require.NoError(t, p.Apply(ctx, env))
				}(env)
			}
			wg.Wait()

			got, err := p.Get(ctx, "a1")
			require.NoError(t, err)
			require.Equal(t, 12008, got.Mileage)
			require.Equal(t, 8000, got.CurrentHighBid)
			require.Equal(t, "Audi", got.Make)
		})
	}
}

// fakeSource serves registry records and fails a configurable number of pulls
type fakeSource struct {
	mu       sync.Mutex
	auctions []models.Auction
	failures atomic.Int32
	calls    atomic.Int32
	since    []time.Time
}

func (f *fakeSource) AuctionsSince(_ context.Context, since time.Time) ([]models.Auction, error) {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("registry not reachable yet")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = append(f.since, since)
	var out []models.Auction
	for _, a := range f.auctions {
		if a.UpdatedAt.After(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func registryAuction(id string, updatedAt time.Time) models.Auction {
	return models.Auction{
		ID:           id,
		Seller:       "seller",
		Item:         models.ItemAttributes{Make: "VW", Model: "Golf", Year: 2015, Color: "Grey", Mileage: 90000},
		ReservePrice: 3000,
		AuctionEnd:   updatedAt.Add(time.Hour),
		Status:       models.StatusActive,
		UpdatedAt:    updatedAt,
	}
}

func TestBackfill_RetriesAndResumes(t *testing.T) {
	for name, newStore := range stores(t) {
		newStore := newStore
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()
			p := New(store)
			src := &fakeSource{auctions: []models.Auction{
				registryAuction("a1", t0.Add(time.Second)),
				registryAuction("a2", t0.Add(2*time.Second)),
			}}
			src.failures.Store(2)

			b := NewBackfiller(store, p, src, 5*time.Millisecond)
			applied, err := b.Run(ctx, false)
			require.NoError(t, err)
			require.Equal(t, 2, applied)
			require.Equal(t, int32(3), src.calls.Load(), "two failed pulls then one success")

			cursor, err := store.Cursor(ctx, CursorName)
			require.NoError(t, err)
			require.True(t, t0.Add(2*time.Second).Equal(cursor))

			// a later registry change is picked up from the cursor
			sold := registryAuction("a1", t0.Add(3*time.Second))
			sold.Status = models.StatusFinished
			sold.Winner = "bob"
			sold.SoldAmount = 4000
			sold.CurrentHighBid = 4000
			src.mu.Lock()
			src.auctions = append(src.auctions, sold)
			src.mu.Unlock()

			applied, err = b.Run(ctx, false)
			require.NoError(t, err)
			require.Equal(t, 1, applied)
			src.mu.Lock()
			require.True(t, t0.Add(2*time.Second).Equal(src.since[len(src.since)-1]))
			src.mu.Unlock()

			got, err := p.Get(ctx, "a1")
			require.NoError(t, err)
			require.Equal(t, models.StatusFinished, got.Status)
			require.Equal(t, "bob", got.Winner)
			require.Equal(t, 4000, got.CurrentHighBid)
		})
	}
}

func TestBackfill_RebuildStartsOver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	p := New(store)
	src := &fakeSource{auctions: []models.Auction{registryAuction("a1", t0.Add(time.Second))}}

	// a stale item the registry no longer knows about
	require.NoError(t, p.Apply(ctx, envelope(t, events.KindAuctionCreated, "ghost", events.AuctionCreated{ID: "ghost", Seller: "s", UpdatedAt: t0})))
	require.NoError(t, store.SetCursor(ctx, CursorName, t0.Add(time.Hour)))

	applied, err := NewBackfiller(store, p, src, time.Millisecond).Run(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	_, err = p.Get(ctx, "ghost")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
	_, err = p.Get(ctx, "a1")
	require.NoError(t, err)
}

func TestBackfill_CancelledWhileRegistryDown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{}
	src.failures.Store(1 << 30)
	store := NewMemoryStore()
	b := NewBackfiller(store, New(store), src, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := b.Run(ctx, false)
		done <- err
	}()

	require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("backfill did not stop after cancel")
	}
}
