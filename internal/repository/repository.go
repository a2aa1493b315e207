package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/keylock"
	"auction-platform/internal/models"
)

//go:generate mockgen -destination=mock_repository.go -package=repository auction-platform/internal/repository LedgerDB

// BidBuilder decides the bid to persist given the auction as currently
// stored and its highest competitive bid (nil when there is none). It runs
// inside the store's per-auction critical section and must not block.
type BidBuilder func(auction models.LedgerAuction, highest *models.Bid) (models.Bid, error)

// LedgerDB defines the bid ledger storage interface
type LedgerDB interface {
	// AddAuction stores the auction terms unless the id is already known.
	AddAuction(ctx context.Context, auction models.LedgerAuction) (bool, error)
	GetAuction(ctx context.Context, auctionID string) (models.LedgerAuction, error)
	// RemoveAuction drops an auction that was never bid on and is not finished.
	RemoveAuction(ctx context.Context, auctionID string) (bool, error)

	// RecordBid atomically reads the highest bid, runs build and persists its
	// result. Concurrent calls for one auction are evaluated one at a time.
	RecordBid(ctx context.Context, auctionID string, build BidBuilder) (models.Bid, error)
	GetBidsByAuction(ctx context.Context, auctionID string) ([]models.Bid, error)
	HighestAcceptedBid(ctx context.Context, auctionID string) (models.Bid, error)

	ExpiredUnfinished(ctx context.Context, now time.Time) ([]models.LedgerAuction, error)
	// MarkFinished flips the auction to finished at the given time and reports
	// whether this call did it.
	MarkFinished(ctx context.Context, auctionID string, at time.Time) (bool, error)
	// FinishedUnpublished lists finished auctions not yet announced that were
	// finished before the given time.
	FinishedUnpublished(ctx context.Context, finishedBefore time.Time) ([]models.LedgerAuction, error)
	MarkFinishPublished(ctx context.Context, auctionID string) error
}

// MemoryRepo is a concurrency-safe in-memory implementation of LedgerDB
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]models.LedgerAuction // key: auctionID -> value: auction terms
	bids     map[string][]models.Bid         // key: auctionID -> value: bids in evaluation order
	locks    *keylock.Locker                 // serializes RecordBid per auction
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]models.LedgerAuction),
		bids:     make(map[string][]models.Bid),
		locks:    keylock.New(),
	}
}

func (r *MemoryRepo) AddAuction(_ context.Context, auction models.LedgerAuction) (bool, error) {
	if auction.ID == "" {
		return false, fmt.Errorf("add auction: %w - empty id", auctionerrors.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.ID]; ok {
		return false, nil
	}
	r.auctions[auction.ID] = auction
	return true, nil
}

func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (models.LedgerAuction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return models.LedgerAuction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	return a, nil
}

func (r *MemoryRepo) RemoveAuction(_ context.Context, auctionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok || a.Finished || len(r.bids[auctionID]) > 0 {
		return false, nil
	}
	delete(r.auctions, auctionID)
	return true, nil
}

// RecordBid evaluates and appends a bid while holding the auction's key lock
func (r *MemoryRepo) RecordBid(_ context.Context, auctionID string, build BidBuilder) (models.Bid, error) {
	unlock := r.locks.Lock(auctionID)
	defer unlock()

	r.mu.RLock()
	auction, ok := r.auctions[auctionID]
	var highest *models.Bid
	if ok {
		if b, found := highestCompetitive(r.bids[auctionID]); found {
			highest = &b
		}
	}
	r.mu.RUnlock()

	if !ok {
		return models.Bid{}, fmt.Errorf("record bid for auction %s: %w", auctionID, auctionerrors.ErrNotFound)
	}

	bid, err := build(auction, highest)
	if err != nil {
		return models.Bid{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.auctions[auctionID]
	if current.Version != auction.Version {
		// MarkFinished does not take the key lock, so it may have moved the version
		return models.Bid{}, fmt.Errorf("record bid for auction %s: %w", auctionID, auctionerrors.ErrConflict)
	}
	current.Version++
	r.auctions[auctionID] = current
	r.bids[auctionID] = append(r.bids[auctionID], bid)
	return bid, nil
}

// GetBidsByAuction returns all bids for an auction, newest first
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	out := append([]models.Bid(nil), bids...)
	sortNewestFirst(out)
	return out, nil
}

// HighestAcceptedBid returns the highest Accepted or AcceptedBelowReserve bid
func (r *MemoryRepo) HighestAcceptedBid(_ context.Context, auctionID string) (models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := highestCompetitive(r.bids[auctionID])
	if !ok {
		return models.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return b, nil
}

func (r *MemoryRepo) ExpiredUnfinished(_ context.Context, now time.Time) ([]models.LedgerAuction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.LedgerAuction
	for _, a := range r.auctions {
		if !a.Finished && a.AuctionEnd.Before(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuctionEnd.Before(out[j].AuctionEnd) })
	return out, nil
}

func (r *MemoryRepo) MarkFinished(_ context.Context, auctionID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return false, fmt.Errorf("mark finished %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	if a.Finished {
		return false, nil
	}
	a.Finished = true
	a.FinishedAt = at.UTC()
	a.Version++
	r.auctions[auctionID] = a
	return true, nil
}

func (r *MemoryRepo) FinishedUnpublished(_ context.Context, finishedBefore time.Time) ([]models.LedgerAuction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.LedgerAuction
	for _, a := range r.auctions {
		if a.Finished && !a.FinishPublished && a.FinishedAt.Before(finishedBefore) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuctionEnd.Before(out[j].AuctionEnd) })
	return out, nil
}

func (r *MemoryRepo) MarkFinishPublished(_ context.Context, auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("mark finish published %s: %w", auctionID, auctionerrors.ErrNotFound)
	}
	a.FinishPublished = true
	r.auctions[auctionID] = a
	return nil
}

// highestCompetitive picks the highest-amount competitive bid; on equal
// amounts the earlier one wins
func highestCompetitive(bids []models.Bid) (models.Bid, bool) {
	var best models.Bid
	found := false
	for _, b := range bids {
		if !b.Status.Competitive() {
			continue
		}
		if !found || b.Amount > best.Amount || (b.Amount == best.Amount && b.BidTime.Before(best.BidTime)) {
			best = b
			found = true
		}
	}
	return best, found
}

func sortNewestFirst(bids []models.Bid) {
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].BidTime.After(bids[j].BidTime) })
}
