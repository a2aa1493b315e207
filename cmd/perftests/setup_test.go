package perftests

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	bidding "auction-platform/internal/biddingService"
	"auction-platform/internal/database"
	"auction-platform/internal/events"
	"auction-platform/internal/models"
	"auction-platform/internal/repository"
)

// OperationMetrics collects latencies safely
type OperationMetrics struct {
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(d time.Duration) {
	om.mu.Lock()
	om.latencies = append(om.latencies, d)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (min, max, avg, p95, p99 time.Duration) {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.latencies...)
	om.mu.Unlock()
	if len(latencies) == 0 {
		return
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	min = latencies[0]
	max = latencies[len(latencies)-1]

	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	avg = total / time.Duration(len(latencies))
	p95 = latencies[int(0.95*float64(len(latencies)-1))]
	p99 = latencies[int(0.99*float64(len(latencies)-1))]
	return
}

func auctionID(i int) string { return fmt.Sprintf("auction_%d", i) }

// setupLedger creates a ledger with numAuctions open auctions and a service
// publishing to a bus nobody consumes. store is "memory" or "sqlite".
func setupLedger(tb testing.TB, store string, numAuctions int) (repository.LedgerDB, *bidding.BiddingService) {
	tb.Helper()
	var repo repository.LedgerDB = repository.NewMemoryRepo()
	if store == "sqlite" {
		db, err := database.OpenTest(fmt.Sprintf("perf_%d", time.Now().UnixNano()))
		if err != nil {
			tb.Fatalf("open sqlite: %v", err)
		}
		repo = repository.NewGormRepo(db)
	}

	ctx := context.Background()
	end := time.Now().Add(24 * time.Hour).UTC()
	for i := 0; i < numAuctions; i++ {
		if _, err := repo.AddAuction(ctx, models.LedgerAuction{
			ID:           auctionID(i),
			Seller:       "perf_seller",
			ReservePrice: 100,
			AuctionEnd:   end,
		}); err != nil {
			tb.Fatalf("seed auction: %v", err)
		}
	}

	bus := events.NewMemoryBus()
	tb.Cleanup(func() { _ = bus.Close() })
	return repo, bidding.NewBiddingService(repo, bus, bidding.WithRetry(5, time.Millisecond))
}
