// Package sweep finalizes expired auctions. Each tick flips expired auctions
// to finished with a conditional write, so when several sweepers run against
// one ledger exactly one of them decides the winner and announces it.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/events"
	"auction-platform/internal/models"
	"auction-platform/internal/repository"
	"auction-platform/utils"
)

// Source is the envelope source for AuctionFinished events
const Source = "sweep"

// DefaultInterval is the tick period used when none is configured
const DefaultInterval = 5 * time.Second

// Sweeper periodically finishes auctions whose end time has passed
type Sweeper struct {
	repo           repository.LedgerDB
	pub            events.Publisher
	interval       time.Duration
	republishAfter time.Duration
	now            func() time.Time
}

// Option configures a Sweeper
type Option func(*Sweeper)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithRepublishAfter sets how long a finished auction may stay unannounced
// before a later tick publishes it again. Defaults to the tick interval.
func WithRepublishAfter(d time.Duration) Option {
	return func(s *Sweeper) { s.republishAfter = d }
}

// New creates a Sweeper; a non-positive interval selects DefaultInterval.
func New(repo repository.LedgerDB, pub events.Publisher, interval time.Duration, opts ...Option) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Sweeper{repo: repo, pub: pub, interval: interval, republishAfter: interval, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TickResult summarizes one sweep pass
type TickResult struct {
	Finished  int
	Published int
	Failed    int
}

// Run ticks immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	utils.Info("sweep: started", map[string]any{"interval": s.interval.String()})
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			utils.Info("sweep: stopped", nil)
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one pass. Failures are logged per auction and left for the next
// tick; a failing auction never stops the others.
func (s *Sweeper) Tick(ctx context.Context) TickResult {
	var res TickResult
	now := s.now().UTC()

	expired, err := s.repo.ExpiredUnfinished(ctx, now)
	if err != nil {
		utils.Error("sweep: failed to list expired auctions", map[string]any{"error": err.Error()})
		res.Failed++
	}
	for _, a := range expired {
		if ctx.Err() != nil {
			return res
		}
		won, err := s.repo.MarkFinished(ctx, a.ID, now)
		if err != nil {
			utils.Error("sweep: failed to finish auction", map[string]any{"auction_id": a.ID, "error": err.Error()})
			res.Failed++
			continue
		}
		if !won {
			// another sweeper got there first and announces it
			continue
		}
		res.Finished++
		utils.Info("sweep: auction finished", map[string]any{"auction_id": a.ID})
		s.publish(ctx, a, &res)
	}

	// auctions whose announcement failed earlier; the cutoff keeps this pass
	// away from finishes another sweeper is still publishing
	pending, err := s.repo.FinishedUnpublished(ctx, now.Add(-s.republishAfter))
	if err != nil {
		utils.Error("sweep: failed to list unpublished auctions", map[string]any{"error": err.Error()})
		res.Failed++
		return res
	}
	for _, a := range pending {
		if ctx.Err() != nil {
			return res
		}
		utils.Warn("sweep: republishing auction finished", map[string]any{"auction_id": a.ID})
		s.publish(ctx, a, &res)
	}
	return res
}

func (s *Sweeper) publish(ctx context.Context, a models.LedgerAuction, res *TickResult) {
	if err := s.announce(ctx, a); err != nil {
		utils.Error("sweep: failed to publish auction finished", map[string]any{"auction_id": a.ID, "error": err.Error()})
		res.Failed++
		return
	}
	res.Published++
}

// announce publishes AuctionFinished for a and records that it did. A crash
// between the two steps causes a duplicate event, which consumers tolerate.
func (s *Sweeper) announce(ctx context.Context, a models.LedgerAuction) error {
	finished := events.AuctionFinished{AuctionID: a.ID, Seller: a.Seller}

	winner, err := s.repo.HighestAcceptedBid(ctx, a.ID)
	switch {
	case err == nil:
		finished.ItemSold = true
		finished.Winner = &winner.Bidder
		finished.Amount = &winner.Amount
	case !errors.Is(err, auctionerrors.ErrNoBids):
		return fmt.Errorf("sweep: determine winner: %w", err)
	}

	if _, err := events.PublishEvent(ctx, s.pub, events.KindAuctionFinished, a.ID, Source, finished); err != nil {
		return err
	}
	if err := s.repo.MarkFinishPublished(ctx, a.ID); err != nil {
		return fmt.Errorf("sweep: mark published: %w", err)
	}
	return nil
}
