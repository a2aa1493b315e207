package bidding

import (
	"context"
	"fmt"

	"auction-platform/internal/events"
	"auction-platform/internal/models"
	"auction-platform/utils"
)

// ConsumerGroup is the channel consumer group of the ledger
const ConsumerGroup = "bidding"

// Handler returns the ledger's event handler. Registry lifecycle events keep
// the ledger's copy of the auction terms current.
func (s *BiddingService) Handler(inbox events.Inbox) events.Handler {
	d := events.NewDispatcher(ConsumerGroup).
		On(events.KindAuctionCreated, s.onAuctionCreated).
		On(events.KindAuctionDeleted, s.onAuctionDeleted)
	return events.Idempotent(inbox, ConsumerGroup, d.Handle)
}

// AddAuction is insert-if-absent, so a redelivered event never un-finishes an auction
func (s *BiddingService) onAuctionCreated(ctx context.Context, env events.Envelope) error {
	ev, err := events.Decode[events.AuctionCreated](env)
	if err != nil {
		return err
	}
	created, err := s.repo.AddAuction(ctx, models.LedgerAuction{
		ID:           ev.ID,
		Seller:       ev.Seller,
		ReservePrice: ev.ReservePrice,
		AuctionEnd:   ev.AuctionEnd.UTC(),
	})
	if err != nil {
		return fmt.Errorf("consumer: add auction %s: %w", ev.ID, err)
	}
	utils.Debug("consumer: auction created", map[string]any{"auction_id": ev.ID, "created": created})
	return nil
}

func (s *BiddingService) onAuctionDeleted(ctx context.Context, env events.Envelope) error {
	ev, err := events.Decode[events.AuctionDeleted](env)
	if err != nil {
		return err
	}
	removed, err := s.repo.RemoveAuction(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("consumer: remove auction %s: %w", ev.ID, err)
	}
	if !removed {
		utils.Info("consumer: kept ledger copy of deleted auction", map[string]any{"auction_id": ev.ID})
	}
	return nil
}
