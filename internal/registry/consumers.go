package registry

import (
	"context"
	"errors"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/events"
	"auction-platform/internal/models"
	"auction-platform/utils"
)

// ConsumerGroup is the channel consumer group of the registry
const ConsumerGroup = "registry"

// Handler returns the registry's event handler, which folds bid results and
// sweep decisions back into the authoritative record.
func (s *Service) Handler(inbox events.Inbox) events.Handler {
	d := events.NewDispatcher(ConsumerGroup).
		On(events.KindBidPlaced, s.onBidPlaced).
		On(events.KindAuctionFinished, s.onAuctionFinished)
	return events.Idempotent(inbox, ConsumerGroup, d.Handle)
}

// onBidPlaced raises CurrentHighBid; max-merging makes reordering harmless
func (s *Service) onBidPlaced(ctx context.Context, env events.Envelope) error {
	ev, err := events.Decode[events.BidPlaced](env)
	if err != nil {
		return err
	}
	if !ev.Status.Competitive() {
		return nil
	}
	_, _, err = s.mutate(ctx, ev.AuctionID, func(a *models.Auction) (bool, error) {
		if ev.Amount <= a.CurrentHighBid {
			return false, nil
		}
		a.CurrentHighBid = ev.Amount
		return true, nil
	})
	return ignoreMissing(err, ev.AuctionID, env)
}

// onAuctionFinished moves the auction to Finished exactly once
func (s *Service) onAuctionFinished(ctx context.Context, env events.Envelope) error {
	ev, err := events.Decode[events.AuctionFinished](env)
	if err != nil {
		return err
	}
	_, _, err = s.mutate(ctx, ev.AuctionID, func(a *models.Auction) (bool, error) {
		if a.Status == models.StatusFinished {
			return false, nil
		}
		a.Status = models.StatusFinished
		if ev.ItemSold && ev.Winner != nil && ev.Amount != nil {
			a.Winner = *ev.Winner
			a.SoldAmount = *ev.Amount
		}
		return true, nil
	})
	return ignoreMissing(err, ev.AuctionID, env)
}

// ignoreMissing acknowledges events for auctions the registry no longer has
func ignoreMissing(err error, auctionID string, env events.Envelope) error {
	if errors.Is(err, auctionerrors.ErrNotFound) {
		utils.Warn("registry: event for unknown auction", map[string]any{
			"auction_id": auctionID,
			"kind":       env.Kind,
			"event_id":   env.ID,
		})
		return nil
	}
	return err
}
