package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/events"
	"auction-platform/internal/models"
	"auction-platform/internal/repository"
	"auction-platform/internal/retry"
	"auction-platform/utils"
)

// Source is the envelope source for events published by the ledger
const Source = "bidding"

// AuctionResolver looks up an auction in the registry when the ledger has no copy yet
type AuctionResolver interface {
	GetAuction(ctx context.Context, auctionID string) (models.Auction, error)
}

// Option configures a BiddingService
type Option func(*BiddingService)

// WithResolver sets the registry fallback used for auctions the ledger has not seen
func WithResolver(r AuctionResolver) Option {
	return func(s *BiddingService) { s.resolver = r }
}

// WithRetry sets how many times a transient store failure is attempted
func WithRetry(attempts uint, initial time.Duration) Option {
	return func(s *BiddingService) {
		s.attempts = attempts
		s.retryDelay = initial
	}
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo       repository.LedgerDB
	pub        events.Publisher
	resolver   AuctionResolver
	attempts   uint
	retryDelay time.Duration
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.LedgerDB, pub events.Publisher, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:       repo,
		pub:        pub,
		attempts:   3,
		retryDelay: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DecideStatus computes the status of a bid of amount against the auction
// terms and its current highest competitive bid (nil when there is none).
func DecideStatus(now time.Time, auction models.LedgerAuction, highest *models.Bid, amount int) models.BidStatus {
	if auction.Finished || !now.Before(auction.AuctionEnd) {
		return models.BidFinished
	}
	if highest != nil && amount <= highest.Amount {
		return models.BidTooLow
	}
	if amount > auction.ReservePrice {
		return models.BidAccepted
	}
	return models.BidAcceptedBelowReserve
}

// PlaceBid validates, evaluates and records a bid, then publishes BidPlaced.
// Every evaluated bid is persisted, including TooLow and Finished ones.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidder string, amount int, now time.Time) (models.Bid, error) {
	if err := validateBid(auctionID, bidder, amount); err != nil {
		return models.Bid{}, err
	}

	auction, err := s.resolveAuction(ctx, auctionID)
	if err != nil {
		return models.Bid{}, err
	}
	if auction.Seller == bidder {
		return models.Bid{}, fmt.Errorf("service: %w - seller %s cannot bid on auction %s", auctionerrors.ErrForbidden, bidder, auctionID)
	}

	bidID := utils.GenerateID()
	now = now.UTC()
	build := func(a models.LedgerAuction, highest *models.Bid) (models.Bid, error) {
		return models.Bid{
			ID:        bidID,
			AuctionID: a.ID,
			Bidder:    bidder,
			Amount:    amount,
			BidTime:   now,
			Status:    DecideStatus(now, a, highest, amount),
		}, nil
	}

	var bid models.Bid
	err = retry.Bounded(ctx, s.attempts, s.retryDelay, isTransient, func(ctx context.Context) error {
		b, err := s.record(ctx, auctionID, build)
		if err != nil {
			return err
		}
		bid = b
		return nil
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to record bid for auction %s by user %s: %w", auctionID, bidder, err)
	}

	s.publishBidPlaced(ctx, bid)
	return bid, nil
}

// record lets a lost optimistic race re-evaluate exactly once
func (s *BiddingService) record(ctx context.Context, auctionID string, build repository.BidBuilder) (models.Bid, error) {
	bid, err := s.repo.RecordBid(ctx, auctionID, build)
	if errors.Is(err, auctionerrors.ErrConflict) {
		utils.Debug("service: bid evaluation conflicted, retrying", map[string]any{"auction_id": auctionID})
		bid, err = s.repo.RecordBid(ctx, auctionID, build)
	}
	return bid, err
}

func (s *BiddingService) publishBidPlaced(ctx context.Context, bid models.Bid) {
	_, err := events.PublishEvent(ctx, s.pub, events.KindBidPlaced, bid.AuctionID, Source, events.BidPlaced{
		ID:        bid.ID,
		AuctionID: bid.AuctionID,
		Bidder:    bid.Bidder,
		Amount:    bid.Amount,
		Status:    bid.Status,
		BidTime:   bid.BidTime,
	})
	if err != nil {
		// the bid is committed; the read model catches up through backfill
		utils.Error("service: failed to publish bid placed", map[string]any{
			"bid_id":     bid.ID,
			"auction_id": bid.AuctionID,
			"error":      err.Error(),
		})
	}
}

// validateBid checks input validity
func validateBid(auctionID, bidder string, amount int) error {
	if auctionID == "" || bidder == "" {
		return fmt.Errorf("service: %w - missing auctionID or bidder", auctionerrors.ErrValidation)
	}
	if amount <= 0 {
		return fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrValidation)
	}
	return nil
}

// resolveAuction returns the ledger copy of the auction, fetching it from the
// registry when the AuctionCreated event has not arrived yet.
func (s *BiddingService) resolveAuction(ctx context.Context, auctionID string) (models.LedgerAuction, error) {
	a, err := s.repo.GetAuction(ctx, auctionID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, auctionerrors.ErrNotFound) || s.resolver == nil {
		return models.LedgerAuction{}, fmt.Errorf("service: failed to resolve auction %s: %w", auctionID, err)
	}

	remote, err := s.resolver.GetAuction(ctx, auctionID)
	if err != nil {
		return models.LedgerAuction{}, fmt.Errorf("service: failed to resolve auction %s from registry: %w", auctionID, err)
	}
	if _, err := s.repo.AddAuction(ctx, ledgerCopy(remote)); err != nil {
		return models.LedgerAuction{}, fmt.Errorf("service: failed to cache auction %s: %w", auctionID, err)
	}
	utils.Info("service: auction resolved from registry", map[string]any{"auction_id": auctionID})

	a, err = s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return models.LedgerAuction{}, fmt.Errorf("service: failed to resolve auction %s: %w", auctionID, err)
	}
	return a, nil
}

// ledgerCopy maps a registry auction to the ledger's terms. An auction the
// registry already reports finished was announced by another sweep.
func ledgerCopy(a models.Auction) models.LedgerAuction {
	finished := a.Status == models.StatusFinished
	return models.LedgerAuction{
		ID:              a.ID,
		Seller:          a.Seller,
		ReservePrice:    a.ReservePrice,
		AuctionEnd:      a.AuctionEnd.UTC(),
		Finished:        finished,
		FinishPublished: finished,
	}
}

// GetBidsForAuction returns all bids for an auction, newest first
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrValidation)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if errors.Is(err, auctionerrors.ErrNoBids) {
		return []models.Bid{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}

// GetHighestBid returns the current highest competitive bid for an auction
func (s *BiddingService) GetHighestBid(ctx context.Context, auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrValidation)
	}

	bid, err := s.repo.HighestAcceptedBid(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get highest bid for auction %s: %w", auctionID, err)
	}

	return bid, nil
}

func isTransient(err error) bool {
	return errors.Is(err, auctionerrors.ErrTransient)
}
