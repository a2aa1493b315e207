package helpers

import (
	"time"

	"auction-platform/internal/models"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string `json:"auction_id" binding:"required"`
	Amount    int    `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string           `json:"id"`
	AuctionID string           `json:"auction_id"`
	Bidder    string           `json:"bidder"`
	Amount    int              `json:"amount"`
	Status    models.BidStatus `json:"status"`
	BidTime   string           `json:"bid_time"`
}

// NewBidResponse maps a stored bid to its wire form
func NewBidResponse(bid models.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.ID,
		AuctionID: bid.AuctionID,
		Bidder:    bid.Bidder,
		Amount:    bid.Amount,
		Status:    bid.Status,
		BidTime:   bid.BidTime.UTC().Format(time.RFC3339Nano),
	}
}

// NewBidResponses maps bids in order; an empty input gives an empty, non-nil slice
func NewBidResponses(bids []models.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidResponse(b))
	}
	return out
}
