// Package events defines the lifecycle event contracts exchanged between the
// registry, the bid ledger, the sweep and the read-model projector, together
// with the at-least-once transports that carry them.
//
// Delivery is at-least-once and may be reordered across kinds, so every
// consumer must tolerate duplicates and out-of-order arrival.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"auction-platform/internal/models"
	"auction-platform/utils"
)

// Kind is the stable event-kind tag consumers dispatch on
type Kind string

const (
	KindAuctionCreated  Kind = "auction.created"
	KindAuctionUpdated  Kind = "auction.updated"
	KindAuctionDeleted  Kind = "auction.deleted"
	KindBidPlaced       Kind = "bid.placed"
	KindAuctionFinished Kind = "auction.finished"
)

// Envelope wraps every payload on the channel
type Envelope struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Key        string          `json:"key"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// AuctionCreated is published by the registry after an auction is stored
type AuctionCreated struct {
	ID           string                `json:"id"`
	Seller       string                `json:"seller"`
	Item         models.ItemAttributes `json:"item"`
	ReservePrice int                   `json:"reserve_price"`
	AuctionEnd   time.Time             `json:"auction_end"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// AuctionUpdated carries only the attributes that changed; nil means unchanged
type AuctionUpdated struct {
	ID        string    `json:"id"`
	Make      *string   `json:"make,omitempty"`
	Model     *string   `json:"model,omitempty"`
	Year      *int      `json:"year,omitempty"`
	Color     *string   `json:"color,omitempty"`
	Mileage   *int      `json:"mileage,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuctionDeleted is published when a seller removes an unfinished auction
type AuctionDeleted struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BidPlaced is published by the ledger for every recorded bid
type BidPlaced struct {
	ID        string           `json:"id"`
	AuctionID string           `json:"auction_id"`
	Bidder    string           `json:"bidder"`
	Amount    int              `json:"amount"`
	Status    models.BidStatus `json:"status"`
	BidTime   time.Time        `json:"bid_time"`
}

// AuctionFinished is published by the sweep exactly once per decided auction
// (and possibly redelivered)
type AuctionFinished struct {
	AuctionID string  `json:"auction_id"`
	ItemSold  bool    `json:"item_sold"`
	Winner    *string `json:"winner,omitempty"`
	Amount    *int    `json:"amount,omitempty"`
	Seller    string  `json:"seller"`
}

// New builds an envelope with a fresh id around payload.
func New(kind Kind, key, source string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", kind, err)
	}
	return Envelope{
		ID:         utils.GenerateID(),
		Kind:       kind,
		Key:        key,
		Source:     source,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

// Decode unmarshals the envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("events: decode %s %s: %w", env.Kind, env.ID, err)
	}
	return out, nil
}

// AuctionCreatedFrom maps a stored registry auction to its created event.
func AuctionCreatedFrom(a models.Auction) AuctionCreated {
	return AuctionCreated{
		ID:           a.ID,
		Seller:       a.Seller,
		Item:         a.Item,
		ReservePrice: a.ReservePrice,
		AuctionEnd:   a.AuctionEnd,
		UpdatedAt:    a.UpdatedAt,
	}
}
