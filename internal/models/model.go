package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	StatusActive   AuctionStatus = "Active"
	StatusFinished AuctionStatus = "Finished"
)

// BidStatus is the decision recorded for a bid at submission time
type BidStatus string

const (
	BidAccepted             BidStatus = "Accepted"
	BidAcceptedBelowReserve BidStatus = "AcceptedBelowReserve"
	BidTooLow               BidStatus = "TooLow"
	BidFinished             BidStatus = "Finished"
)

// Competitive reports whether the bid counts towards the current highest bid.
func (s BidStatus) Competitive() bool {
	return s == BidAccepted || s == BidAcceptedBelowReserve
}

// ItemAttributes describes the vehicle being auctioned
type ItemAttributes struct {
	Make     string `json:"make"`
	Model    string `json:"model"`
	Year     int    `json:"year"`
	Color    string `json:"color"`
	Mileage  int    `json:"mileage"`
	ImageURL string `json:"image_url"`
}

// Auction is the registry's authoritative record
type Auction struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	Seller         string         `json:"seller" gorm:"index"`
	Item           ItemAttributes `json:"item" gorm:"embedded;embeddedPrefix:item_"`
	ReservePrice   int            `json:"reserve_price"`
	AuctionEnd     time.Time      `json:"auction_end"`
	Status         AuctionStatus  `json:"status"`
	Winner         string         `json:"winner,omitempty"`
	SoldAmount     int            `json:"sold_amount,omitempty"`
	CurrentHighBid int            `json:"current_high_bid,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"index;autoUpdateTime:false"`
}

func (Auction) TableName() string { return "registry_auctions" }

// LedgerAuction is the bid ledger's copy of the auction terms
type LedgerAuction struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	Seller          string    `json:"seller"`
	ReservePrice    int       `json:"reserve_price"`
	AuctionEnd      time.Time `json:"auction_end" gorm:"index"`
	Finished        bool      `json:"finished" gorm:"index"`
	FinishedAt      time.Time `json:"finished_at"`
	FinishPublished bool      `json:"finish_published"`
	Version         int64     `json:"version"`
}

func (LedgerAuction) TableName() string { return "ledger_auctions" }

// Bid represents a user's bid on an auction
type Bid struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	AuctionID string    `json:"auction_id" gorm:"index"`
	Bidder    string    `json:"bidder" gorm:"index"`
	Amount    int       `json:"amount"`
	BidTime   time.Time `json:"bid_time"`
	Status    BidStatus `json:"status"`
}

// FieldVersions records the logical version (unix nanos) that last wrote each read-model field
type FieldVersions map[string]int64

// Item is the denormalized read-model copy of an auction
type Item struct {
	ID             string                            `json:"id" gorm:"primaryKey"`
	Seller         string                            `json:"seller"`
	Make           string                            `json:"make"`
	Model          string                            `json:"model"`
	Year           int                               `json:"year"`
	Color          string                            `json:"color"`
	Mileage        int                               `json:"mileage"`
	ImageURL       string                            `json:"image_url"`
	ReservePrice   int                               `json:"reserve_price"`
	AuctionEnd     time.Time                         `json:"auction_end"`
	Status         AuctionStatus                     `json:"status"`
	Winner         string                            `json:"winner,omitempty"`
	SoldAmount     int                               `json:"sold_amount,omitempty"`
	CurrentHighBid int                               `json:"current_high_bid,omitempty"`
	UpdatedAt      time.Time                         `json:"updated_at" gorm:"index;autoUpdateTime:false"`
	Deleted        bool                              `json:"-"`
	Versions       datatypes.JSONType[FieldVersions] `json:"-"`
	Revision       int64                             `json:"-"`
}

func (Item) TableName() string { return "search_items" }

// ProjectionCursor stores how far a projection has caught up with its source
type ProjectionCursor struct {
	Name      string    `gorm:"primaryKey"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (ProjectionCursor) TableName() string { return "projection_cursors" }
