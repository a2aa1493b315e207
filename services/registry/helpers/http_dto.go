package helpers

import (
	"time"

	"auction-platform/internal/models"
	"auction-platform/internal/registry"
)

// Request DTOs; responses are models.Auction as stored
type CreateAuctionRequest struct {
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Color        string    `json:"color"`
	Mileage      int       `json:"mileage"`
	ImageURL     string    `json:"image_url"`
	ReservePrice int       `json:"reserve_price"`
	AuctionEnd   time.Time `json:"auction_end" binding:"required"`
}

type UpdateAuctionRequest struct {
	Make     *string `json:"make"`
	Model    *string `json:"model"`
	Year     *int    `json:"year"`
	Color    *string `json:"color"`
	Mileage  *int    `json:"mileage"`
	ImageURL *string `json:"image_url"`
}

func (r CreateAuctionRequest) Input() registry.CreateInput {
	return registry.CreateInput{
		Item: models.ItemAttributes{
			Make:     r.Make,
			Model:    r.Model,
			Year:     r.Year,
			Color:    r.Color,
			Mileage:  r.Mileage,
			ImageURL: r.ImageURL,
		},
		ReservePrice: r.ReservePrice,
		AuctionEnd:   r.AuctionEnd,
	}
}

func (r UpdateAuctionRequest) Input() registry.UpdateInput {
	return registry.UpdateInput{
		Make:     r.Make,
		Model:    r.Model,
		Year:     r.Year,
		Color:    r.Color,
		Mileage:  r.Mileage,
		ImageURL: r.ImageURL,
	}
}
