package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/database"
	"auction-platform/internal/models"
)

// GormStore keeps registry auctions in the registry_auctions table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore over a migrated database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, auction models.Auction) error {
	err := s.db.WithContext(ctx).Create(&auction).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("create auction %s: %w", auction.ID, auctionerrors.ErrAlreadyExists)
	}
	return database.Classify("create auction "+auction.ID, err)
}

func (s *GormStore) Get(ctx context.Context, id string) (models.Auction, error) {
	var a models.Auction
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return models.Auction{}, database.Classify("get auction "+id, err)
	}
	return a, nil
}

func (s *GormStore) Save(ctx context.Context, auction models.Auction, prev time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ? AND updated_at = ?", auction.ID, prev).
		Updates(columns(auction))
	if res.Error != nil {
		return database.Classify("save auction "+auction.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missingOrConflict(ctx, "save auction", auction.ID)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string, prev time.Time) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND updated_at = ?", id, prev).
		Delete(&models.Auction{})
	if res.Error != nil {
		return database.Classify("delete auction "+id, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missingOrConflict(ctx, "delete auction", id)
	}
	return nil
}

func columns(a models.Auction) map[string]any {
	return map[string]any{
		"seller":           a.Seller,
		"item_make":        a.Item.Make,
		"item_model":       a.Item.Model,
		"item_year":        a.Item.Year,
		"item_color":       a.Item.Color,
		"item_mileage":     a.Item.Mileage,
		"item_image_url":   a.Item.ImageURL,
		"reserve_price":    a.ReservePrice,
		"auction_end":      a.AuctionEnd,
		"status":           a.Status,
		"winner":           a.Winner,
		"sold_amount":      a.SoldAmount,
		"current_high_bid": a.CurrentHighBid,
		"updated_at":       a.UpdatedAt,
	}
}

// missingOrConflict explains a conditional write that touched no row
func (s *GormStore) missingOrConflict(ctx context.Context, op, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Auction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return database.Classify(op+" "+id, err)
	}
	if count == 0 {
		return fmt.Errorf("%s %s: %w", op, id, auctionerrors.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, id, auctionerrors.ErrConflict)
}

func (s *GormStore) List(ctx context.Context, since time.Time) ([]models.Auction, error) {
	var out []models.Auction
	err := s.db.WithContext(ctx).
		Where("updated_at > ?", since).
		Order("updated_at ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, database.Classify("list auctions", err)
	}
	return out, nil
}
