package projector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/database"
	"auction-platform/internal/models"
)

// GormStore keeps the read model in the search_items and
// projection_cursors tables
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore over a migrated database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context, id string) (models.Item, bool, error) {
	var it models.Item
	err := s.db.WithContext(ctx).First(&it, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Item{}, false, nil
	}
	if err != nil {
		return models.Item{}, false, database.Classify("load item "+id, err)
	}
	return it, true, nil
}

func (s *GormStore) Put(ctx context.Context, item models.Item, prev int64) error {
	db := s.db.WithContext(ctx)
	if prev == 0 {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&item)
		if res.Error != nil {
			return database.Classify("insert item "+item.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("insert item %s: %w", item.ID, auctionerrors.ErrConflict)
		}
		return nil
	}

	res := db.Model(&models.Item{}).
		Where("id = ? AND revision = ?", item.ID, prev).
		Updates(itemColumns(item))
	if res.Error != nil {
		return database.Classify("update item "+item.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update item %s: %w", item.ID, auctionerrors.ErrConflict)
	}
	return nil
}

func itemColumns(it models.Item) map[string]any {
	return map[string]any{
		"seller":           it.Seller,
		"make":             it.Make,
		"model":            it.Model,
		"year":             it.Year,
		"color":            it.Color,
		"mileage":          it.Mileage,
		"image_url":        it.ImageURL,
		"reserve_price":    it.ReservePrice,
		"auction_end":      it.AuctionEnd,
		"status":           it.Status,
		"winner":           it.Winner,
		"sold_amount":      it.SoldAmount,
		"current_high_bid": it.CurrentHighBid,
		"updated_at":       it.UpdatedAt,
		"deleted":          it.Deleted,
		"versions":         it.Versions,
		"revision":         it.Revision,
	}
}

func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Item{}).Count(&n).Error; err != nil {
		return 0, database.Classify("count items", err)
	}
	return n, nil
}

func (s *GormStore) Cursor(ctx context.Context, name string) (time.Time, error) {
	var c models.ProjectionCursor
	err := s.db.WithContext(ctx).First(&c, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, database.Classify("load cursor "+name, err)
	}
	return c.UpdatedAt.UTC(), nil
}

func (s *GormStore) SetCursor(ctx context.Context, name string, at time.Time) error {
	c := models.ProjectionCursor{Name: name, UpdatedAt: at.UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).
		Create(&c).Error
	return database.Classify("store cursor "+name, err)
}

func (s *GormStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Item{}).Error; err != nil {
			return database.Classify("clear items", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ProjectionCursor{}).Error; err != nil {
			return database.Classify("clear cursors", err)
		}
		return nil
	})
}
