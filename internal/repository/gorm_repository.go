package repository

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

// GormRepo stores the ledger in a SQL database. Bid evaluation uses an
// optimistic version check on the ledger_auctions row instead of locks.
type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo creates a GormRepo over an already migrated database
func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

func (r *GormRepo) AddAuction(ctx context.Context, auction models.LedgerAuction) (bool, error) {
	if auction.ID == "" {
		return false, fmt.Errorf("add auction: %w - empty id", auctionerrors.ErrValidation)
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&auction)
	if res.Error != nil {
		return false, database.Classify("add auction "+auction.ID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) GetAuction(ctx context.Context, auctionID string) (models.LedgerAuction, error) {
	var a models.LedgerAuction
	if err := r.db.WithContext(ctx).First(&a, "id = ?", auctionID).Error; err != nil {
		return models.LedgerAuction{}, database.Classify("get auction "+auctionID, err)
	}
	return a, nil
}

func (r *GormRepo) RemoveAuction(ctx context.Context, auctionID string) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Bid{}).Where("auction_id = ?", auctionID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		res := tx.Where("id = ? AND finished = ?", auctionID, false).Delete(&models.LedgerAuction{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, database.Classify("remove auction "+auctionID, err)
	}
	return removed, nil
}

// RecordBid reads the auction and its highest bid, inserts the built bid and
// bumps the auction version, all in one transaction. A concurrent writer
// that bumped the version first makes this call fail with ErrConflict.
func (r *GormRepo) RecordBid(ctx context.Context, auctionID string, build BidBuilder) (models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var auction models.LedgerAuction
		if err := tx.First(&auction, "id = ?", auctionID).Error; err != nil {
			return err
		}

		var highest *models.Bid
		h, err := highestAccepted(tx, auctionID)
		switch {
		case err == nil:
			highest = &h
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		bid, err = build(auction, highest)
		if err != nil {
			return err
		}
		if err := tx.Create(&bid).Error; err != nil {
			return err
		}

		res := tx.Model(&models.LedgerAuction{}).
			Where("id = ? AND version = ?", auction.ID, auction.Version).
			Update("version", gorm.Expr("version + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return auctionerrors.ErrConflict
		}
		return nil
	})
	if err != nil {
		return models.Bid{}, database.Classify("record bid for auction "+auctionID, err)
	}
	return bid, nil
}

func highestAccepted(tx *gorm.DB, auctionID string) (models.Bid, error) {
	var b models.Bid
	err := tx.Where("auction_id = ? AND status IN ?", auctionID,
		[]models.BidStatus{models.BidAccepted, models.BidAcceptedBelowReserve}).
		Order("amount DESC").
		Order("bid_time ASC").
		First(&b).Error
	return b, err
}

func (r *GormRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("bid_time DESC").
		Find(&bids).Error
	if err != nil {
		return nil, database.Classify("get bids for auction "+auctionID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return bids, nil
}

func (r *GormRepo) HighestAcceptedBid(ctx context.Context, auctionID string) (models.Bid, error) {
	b, err := highestAccepted(r.db.WithContext(ctx), auctionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return models.Bid{}, database.Classify("get highest bid for auction "+auctionID, err)
	}
	return b, nil
}

func (r *GormRepo) ExpiredUnfinished(ctx context.Context, now time.Time) ([]models.LedgerAuction, error) {
	var out []models.LedgerAuction
	err := r.db.WithContext(ctx).
		Where("auction_end < ? AND finished = ?", now, false).
		Order("auction_end ASC").
		Find(&out).Error
	if err != nil {
		return nil, database.Classify("list expired auctions", err)
	}
	return out, nil
}

// MarkFinished is a conditional update: only a row still unfinished is
// changed, so a single caller wins even across processes.
func (r *GormRepo) MarkFinished(ctx context.Context, auctionID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerAuction{}).
		Where("id = ? AND finished = ?", auctionID, false).
		Updates(map[string]interface{}{
			"finished":    true,
			"finished_at": at.UTC(),
			"version":     gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, database.Classify("mark finished "+auctionID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) FinishedUnpublished(ctx context.Context, finishedBefore time.Time) ([]models.LedgerAuction, error) {
	var out []models.LedgerAuction
	err := r.db.WithContext(ctx).
		Where("finished = ? AND finish_published = ? AND finished_at < ?", true, false, finishedBefore.UTC()).
		Order("auction_end ASC").
		Find(&out).Error
	if err != nil {
		return nil, database.Classify("list unpublished finished auctions", err)
	}
	return out, nil
}

func (r *GormRepo) MarkFinishPublished(ctx context.Context, auctionID string) error {
	err := r.db.WithContext(ctx).
		Model(&models.LedgerAuction{}).
		Where("id = ?", auctionID).
		Update("finish_published", true).Error
	return database.Classify("mark finish published "+auctionID, err)
}
