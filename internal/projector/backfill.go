package projector

import (
	"context"
	"fmt"
	"time"

	"auction-platform/internal/models"
	"auction-platform/internal/retry"
	"auction-platform/utils"
)

// CursorName is the projection_cursors row used by the backfill
const CursorName = "search.registry"

// Source is the registry query interface the backfill pulls from
type Source interface {
	// AuctionsSince returns auctions updated strictly after since, oldest update first.
	AuctionsSince(ctx context.Context, since time.Time) ([]models.Auction, error)
}

// Backfiller reconciles the read model with the registry
type Backfiller struct {
	store    Store
	proj     *Projector
	src      Source
	interval time.Duration
}

// NewBackfiller creates a Backfiller; interval is the retry period for
// failed pulls.
func NewBackfiller(store Store, proj *Projector, src Source, interval time.Duration) *Backfiller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Backfiller{store: store, proj: proj, src: src, interval: interval}
}

// Run pulls every auction updated after the stored cursor and applies it,
// advancing the cursor as it goes. With rebuild the read model is cleared
// first. Failed pulls are retried until they succeed or ctx is done.
func (b *Backfiller) Run(ctx context.Context, rebuild bool) (int, error) {
	if rebuild {
		if err := b.store.Clear(ctx); err != nil {
			return 0, fmt.Errorf("backfill: clear: %w", err)
		}
		utils.Info("backfill: read model cleared for rebuild", nil)
	}

	cursor, err := b.store.Cursor(ctx, CursorName)
	if err != nil {
		return 0, fmt.Errorf("backfill: load cursor: %w", err)
	}
	if count, err := b.store.Count(ctx); err == nil && count == 0 {
		// an empty read model always starts from the beginning
		cursor = time.Time{}
	}

	var batch []models.Auction
	err = retry.Forever(ctx, b.interval, func(ctx context.Context) error {
		var err error
		batch, err = b.src.AuctionsSince(ctx, cursor)
		return err
	}, func(err error, next time.Duration) {
		utils.Warn("backfill: registry pull failed, retrying", map[string]any{
			"error":    err.Error(),
			"retry_in": next.String(),
		})
	})
	if err != nil {
		return 0, fmt.Errorf("backfill: pull: %w", err)
	}

	applied := 0
	for _, a := range batch {
		if err := b.proj.ApplyAuction(ctx, a); err != nil {
			return applied, fmt.Errorf("backfill: apply %s: %w", a.ID, err)
		}
		if a.UpdatedAt.After(cursor) {
			cursor = a.UpdatedAt
			if err := b.store.SetCursor(ctx, CursorName, cursor); err != nil {
				return applied, fmt.Errorf("backfill: store cursor: %w", err)
			}
		}
		applied++
	}

	utils.Info("backfill: completed", map[string]any{
		"applied": applied,
		"cursor":  cursor.Format(time.RFC3339Nano),
	})
	return applied, nil
}

// Watch runs an incremental Run every period until ctx is done, so changes
// whose events were lost still reach the read model.
func (b *Backfiller) Watch(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := b.Run(ctx, false); err != nil && ctx.Err() == nil {
				utils.Error("backfill: resync failed", map[string]any{"error": err.Error()})
			}
		}
	}
}
