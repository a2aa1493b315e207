// Package projector maintains the search read model. Events may arrive
// duplicated or out of order, so every field remembers the logical version
// that last wrote it and only strictly newer writes replace it. Created and
// Updated therefore commute, and re-applying any event changes nothing.
package projector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/events"
	"auction-platform/internal/models"
	"auction-platform/internal/retry"
)

// ConsumerGroup is the channel consumer group of the projector
const ConsumerGroup = "search"

// applyAttempts bounds optimistic retries of one apply
const applyAttempts = 10

// Field names tracked in models.Item.Versions
const (
	fieldSeller       = "seller"
	fieldMake         = "make"
	fieldModel        = "model"
	fieldYear         = "year"
	fieldColor        = "color"
	fieldMileage      = "mileage"
	fieldImageURL     = "image_url"
	fieldReservePrice = "reserve_price"
	fieldAuctionEnd   = "auction_end"
)

// Projector applies lifecycle events to the read model
type Projector struct {
	store Store
	now   func() time.Time
}

// New creates a Projector over store
func New(store Store) *Projector {
	return &Projector{store: store, now: time.Now}
}

// Handler returns the projector's event handler.
func (p *Projector) Handler() events.Handler {
	return events.NewDispatcher(ConsumerGroup).
		On(events.KindAuctionCreated, p.onCreated).
		On(events.KindAuctionUpdated, p.onUpdated).
		On(events.KindAuctionDeleted, p.onDeleted).
		On(events.KindAuctionFinished, p.onFinished).
		On(events.KindBidPlaced, p.onBidPlaced).
		Handle
}

// Apply applies one envelope.
func (p *Projector) Apply(ctx context.Context, env events.Envelope) error {
	return p.Handler()(ctx, env)
}

// Get returns a live item; deleted and not yet created items are NotFound.
func (p *Projector) Get(ctx context.Context, id string) (models.Item, error) {
	if id == "" {
		return models.Item{}, fmt.Errorf("projector: %w - empty item id", auctionerrors.ErrValidation)
	}
	it, ok, err := p.store.Load(ctx, id)
	if err != nil {
		return models.Item{}, fmt.Errorf("projector: %w", err)
	}
	if !ok || it.Deleted || !visible(it) {
		return models.Item{}, fmt.Errorf("projector: item %s: %w", id, auctionerrors.ErrNotFound)
	}
	return it, nil
}

// ApplyAuction merges a registry record as if it were a created event
// carrying the record's updatedAt, plus its finish and high-bid state.
func (p *Projector) ApplyAuction(ctx context.Context, a models.Auction) error {
	version := a.UpdatedAt.UnixNano()
	return p.upsert(ctx, a.ID, func(it *models.Item, v models.FieldVersions) bool {
		changed := mergeCreated(it, v, version, events.AuctionCreatedFrom(a))
		if a.Status == models.StatusFinished {
			changed = finish(it, a.Winner != "", a.Winner, a.SoldAmount) || changed
		}
		return raiseHighBid(it, a.CurrentHighBid) || changed
	})
}

func (p *Projector) onCreated(ctx context.Context, env events.Envelope) error {
	ev, err := events.Decode[events.AuctionCreated](env)
	if err != nil {
		return err
	}
	version := p.version(ev.UpdatedAt, env)
	return p.upsert(ctx, ev.ID, func(it *models.Item, v models.FieldVersions) bool {
		return mergeCreated(it, v, version, ev)
	})
}

func (p *Projector) onUpdated(ctx context.Context, env events.Envelope) error {
	ev, err := events.Decode[events.AuctionUpdated](env)
	if err != nil {
		return err
	}
	version := p.version(ev.UpdatedAt, env)
	return p.upsert(ctx, ev.ID, func(it *models.Item, v models.FieldVersions) bool {
		changed := false
		if ev.Make != nil {
			changed = setField(v, fieldMake, version, func() { it.Make = *ev.Make }) || changed
		}
		if ev.Model != nil {
			changed = setField(v, fieldModel, version, func() { it.Model = *ev.Model }) || changed
		}
		if ev.Year != nil {
			changed = setField(v, fieldYear, version, func() { it.Year = *ev.Year }) || changed
		}
		if ev.Color != nil {
			changed = setField(v, fieldColor, version, func() { it.Color = *ev.Color }) || changed
		}
		if ev.Mileage != nil {
			changed = setField(v, fieldMileage, version, func() { it.Mileage = *ev.Mileage }) || changed
		}
		if ev.ImageURL != nil {
			changed = setField(v, fieldImageURL, version, func() { it.ImageURL = *ev.ImageURL }) || changed
		}
		return touch(it, ev.UpdatedAt) || changed
	})
}

// onDeleted leaves a tombstone so that late Created or Updated events for
// the same id cannot bring the item back
func (p *Projector) onDeleted(ctx context.Context, env events.Envelope) error {
	ev, err := events.Decode[events.AuctionDeleted](env)
	if err != nil {
		return err
	}
	return p.upsertTombstone(ctx, ev.ID, ev.UpdatedAt)
}

func (p *Projector) onFinished(ctx context.Context, env events.Envelope) error {
	ev, err := events.Decode[events.AuctionFinished](env)
	if err != nil {
		return err
	}
	winner, amount := "", 0
	if ev.Winner != nil {
		winner = *ev.Winner
	}
	if ev.Amount != nil {
		amount = *ev.Amount
	}
	return p.upsert(ctx, ev.AuctionID, func(it *models.Item, _ models.FieldVersions) bool {
		changed := false
		if it.Seller == "" && ev.Seller != "" {
			it.Seller = ev.Seller
			changed = true
		}
		return finish(it, ev.ItemSold, winner, amount) || changed
	})
}

func (p *Projector) onBidPlaced(ctx context.Context, env events.Envelope) error {
	ev, err := events.Decode[events.BidPlaced](env)
	if err != nil {
		return err
	}
	if !ev.Status.Competitive() {
		return nil
	}
	return p.upsert(ctx, ev.AuctionID, func(it *models.Item, _ models.FieldVersions) bool {
		return raiseHighBid(it, ev.Amount)
	})
}

// version picks the logical version of an event: its updatedAt, else the
// time it was published, else when it arrived here
func (p *Projector) version(updatedAt time.Time, env events.Envelope) int64 {
	switch {
	case !updatedAt.IsZero():
		return updatedAt.UnixNano()
	case !env.OccurredAt.IsZero():
		return env.OccurredAt.UnixNano()
	default:
		return p.now().UnixNano()
	}
}

// upsert runs merge on the stored item (or a fresh one) and writes the result
// if it changed. Tombstoned items are left alone. Lost races are retried.
func (p *Projector) upsert(ctx context.Context, id string, merge func(it *models.Item, v models.FieldVersions) bool) error {
	if id == "" {
		return fmt.Errorf("projector: %w - event without auction id", auctionerrors.ErrValidation)
	}
	return p.withRetry(ctx, func(ctx context.Context) error {
		it, ok, err := p.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if it.Deleted {
			return nil
		}
		if !ok {
			it = models.Item{ID: id, Status: models.StatusActive}
		}
		prev := it.Revision
		v := it.Versions.Data()
		if v == nil {
			v = models.FieldVersions{}
		}
		if !merge(&it, v) {
			return nil
		}
		it.Versions = datatypes.NewJSONType(v)
		it.Revision = prev + 1
		return p.store.Put(ctx, it, prev)
	})
}

func (p *Projector) upsertTombstone(ctx context.Context, id string, at time.Time) error {
	return p.withRetry(ctx, func(ctx context.Context) error {
		it, ok, err := p.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if it.Deleted {
			return nil
		}
		if !ok {
			it = models.Item{ID: id, Versions: datatypes.NewJSONType(models.FieldVersions{})}
		}
		prev := it.Revision
		it.Deleted = true
		touch(&it, at)
		it.Revision = prev + 1
		return p.store.Put(ctx, it, prev)
	})
}

func (p *Projector) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	err := retry.Bounded(ctx, applyAttempts, time.Millisecond, func(err error) bool {
		return errors.Is(err, auctionerrors.ErrConflict)
	}, op)
	if err != nil {
		return fmt.Errorf("projector: %w", err)
	}
	return nil
}

func mergeCreated(it *models.Item, v models.FieldVersions, version int64, ev events.AuctionCreated) bool {
	changed := setField(v, fieldSeller, version, func() { it.Seller = ev.Seller })
	changed = setField(v, fieldMake, version, func() { it.Make = ev.Item.Make }) || changed
	changed = setField(v, fieldModel, version, func() { it.Model = ev.Item.Model }) || changed
	changed = setField(v, fieldYear, version, func() { it.Year = ev.Item.Year }) || changed
	changed = setField(v, fieldColor, version, func() { it.Color = ev.Item.Color }) || changed
	changed = setField(v, fieldMileage, version, func() { it.Mileage = ev.Item.Mileage }) || changed
	changed = setField(v, fieldImageURL, version, func() { it.ImageURL = ev.Item.ImageURL }) || changed
	changed = setField(v, fieldReservePrice, version, func() { it.ReservePrice = ev.ReservePrice }) || changed
	changed = setField(v, fieldAuctionEnd, version, func() { it.AuctionEnd = ev.AuctionEnd.UTC() }) || changed
	return touch(it, ev.UpdatedAt) || changed
}

// setField runs apply and records version if version is newer than the
// field's stored version
func setField(v models.FieldVersions, field string, version int64, apply func()) bool {
	if current, ok := v[field]; ok && version <= current {
		return false
	}
	apply()
	v[field] = version
	return true
}

// touch advances UpdatedAt; it never moves backwards
func touch(it *models.Item, at time.Time) bool {
	if at.IsZero() || !at.After(it.UpdatedAt) {
		return false
	}
	it.UpdatedAt = at.UTC()
	return true
}

// finish is sticky: once Finished, later finish events change nothing
func finish(it *models.Item, sold bool, winner string, amount int) bool {
	if it.Status == models.StatusFinished {
		return false
	}
	it.Status = models.StatusFinished
	if sold {
		it.Winner = winner
		it.SoldAmount = amount
	}
	return true
}

func raiseHighBid(it *models.Item, amount int) bool {
	if amount <= it.CurrentHighBid {
		return false
	}
	it.CurrentHighBid = amount
	return true
}

// visible reports whether the item's creation has been seen
func visible(it models.Item) bool {
	_, ok := it.Versions.Data()[fieldSeller]
	return ok
}

func cloneVersions(j datatypes.JSONType[models.FieldVersions]) datatypes.JSONType[models.FieldVersions] {
	src := j.Data()
	dst := make(models.FieldVersions, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return datatypes.NewJSONType(dst)
}
