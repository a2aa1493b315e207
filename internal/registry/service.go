// Package registry owns the authoritative auction records. Every mutation is
// committed to the store first and then announced on the event channel.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/events"
	"auction-platform/internal/models"
	"auction-platform/internal/retry"
	"auction-platform/utils"
)

// Source is the envelope source for registry events
const Source = "registry"

// saveAttempts bounds optimistic retries of one mutation
const saveAttempts = 5

// CreateInput holds the seller-supplied terms of a new auction
type CreateInput struct {
	Item         models.ItemAttributes
	ReservePrice int
	AuctionEnd   time.Time
}

// UpdateInput holds a partial item update; nil fields are left unchanged
type UpdateInput struct {
	Make     *string
	Model    *string
	Year     *int
	Color    *string
	Mileage  *int
	ImageURL *string
}

// Service implements the registry operations
type Service struct {
	store Store
	pub   events.Publisher
	now   func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a registry Service
func NewService(store Store, pub events.Publisher, opts ...Option) *Service {
	s := &Service{store: store, pub: pub, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new active auction for seller and publishes AuctionCreated.
func (s *Service) Create(ctx context.Context, seller string, in CreateInput) (models.Auction, error) {
	now := s.clock()
	if err := validateCreate(seller, in, now); err != nil {
		return models.Auction{}, err
	}

	a := models.Auction{
		ID:           utils.GenerateID(),
		Seller:       seller,
		Item:         in.Item,
		ReservePrice: in.ReservePrice,
		AuctionEnd:   in.AuctionEnd.UTC().Truncate(time.Microsecond),
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return models.Auction{}, fmt.Errorf("registry: %w", err)
	}

	s.publish(ctx, events.KindAuctionCreated, a.ID, events.AuctionCreatedFrom(a))
	return a, nil
}

// Update applies a partial item update on behalf of caller, who must be the
// seller. An update that changes nothing is not published.
func (s *Service) Update(ctx context.Context, caller, id string, in UpdateInput) (models.Auction, error) {
	if caller == "" || id == "" {
		return models.Auction{}, fmt.Errorf("registry: %w - missing caller or auction id", auctionerrors.ErrValidation)
	}
	if err := validateUpdate(in); err != nil {
		return models.Auction{}, err
	}

	var changed events.AuctionUpdated
	a, mutated, err := s.mutate(ctx, id, func(a *models.Auction) (bool, error) {
		if a.Seller != caller {
			return false, fmt.Errorf("registry: %w - %s is not the seller of auction %s", auctionerrors.ErrForbidden, caller, id)
		}
		changed = applyUpdate(&a.Item, in)
		return changed != (events.AuctionUpdated{}), nil
	})
	if err != nil {
		return models.Auction{}, err
	}
	if mutated {
		changed.ID = a.ID
		changed.UpdatedAt = a.UpdatedAt
		s.publish(ctx, events.KindAuctionUpdated, a.ID, changed)
	}
	return a, nil
}

// Delete removes an unfinished auction on behalf of its seller.
func (s *Service) Delete(ctx context.Context, caller, id string) error {
	if caller == "" || id == "" {
		return fmt.Errorf("registry: %w - missing caller or auction id", auctionerrors.ErrValidation)
	}

	var deletedAt time.Time
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		a, err := s.store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("registry: %w", err)
		}
		if a.Seller != caller {
			return fmt.Errorf("registry: %w - %s is not the seller of auction %s", auctionerrors.ErrForbidden, caller, id)
		}
		if a.Status == models.StatusFinished {
			return fmt.Errorf("registry: delete %s: %w: %w", id, auctionerrors.ErrConflict, errAuctionFinished)
		}
		if err := s.store.Delete(ctx, id, a.UpdatedAt); err != nil {
			return fmt.Errorf("registry: %w", err)
		}
		deletedAt = s.next(a.UpdatedAt)
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.KindAuctionDeleted, id, events.AuctionDeleted{ID: id, UpdatedAt: deletedAt})
	return nil
}

// Get returns one auction.
func (s *Service) Get(ctx context.Context, id string) (models.Auction, error) {
	if id == "" {
		return models.Auction{}, fmt.Errorf("registry: %w - empty auction id", auctionerrors.ErrValidation)
	}
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Auction{}, fmt.Errorf("registry: %w", err)
	}
	return a, nil
}

// List returns auctions updated strictly after since, in update order. A
// zero since lists everything.
func (s *Service) List(ctx context.Context, since time.Time) ([]models.Auction, error) {
	out, err := s.store.List(ctx, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return out, nil
}

// AuctionsSince satisfies the projector's backfill source in-process.
func (s *Service) AuctionsSince(ctx context.Context, since time.Time) ([]models.Auction, error) {
	return s.List(ctx, since)
}

// GetAuction satisfies the ledger's registry resolver in-process.
func (s *Service) GetAuction(ctx context.Context, id string) (models.Auction, error) {
	return s.Get(ctx, id)
}

// mutate runs fn on the stored auction and saves it with a strictly newer
// UpdatedAt, retrying when a concurrent writer got in first.
func (s *Service) mutate(ctx context.Context, id string, fn func(a *models.Auction) (bool, error)) (models.Auction, bool, error) {
	var (
		out     models.Auction
		changed bool
	)
	err := s.withConflictRetry(ctx, func(ctx context.Context) error {
		a, err := s.store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("registry: %w", err)
		}
		prev := a.UpdatedAt
		changed, err = fn(&a)
		if err != nil || !changed {
			out = a
			return err
		}
		a.UpdatedAt = s.next(prev)
		if err := s.store.Save(ctx, a, prev); err != nil {
			return fmt.Errorf("registry: %w", err)
		}
		out = a
		return nil
	})
	return out, changed, err
}

func (s *Service) withConflictRetry(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Bounded(ctx, saveAttempts, 5*time.Millisecond, isStoreConflict, op)
}

// errAuctionFinished marks the Conflict returned for deleting a finished auction
var errAuctionFinished = errors.New("auction is finished")

// isStoreConflict matches lost compare-and-swap races and store hiccups, not
// a refusal to delete a finished auction
func isStoreConflict(err error) bool {
	if errors.Is(err, errAuctionFinished) {
		return false
	}
	return errors.Is(err, auctionerrors.ErrConflict) || errors.Is(err, auctionerrors.ErrTransient)
}

// clock returns the current time at the precision every store keeps
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// next returns a timestamp strictly after prev
func (s *Service) next(prev time.Time) time.Time {
	now := s.clock()
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func (s *Service) publish(ctx context.Context, kind events.Kind, id string, payload any) {
	if _, err := events.PublishEvent(ctx, s.pub, kind, id, Source, payload); err != nil {
		// committed already; projector backfill picks the change up
		utils.Error("registry: failed to publish event", map[string]any{
			"kind":       kind,
			"auction_id": id,
			"error":      err.Error(),
		})
	}
}

func validateCreate(seller string, in CreateInput, now time.Time) error {
	switch {
	case seller == "":
		return fmt.Errorf("registry: %w - missing seller", auctionerrors.ErrValidation)
	case in.Item.Make == "" || in.Item.Model == "":
		return fmt.Errorf("registry: %w - make and model are required", auctionerrors.ErrValidation)
	case in.Item.Year <= 0 || in.Item.Mileage < 0:
		return fmt.Errorf("registry: %w - invalid year or mileage", auctionerrors.ErrValidation)
	case in.ReservePrice < 0:
		return fmt.Errorf("registry: %w - negative reserve price", auctionerrors.ErrValidation)
	case !in.AuctionEnd.After(now):
		return fmt.Errorf("registry: %w - auction end must be in the future", auctionerrors.ErrValidation)
	}
	return nil
}

func validateUpdate(in UpdateInput) error {
	switch {
	case in.Make != nil && *in.Make == "", in.Model != nil && *in.Model == "":
		return fmt.Errorf("registry: %w - make and model cannot be cleared", auctionerrors.ErrValidation)
	case in.Year != nil && *in.Year <= 0, in.Mileage != nil && *in.Mileage < 0:
		return fmt.Errorf("registry: %w - invalid year or mileage", auctionerrors.ErrValidation)
	}
	return nil
}

// applyUpdate writes the changed fields into item and returns them as an event
func applyUpdate(item *models.ItemAttributes, in UpdateInput) events.AuctionUpdated {
	var ev events.AuctionUpdated
	if in.Make != nil && *in.Make != item.Make {
		item.Make = *in.Make
		ev.Make = in.Make
	}
	if in.Model != nil && *in.Model != item.Model {
		item.Model = *in.Model
		ev.Model = in.Model
	}
	if in.Year != nil && *in.Year != item.Year {
		item.Year = *in.Year
		ev.Year = in.Year
	}
	if in.Color != nil && *in.Color != item.Color {
		item.Color = *in.Color
		ev.Color = in.Color
	}
	if in.Mileage != nil && *in.Mileage != item.Mileage {
		item.Mileage = *in.Mileage
		ev.Mileage = in.Mileage
	}
	if in.ImageURL != nil && *in.ImageURL != item.ImageURL {
		item.ImageURL = *in.ImageURL
		ev.ImageURL = in.ImageURL
	}
	return ev
}
