package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Inbox remembers which events a consumer already processed
type Inbox interface {
	Processed(ctx context.Context, consumer, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, eventID string) error
}

// Idempotent wraps h so that an event id already processed by consumer is
// acknowledged without running h again. The mark is written only after h
// succeeds, so a crash in between causes a redelivery, never a loss; h must
// still be safe to re-run for that window.
func Idempotent(inbox Inbox, consumer string, h Handler) Handler {
	return func(ctx context.Context, env Envelope) error {
		done, err := inbox.Processed(ctx, consumer, env.ID)
		if err != nil {
			return fmt.Errorf("inbox lookup: %w", err)
		}
		if done {
			return nil
		}
		if err := h(ctx, env); err != nil {
			return err
		}
		if err := inbox.MarkProcessed(ctx, consumer, env.ID); err != nil {
			return fmt.Errorf("inbox mark: %w", err)
		}
		return nil
	}
}

// MemoryInbox is a process-local Inbox
type MemoryInbox struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemoryInbox creates an empty MemoryInbox
func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{seen: make(map[string]struct{})}
}

func (i *MemoryInbox) key(consumer, id string) string { return consumer + "|" + id }

func (i *MemoryInbox) Processed(_ context.Context, consumer, eventID string) (bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.seen[i.key(consumer, eventID)]
	return ok, nil
}

func (i *MemoryInbox) MarkProcessed(_ context.Context, consumer, eventID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.seen[i.key(consumer, eventID)] = struct{}{}
	return nil
}

// ProcessedEvent is the persisted inbox row
type ProcessedEvent struct {
	Consumer    string    `gorm:"primaryKey"`
	EventID     string    `gorm:"primaryKey"`
	ProcessedAt time.Time `gorm:"index"`
}

func (ProcessedEvent) TableName() string { return "processed_events" }

// GormInbox persists processed event ids
type GormInbox struct {
	db *gorm.DB
}

// NewGormInbox creates a GormInbox; the processed_events table must be migrated.
func NewGormInbox(db *gorm.DB) *GormInbox {
	return &GormInbox{db: db}
}

func (i *GormInbox) Processed(ctx context.Context, consumer, eventID string) (bool, error) {
	var count int64
	err := i.db.WithContext(ctx).
		Model(&ProcessedEvent{}).
		Where("consumer = ? AND event_id = ?", consumer, eventID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (i *GormInbox) MarkProcessed(ctx context.Context, consumer, eventID string) error {
	row := ProcessedEvent{Consumer: consumer, EventID: eventID, ProcessedAt: time.Now().UTC()}
	return i.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

// Prune removes inbox rows older than cutoff.
func (i *GormInbox) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := i.db.WithContext(ctx).Where("processed_at < ?", cutoff).Delete(&ProcessedEvent{})
	return res.RowsAffected, res.Error
}
