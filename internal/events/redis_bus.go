package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"auction-platform/internal/auctionerrors"
	"auction-platform/utils"
)

const envelopeField = "envelope"

// RedisConfig configures the redis streams transport
type RedisConfig struct {
	Addr     string
	Stream   string
	Consumer string
	// MaxLen caps the stream length (approximate trimming); zero keeps everything.
	MaxLen int64
	// ClaimIdle is how long a pending entry may stay unacknowledged before
	// another consumer of the group claims it.
	ClaimIdle time.Duration
	Block     time.Duration
}

// RedisBus carries envelopes on a redis stream. Consumer groups give each
// subscriber group its own cursor; entries are acknowledged only after the
// handler succeeds, and idle pending entries are re-claimed, giving
// at-least-once delivery across process restarts.
type RedisBus struct {
	rdb goredis.UniversalClient
	cfg RedisConfig
}

// NewRedisBus connects to redis and verifies the connection.
func NewRedisBus(ctx context.Context, cfg RedisConfig) (*RedisBus, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("redis bus: missing address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisBusWithClient(rdb, cfg), nil
}

// NewRedisBusWithClient wraps an existing client.
func NewRedisBusWithClient(rdb goredis.UniversalClient, cfg RedisConfig) *RedisBus {
	if cfg.Stream == "" {
		cfg.Stream = "auction-events"
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "consumer-" + utils.GenerateID()
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = 30 * time.Second
	}
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}
	return &RedisBus{rdb: rdb, cfg: cfg}
}

// Publish appends env to the stream.
func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("redis bus: marshal envelope: %w", err)
	}
	args := &goredis.XAddArgs{
		Stream: b.cfg.Stream,
		Values: map[string]interface{}{envelopeField: raw},
	}
	if b.cfg.MaxLen > 0 {
		args.MaxLen = b.cfg.MaxLen
		args.Approx = true
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis bus: xadd: %w: %w", auctionerrors.ErrTransient, err)
	}
	return nil
}

// Subscribe creates the consumer group if needed and starts delivering.
func (b *RedisBus) Subscribe(ctx context.Context, group string, handler Handler) error {
	err := b.rdb.XGroupCreateMkStream(ctx, b.cfg.Stream, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redis bus: create group %s: %w", group, err)
	}

	go b.loop(ctx, group, handler)
	return nil
}

func (b *RedisBus) loop(ctx context.Context, group string, handler Handler) {
	lastClaim := time.Now()
	for {
		if ctx.Err() != nil {
			return
		}

		if time.Since(lastClaim) >= b.cfg.ClaimIdle {
			b.claimIdle(ctx, group, handler)
			lastClaim = time.Now()
		}

		streams, err := b.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    group,
			Consumer: b.cfg.Consumer,
			Streams:  []string{b.cfg.Stream, ">"},
			Count:    32,
			Block:    b.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) || ctx.Err() != nil {
				continue
			}
			utils.Warn("redis bus: read failed", map[string]any{"group": group, "error": err.Error()})
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				b.deliver(ctx, group, msg, handler)
			}
		}
	}
}

// claimIdle takes over entries other consumers read but never acknowledged.
func (b *RedisBus) claimIdle(ctx context.Context, group string, handler Handler) {
	start := "0-0"
	for {
		msgs, next, err := b.rdb.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
			Stream:   b.cfg.Stream,
			Group:    group,
			Consumer: b.cfg.Consumer,
			MinIdle:  b.cfg.ClaimIdle,
			Start:    start,
			Count:    32,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				utils.Warn("redis bus: autoclaim failed", map[string]any{"group": group, "error": err.Error()})
			}
			return
		}
		for _, msg := range msgs {
			b.deliver(ctx, group, msg, handler)
		}
		if next == "0-0" || len(msgs) == 0 {
			return
		}
		start = next
	}
}

func (b *RedisBus) deliver(ctx context.Context, group string, msg goredis.XMessage, handler Handler) {
	env, err := decodeMessage(msg)
	if err != nil {
		// poison entry, acknowledge so it does not block the group forever
		utils.Error("redis bus: dropping undecodable entry", map[string]any{
			"group":    group,
			"entry_id": msg.ID,
			"error":    err.Error(),
		})
		b.ack(ctx, group, msg.ID)
		return
	}

	if err := handler(ctx, env); err != nil {
		utils.Warn("redis bus: handler failed, entry stays pending", map[string]any{
			"group":    group,
			"entry_id": msg.ID,
			"kind":     env.Kind,
			"event_id": env.ID,
			"error":    err.Error(),
		})
		return
	}
	b.ack(ctx, group, msg.ID)
}

func (b *RedisBus) ack(ctx context.Context, group, id string) {
	if err := b.rdb.XAck(ctx, b.cfg.Stream, group, id).Err(); err != nil {
		utils.Warn("redis bus: ack failed", map[string]any{"group": group, "entry_id": id, "error": err.Error()})
	}
}

func decodeMessage(msg goredis.XMessage) (Envelope, error) {
	var env Envelope
	raw, ok := msg.Values[envelopeField]
	if !ok {
		return env, fmt.Errorf("missing %q field", envelopeField)
	}
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return env, fmt.Errorf("unexpected field type %T", raw)
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, err
	}
	return env, nil
}

// Close releases the redis client.
func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
