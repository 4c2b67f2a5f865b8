package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

// FormationBus subscribes to the catalog service's formation-created channel.
// The transport retries and does not order across redeliveries; the consumer
// callback must be idempotent.
type FormationBus interface {
	StartConsumer(ctx context.Context, onEvent func(event types.FormationCreatedEvent)) error
	Close() error
}

type formationBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewFormationBus(log *logger.Logger) (FormationBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_FORMATION_CHANNEL"))
	if ch == "" {
		ch = "formation.created"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &formationBus{
		log:     log.With("service", "RedisFormationBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *formationBus) StartConsumer(ctx context.Context, onEvent func(event types.FormationCreatedEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis formation bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var event types.FormationCreatedEvent
				if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
					b.log.Warn("bad formation event payload", "error", err)
					continue
				}
				onEvent(event)
			}
		}
	}()

	return nil
}

func (b *formationBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
