package notice

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"portfolio-site-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTTL = time.Hour

// Surface presents one notice at a time to a user.
type Surface interface {
	Show(ctx context.Context, uid string, n *models.Notice)
}

func key(uid string) string     { return "notice:" + uid }
func channel(uid string) string { return "notice_events:" + uid }

// Board keeps the current notice per user in redis and publishes every
// replacement for live listeners.
type Board struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewBoard(rdb *redis.Client, logger *zap.Logger) *Board {
	return &Board{rdb: rdb, ttl: defaultTTL, logger: logger.Named("notice")}
}

// Show replaces the user's current notice. Failures are logged only.
func (b *Board) Show(ctx context.Context, uid string, n *models.Notice) {
	if n == nil || uid == "" {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		b.logger.Error("encode notice", zap.Error(err))
		return
	}

	pipe := b.rdb.Pipeline()
	pipe.Set(ctx, key(uid), data, b.ttl)
	pipe.Publish(ctx, channel(uid), data)
	if _, err := pipe.Exec(ctx); err != nil {
		b.logger.Warn("show notice", zap.String("uid", uid), zap.Error(err))
	}
}

// Current returns the active notice, or nil when there is none.
func (b *Board) Current(ctx context.Context, uid string) (*models.Notice, error) {
	val, err := b.rdb.Get(ctx, key(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var n models.Notice
	if err := json.Unmarshal([]byte(val), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Dismiss clears the active notice.
func (b *Board) Dismiss(ctx context.Context, uid string) error {
	return b.rdb.Del(ctx, key(uid)).Err()
}

func (b *Board) Subscribe(ctx context.Context, uid string) *redis.PubSub {
	return b.rdb.Subscribe(ctx, channel(uid))
}
