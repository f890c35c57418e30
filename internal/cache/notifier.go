// Package cache tells feed consumers that a user's source records changed.
//
// The feed itself is never cached; clients that hold a rendered feed listen for
// these notifications and call the feed endpoint again.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Notifier announces that a user's feed inputs changed.
type Notifier interface {
	FeedChanged(ctx context.Context, userID, reason string) error
}

// NoopNotifier discards notifications.
type NoopNotifier struct{}

// FeedChanged performs no action.
func (NoopNotifier) FeedChanged(context.Context, string, string) error { return nil }

// FeedChangedMessage is the payload published on the per-user channel.
type FeedChangedMessage struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	ChangedAt time.Time `json:"changed_at"`
}

// RedisNotifier publishes feed changes on a Redis pub/sub channel per user.
type RedisNotifier struct {
	rdb    *goredis.Client
	prefix string
}

// NewRedisNotifier connects to addr and verifies the connection.
func NewRedisNotifier(ctx context.Context, addr, prefix string) (*RedisNotifier, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = "gardenlog:feed"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisNotifier{rdb: rdb, prefix: prefix}, nil
}

// Channel returns the pub/sub channel carrying userID's notifications.
func (n *RedisNotifier) Channel(userID string) string {
	return ChannelName(n.prefix, userID)
}

// FeedChanged publishes a FeedChangedMessage for userID.
func (n *RedisNotifier) FeedChanged(ctx context.Context, userID, reason string) error {
	body, err := json.Marshal(FeedChangedMessage{
		UserID:    userID,
		Reason:    reason,
		ChangedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.Channel(userID), body).Err()
}

// Close releases the Redis client.
func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}

// ChannelName joins prefix and userID.
func ChannelName(prefix, userID string) string {
	return strings.TrimRight(prefix, ":") + ":" + userID
}
