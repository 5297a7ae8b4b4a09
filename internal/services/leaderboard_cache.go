package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"giveaway-referrals/internal/leaderboard"
)

// LeaderboardCache holds computed boards for a short time. Boards are always
// recomputable from the store, so a cache failure only costs a recompute.
type LeaderboardCache interface {
	Get(ctx context.Context, key string) ([]leaderboard.Entry, bool, error)
	Set(ctx context.Context, key string, entries []leaderboard.Entry) error
	Delete(ctx context.Context, keys ...string) error
}

const globalBoardKey = "leaderboard:global"

func campaignBoardKey(campaignID string) string {
	return "leaderboard:campaign:" + campaignID
}

// RedisLeaderboardCache stores boards as JSON strings with a TTL.
type RedisLeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLeaderboardCache(client *redis.Client, ttl time.Duration) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{client: client, ttl: ttl}
}

func (c *RedisLeaderboardCache) Get(ctx context.Context, key string) ([]leaderboard.Entry, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entries []leaderboard.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("decode cached board %s: %w", key, err)
	}
	return entries, true, nil
}

func (c *RedisLeaderboardCache) Set(ctx context.Context, key string, entries []leaderboard.Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode board %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisLeaderboardCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
