package database

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"giveaway-referrals/internal/config"
)

// ConnectRedis connects to the leaderboard cache. It returns nil when Redis
// is not configured or unreachable; the service then reads straight from
// the database.
func ConnectRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		log.Println("Redis not configured, leaderboard cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		log.Println("Leaderboard cache will be disabled")
		client.Close()
		return nil
	}

	log.Println("Connected to Redis")
	return client
}
