// Package redis provides the client behind the channel-profile read cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Config addresses the Redis instance backing the profile cache.
type Config struct {
	Addr string
	DB   int
	// Timeout bounds the connectivity check. Zero means pingTimeout.
	Timeout time.Duration
}

// Connect builds the client and pings it once so a misconfigured cache
// address fails at startup rather than on the first profile read.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = pingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return client, nil
}
