package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"
)

// Throttle caps review submissions per client address with a fixed window
// counter in redis (ExpireNX needs redis 7). A zero Throttle allows
// everything.
type Throttle struct {
	enabled     bool
	redis       *redis.Client
	keyTemplate string
	limit       int64
	window      time.Duration
}

func NewThrottle(config *Config) (*Throttle, error) {
	if !config.Throttle.Enabled {
		return &Throttle{enabled: false}, nil
	}

	opt, err := redis.ParseURL(config.Throttle.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Throttle{
		enabled:     true,
		redis:       client,
		keyTemplate: config.Throttle.KeyTemplate,
		limit:       config.Throttle.Limit,
		window:      time.Duration(config.Throttle.WindowSeconds) * time.Second,
	}, nil
}

func (t *Throttle) Close() error {
	if t.redis != nil {
		return t.redis.Close()
	}
	return nil
}

func (t *Throttle) key(client string) string {
	return strings.NewReplacer("{client}", client).Replace(t.keyTemplate)
}

// Allow counts one submission for client and reports whether it is within
// the limit for the current window.
func (t *Throttle) Allow(ctx context.Context, client string) (bool, error) {
	if !t.enabled {
		return true, nil
	}

	key := t.key(client)
	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the window fixed and still heals a key that lost its TTL
	pipe.ExpireNX(ctx, key, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}

	count := incr.Val()
	if count > t.limit {
		logger.Debug.Printf("Throttled %s: %d submissions in window", key, count)
		return false, nil
	}
	return true, nil
}
