package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/pkg/config"
)

// NewRedisClient connects to Redis. It returns nil, nil when no host is configured.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Host == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// releaseScript deletes the lock only when the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is an advisory lock on SET NX with a per-holder token
type RedisLocker struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisLocker creates a locker whose keys start with prefix
func NewRedisLocker(client *redis.Client, prefix string, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, prefix: prefix, logger: logger}
}

// TryLock acquires name for ttl. ok is false when another holder owns it.
func (l *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	k := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", k, err)
	}
	if !ok {
		return nil, false, nil
	}

	l.logger.Debug("🔒 Lock acquired", zap.String("key", k), zap.Duration("ttl", ttl))
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{k}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("failed to release lock %s: %w", k, err)
		}
		return nil
	}
	return release, true, nil
}

// NoopLocker always grants the lock
type NoopLocker struct{}

// TryLock implements the locker contract without coordination
func (NoopLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}
