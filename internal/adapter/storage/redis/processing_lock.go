package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-sync-gateway/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries our token, so
// an expired holder never frees a lock taken over by someone else.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ProcessingLock implements ports.ProcessingLock using Redis SET NX.
type ProcessingLock struct {
	client goredis.Cmdable
	prefix string
}

// NewProcessingLock creates a Redis-backed processing lock.
func NewProcessingLock(client goredis.Cmdable) *ProcessingLock {
	return &ProcessingLock{
		client: client,
		prefix: "sync:lock:",
	}
}

var _ ports.ProcessingLock = (*ProcessingLock)(nil)

// Acquire takes the lock for ttl. It returns "" without error when another
// holder has it.
func (l *ProcessingLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	err := l.client.SetArgs(ctx, l.prefix+key, token, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Err()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis lock acquire: %w", err)
	}
	return token, nil
}

// Release frees the lock if token still owns it.
func (l *ProcessingLock) Release(ctx context.Context, key string, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis lock release: %w", err)
	}
	return nil
}
