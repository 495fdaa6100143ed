package app

import (
	"context"
	"fmt"

	"order-sync-gateway/config"
	"order-sync-gateway/internal/adapter/http/middleware"
	"order-sync-gateway/internal/adapter/storage/memory"
	pgStorage "order-sync-gateway/internal/adapter/storage/postgres"
	redisStorage "order-sync-gateway/internal/adapter/storage/redis"
	"order-sync-gateway/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Storage bundles the persistence adapters selected by storage.driver.
type Storage struct {
	Records    ports.SyncRecordRepository
	Subs       ports.WebhookSubscriptionRepository
	Deliveries ports.WebhookDeliveryRepository
	Lock       ports.ProcessingLock
	// Limits backs inbound rate limiting; nil disables it.
	Limits   middleware.LimitStore
	Checkers []ports.HealthChecker

	closers []func()
}

// OpenStorage connects the configured backend. The postgres driver keeps sync
// records and webhook data in PostgreSQL and uses Redis for the processing
// lock and inbound rate limits; the memory driver keeps everything in process.
func OpenStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("using in-memory storage; sync records are lost on restart")
		return MemoryStorage(), nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	st := &Storage{
		Records:    pgStorage.NewSyncRecordRepo(pool),
		Subs:       pgStorage.NewWebhookSubscriptionRepo(pool),
		Deliveries: pgStorage.NewWebhookDeliveryRepo(pool),
		Checkers:   []ports.HealthChecker{pgStorage.NewHealthCheck(pool)},
		closers:    []func(){pool.Close},
	}
	st.withRedis(rdb)
	st.closers = append(st.closers, func() { _ = rdb.Close() })
	return st, nil
}

// MemoryStorage returns a Storage with every adapter held in process.
func MemoryStorage() *Storage {
	return &Storage{
		Records:    memory.NewSyncRecordRepo(),
		Subs:       memory.NewWebhookSubscriptionRepo(),
		Deliveries: memory.NewWebhookDeliveryRepo(),
		Lock:       memory.NewProcessingLock(),
	}
}

// withRedis moves the processing lock and inbound limits onto rdb.
func (s *Storage) withRedis(rdb goredis.Cmdable) {
	s.Lock = redisStorage.NewProcessingLock(rdb)
	s.Limits = redisStorage.NewRateLimitStore(rdb)
	s.Checkers = append(s.Checkers, redisStorage.NewHealthCheck(rdb))
}

// Close releases connections in reverse order of opening.
func (s *Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
