// Package cache provides Redis-backed caching for quotes and recently
// emitted signals, with graceful degradation: when Redis is down the
// service keeps running and callers fall back to their source of truth.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"smc-signal-engine/config"
	"smc-signal-engine/internal/logging"
)

// Key formats per cache type
const (
	keyPrice        = "price:%s"
	keyLatestSignal = "signal:%s:%s:latest"
	keySignalFeed   = "signals:feed"
)

// Default TTLs
const (
	DefaultPriceTTL  = 30 * time.Second
	DefaultSignalTTL = 24 * time.Hour
	feedMaxLength    = 100
)

// CacheService wraps the Redis client behind a small domain API. A
// circuit breaker marks the service unhealthy after repeated failures
// so hot paths stop paying connection timeouts.
type CacheService struct {
	client *redis.Client
	log    *logging.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int

	maxFailures int
}

// NewCacheService connects to Redis. A failed initial connection
// returns the service in degraded mode rather than an error.
func NewCacheService(cfg config.RedisConfig, log *logging.Logger) (*CacheService, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	cs := &CacheService{
		client:      client,
		log:         log.WithComponent("cache"),
		maxFailures: 3,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		cs.log.Warn("initial Redis connection failed, starting degraded", "error", err)
		return cs, nil
	}

	cs.healthy = true
	cs.log.Info("Redis connected", "address", cfg.Address)
	return cs, nil
}

// IsHealthy returns whether Redis is currently available.
func (cs *CacheService) IsHealthy() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.healthy
}

func (cs *CacheService) recordFailure() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.failureCount++
	if cs.failureCount >= cs.maxFailures {
		if cs.healthy {
			cs.log.Warn("circuit breaker open, Redis marked unhealthy", "failures", cs.failureCount)
		}
		cs.healthy = false
	}
}

func (cs *CacheService) recordSuccess() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.healthy && cs.failureCount > 0 {
		cs.log.Info("Redis recovered")
	}
	cs.failureCount = 0
	cs.healthy = true
}

// SetPrice caches a spot quote.
func (cs *CacheService) SetPrice(ctx context.Context, symbol string, price float64) error {
	key := fmt.Sprintf(keyPrice, symbol)
	if err := cs.client.Set(ctx, key, price, DefaultPriceTTL).Err(); err != nil {
		cs.recordFailure()
		return err
	}
	cs.recordSuccess()
	return nil
}

// GetPrice returns a cached quote, or false on miss or Redis failure.
func (cs *CacheService) GetPrice(ctx context.Context, symbol string) (float64, bool) {
	key := fmt.Sprintf(keyPrice, symbol)
	price, err := cs.client.Get(ctx, key).Float64()
	if err == redis.Nil {
		cs.recordSuccess()
		return 0, false
	}
	if err != nil {
		cs.recordFailure()
		return 0, false
	}
	cs.recordSuccess()
	return price, true
}

// SetLatestSignal caches the newest signal for an instrument and pushes
// it onto the bounded feed list.
func (cs *CacheService) SetLatestSignal(ctx context.Context, instrument, timeframe string, signal interface{}) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	key := fmt.Sprintf(keyLatestSignal, instrument, timeframe)
	pipe := cs.client.Pipeline()
	pipe.Set(ctx, key, payload, DefaultSignalTTL)
	pipe.LPush(ctx, keySignalFeed, payload)
	pipe.LTrim(ctx, keySignalFeed, 0, feedMaxLength-1)
	pipe.Expire(ctx, keySignalFeed, DefaultSignalTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		cs.recordFailure()
		return err
	}
	cs.recordSuccess()
	return nil
}

// GetLatestSignal unmarshals the cached newest signal into out; false on
// miss or failure.
func (cs *CacheService) GetLatestSignal(ctx context.Context, instrument, timeframe string, out interface{}) bool {
	key := fmt.Sprintf(keyLatestSignal, instrument, timeframe)
	payload, err := cs.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		cs.recordSuccess()
		return false
	}
	if err != nil {
		cs.recordFailure()
		return false
	}
	cs.recordSuccess()
	return json.Unmarshal(payload, out) == nil
}

// SignalFeed returns up to limit raw signal payloads, newest first.
func (cs *CacheService) SignalFeed(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > feedMaxLength {
		limit = feedMaxLength
	}
	payloads, err := cs.client.LRange(ctx, keySignalFeed, 0, int64(limit-1)).Result()
	if err != nil {
		cs.recordFailure()
		return nil, err
	}
	cs.recordSuccess()
	return payloads, nil
}

// Close releases the Redis connection.
func (cs *CacheService) Close() error {
	return cs.client.Close()
}
