package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"CoinSentinel/internal/model"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const quoteKeyPrefix = "coinsentinel:quote:"

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// QuoteCache keeps the last good quote per symbol so an unavailable symbol
// can still show its prior price. With a Redis client the quotes survive
// restarts.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]model.PriceSnapshot
	rdb    *redis.Client
	ttl    time.Duration
}

// NewQuoteCache creates a cache; rdb may be nil for memory only.
func NewQuoteCache(rdb *redis.Client) *QuoteCache {
	return &QuoteCache{
		quotes: make(map[string]model.PriceSnapshot),
		rdb:    rdb,
		ttl:    24 * time.Hour,
	}
}

// Put stores the latest good quote for id.
func (c *QuoteCache) Put(ctx context.Context, id string, q model.PriceSnapshot) {
	c.mu.Lock()
	c.quotes[id] = q
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}
	value, err := json.Marshal(q)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.rdb.Set(ctx, quoteKeyPrefix+id, value, c.ttl).Err(); err != nil {
		zap.L().Warn("redis quote backup failed", zap.String("symbol", id), zap.Error(err))
	}
}

// Get returns the last good quote for id, from memory or Redis.
func (c *QuoteCache) Get(ctx context.Context, id string) (model.PriceSnapshot, bool) {
	c.mu.RLock()
	q, ok := c.quotes[id]
	c.mu.RUnlock()
	if ok || c.rdb == nil {
		return q, ok
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	data, err := c.rdb.Get(ctx, quoteKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			zap.L().Warn("redis quote lookup failed", zap.String("symbol", id), zap.Error(err))
		}
		return model.PriceSnapshot{}, false
	}
	if err := json.Unmarshal(data, &q); err != nil {
		return model.PriceSnapshot{}, false
	}

	c.mu.Lock()
	c.quotes[id] = q
	c.mu.Unlock()
	return q, true
}
