package currency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DefaultRateTTL is how long a cached rate stays valid.
const DefaultRateTTL = 10 * time.Minute

const rateKeyPrefix = "feed:rate:"

// redisClient is the subset of *redis.Client used by the cache.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedRates is a read-through redis cache in front of another RateSource.
// Redis failures are logged and fall through to the backing source.
type CachedRates struct {
	next   RateSource
	client redisClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRates wraps next with a redis cache.
func NewCachedRates(next RateSource, client redisClient, ttl time.Duration, logger *slog.Logger) *CachedRates {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultRateTTL
	}
	return &CachedRates{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Rate implements RateSource.
func (c *CachedRates) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	key := rateKeyPrefix + pairKey(from, to)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		rate, perr := decimal.NewFromString(raw)
		if perr == nil {
			return rate, nil
		}
		c.logger.Warn("discarding malformed cached rate", "key", key, "value", raw, "error", perr)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("rate cache read failed", "key", key, "error", err)
	}

	rate, err := c.next.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.client.Set(ctx, key, rate.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("rate cache write failed", "key", key, "error", err)
	}
	return rate, nil
}
