package currency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
	gets   int
	sets   int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

type countingRates struct {
	StaticRates
	calls int
}

func (c *countingRates) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	c.calls++
	return c.StaticRates.Rate(ctx, from, to)
}

func TestCachedRates_ReadThrough(t *testing.T) {
	backing := &countingRates{StaticRates: StaticRates{}}
	backing.Set("USD", "EUR", decimal.RequireFromString("0.92"))
	rdb := newFakeRedis()
	c := NewCachedRates(backing, rdb, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rate, err := c.Rate(ctx, "USD", "EUR")
		if err != nil {
			t.Fatalf("Rate failed: %v", err)
		}
		if !rate.Equal(decimal.RequireFromString("0.92")) {
			t.Errorf("Rate = %s, want 0.92", rate)
		}
	}

	if backing.calls != 1 {
		t.Errorf("backing source called %d times, want 1", backing.calls)
	}
	if rdb.data["feed:rate:USD:EUR"] != "0.92" {
		t.Errorf("cached value = %q, want 0.92", rdb.data["feed:rate:USD:EUR"])
	}
	if rdb.ttls["feed:rate:USD:EUR"] != time.Minute {
		t.Errorf("ttl = %v, want 1m", rdb.ttls["feed:rate:USD:EUR"])
	}
}

func TestCachedRates_RedisDown(t *testing.T) {
	backing := &countingRates{StaticRates: StaticRates{}}
	backing.Set("USD", "EUR", decimal.NewFromInt(2))
	rdb := newFakeRedis()
	rdb.getErr = errors.New("connection refused")
	rdb.setErr = errors.New("connection refused")
	c := NewCachedRates(backing, rdb, 0, nil)

	rate, err := c.Rate(context.Background(), "USD", "EUR")
	if err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Rate = %s, want 2", rate)
	}
}

func TestCachedRates_MissingRateNotCached(t *testing.T) {
	rdb := newFakeRedis()
	c := NewCachedRates(StaticRates{}, rdb, time.Minute, nil)

	_, err := c.Rate(context.Background(), "USD", "JPY")
	if !errors.Is(err, ErrRateNotFound) {
		t.Fatalf("Rate error = %v, want ErrRateNotFound", err)
	}
	if rdb.sets != 0 {
		t.Errorf("cache written %d times for a missing rate, want 0", rdb.sets)
	}
}

func TestCachedRates_MalformedEntry(t *testing.T) {
	backing := StaticRates{}
	backing.Set("USD", "EUR", decimal.NewFromInt(3))
	rdb := newFakeRedis()
	rdb.data["feed:rate:USD:EUR"] = "not-a-number"
	c := NewCachedRates(backing, rdb, time.Minute, nil)

	rate, err := c.Rate(context.Background(), "USD", "EUR")
	if err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Rate = %s, want 3", rate)
	}
	if rdb.data["feed:rate:USD:EUR"] != "3" {
		t.Errorf("cache not repaired: %q", rdb.data["feed:rate:USD:EUR"])
	}
}

func TestConverter_WithCache(t *testing.T) {
	backing := StaticRates{}
	backing.Set("EUR", "USD", decimal.NewFromInt(2))
	c := NewConverter(NewCachedRates(backing, newFakeRedis(), time.Minute, nil))

	got, err := c.Convert(context.Background(), decimal.NewFromInt(10), "USD", "EUR")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Convert = %s, want 5", got)
	}
}
