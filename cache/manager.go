package cache

import (
	"context"
	"time"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

// NewExternalStore returns the Redis tier, or nil when it is disabled.
func NewExternalStore(ctx context.Context, config *types.CacheConfig, logger types.Logger) (*RedisStore, error) {
	if config == nil || config.Redis == nil || !config.Redis.Enabled {
		return nil, nil
	}

	return NewRedisStore(ctx, config.Redis, logger)
}

// NewCacheStore assembles the two-tier store from config and wraps it with
// operation metrics. A nil redis leaves the store local-only.
func NewCacheStore(config *types.CacheConfig, logger types.Logger, metrics types.MetricsManager, redis *RedisStore) types.CacheStore {
	opts := []Option{WithMetrics(metrics)}
	if config != nil {
		opts = append(opts,
			WithDefaultTTL(config.DefaultTTL),
			WithSweepInterval(config.SweepInterval),
			WithOpTimeout(config.OpTimeout),
		)
	}

	var external types.ExternalStore
	if redis != nil {
		external = redis
	}

	store := NewStore(logger, external, opts...)
	if metrics == nil {
		return store
	}

	return newInstrumentedCacheStore(metrics, store)
}

type instrumentedCacheStore struct {
	impl    types.CacheStore
	metrics types.MetricsManager
}

func newInstrumentedCacheStore(metrics types.MetricsManager, impl types.CacheStore) types.CacheStore {
	return &instrumentedCacheStore{
		impl:    impl,
		metrics: metrics,
	}
}

func (ics *instrumentedCacheStore) Get(ctx context.Context, key string) ([]byte, bool) {
	start := time.Now()
	value, exists := ics.impl.Get(ctx, key)

	result := "miss"
	if exists {
		result = "hit"
	}

	ics.recordMetric("get", result, time.Since(start))
	return value, exists
}

func (ics *instrumentedCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	start := time.Now()
	ics.impl.Set(ctx, key, value, ttl)
	ics.recordMetric("set", "success", time.Since(start))
}

func (ics *instrumentedCacheStore) Delete(ctx context.Context, key string) {
	operation := "delete"
	if IsPattern(key) {
		operation = "delete_pattern"
	}

	start := time.Now()
	ics.impl.Delete(ctx, key)
	ics.recordMetric(operation, "success", time.Since(start))
}

func (ics *instrumentedCacheStore) Clear(ctx context.Context) {
	start := time.Now()
	ics.impl.Clear(ctx)
	ics.recordMetric("clear", "success", time.Since(start))
}

func (ics *instrumentedCacheStore) SetAsync(key string, value []byte, ttl time.Duration) {
	ics.impl.SetAsync(key, value, ttl)
	ics.metrics.Counter("cache_operations_total", map[string]string{
		"operation": "set_async",
		"result":    "scheduled",
	}).Inc()
}

func (ics *instrumentedCacheStore) Drain(ctx context.Context) error {
	return ics.impl.Drain(ctx)
}

func (ics *instrumentedCacheStore) Len() int {
	size := ics.impl.Len()
	ics.metrics.Gauge("cache_local_entries", nil).Set(float64(size))
	return size
}

func (ics *instrumentedCacheStore) Start() error {
	start := time.Now()
	err := ics.impl.Start()

	result := "success"
	if err != nil {
		result = "error"
	}

	ics.recordMetric("start", result, time.Since(start))
	return err
}

func (ics *instrumentedCacheStore) Stop() error {
	return ics.impl.Stop()
}

func (ics *instrumentedCacheStore) IsRunning() bool {
	return ics.impl.IsRunning()
}

func (ics *instrumentedCacheStore) recordMetric(operation, result string, duration time.Duration) {
	ics.metrics.Counter("cache_operations_total", map[string]string{
		"operation": operation,
		"result":    result,
	}).Inc()

	ics.metrics.Histogram("cache_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	).Observe(duration.Seconds())
}
