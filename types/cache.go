package types

import (
	"context"
	"time"
)

const DefaultCacheTTL = 300 * time.Second

type CacheStore interface {
	LifecycleManager
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	SetAsync(key string, value []byte, ttl time.Duration)
	Drain(ctx context.Context) error
	Len() int
}

// ExternalStore is the shared tier behind the local cache. Any call may fail;
// callers treat a failure as the store being unavailable for that operation.
type ExternalStore interface {
	Ready() bool
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
	KeysMatching(ctx context.Context, pattern string) ([]string, error)
	FlushNamespace(ctx context.Context) error
}

type CacheHandlerConfig struct {
	Enabled bool
	TTL     time.Duration
}
