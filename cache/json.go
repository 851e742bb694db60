package cache

import (
	"context"
	"time"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

func SetJSON(ctx context.Context, store types.CacheStore, key string, value interface{}, ttl time.Duration) error {
	data, err := utils.Marshal(value)
	if err != nil {
		return types.Errorf(types.ErrCacheWriteFailed, "marshal %s: %v", key, err)
	}

	store.Set(ctx, key, data, ttl)
	return nil
}

// GetJSON decodes a cached value into target. A value that no longer decodes
// is reported as an error, not a miss, so callers can evict it.
func GetJSON[T any](ctx context.Context, store types.CacheStore, key string, target *T) (bool, error) {
	data, found := store.Get(ctx, key)
	if !found {
		return false, nil
	}

	if err := utils.Unmarshal(data, target); err != nil {
		return false, types.WrapError(err, "failed to decode cached value")
	}

	return true, nil
}
