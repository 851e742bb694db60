package middleware

import (
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

const (
	HeaderCache = "X-Cache"
	cacheHit    = "HIT"
	cacheMiss   = "MISS"
)

// CacheMiddleware serves GET responses of cache-enabled routes from the
// two-tier store. Keys are key_prefix + request URI, so a pattern such as
// "api:/api/admin/messages*" invalidates every cached variant of a path.
type CacheMiddleware struct {
	logger      types.Logger
	metrics     types.MetricsManager
	store       types.CacheStore
	cacheConfig *CacheConfig
	weight      int
}

type CacheConfig struct {
	KeyPrefix  string `json:"key_prefix"`
	DefaultTTL int    `json:"default_ttl"`
}

func NewCacheMiddleware(config *types.MiddlewareItemConfig, logger types.Logger, metrics types.MetricsManager, store types.CacheStore) *CacheMiddleware {
	cacheConfig, err := parseCacheConfig(config)
	if err != nil {
		logger.Error("Failed to unmarshal cache middleware config", zap.Error(err))
	}

	return &CacheMiddleware{
		logger:      logger,
		metrics:     metrics,
		store:       store,
		cacheConfig: cacheConfig,
		weight:      weightOr(config, 70),
	}
}

// CacheKeyPrefix returns the key prefix the cache middleware derives from
// config, so handlers can invalidate the keys it writes.
func CacheKeyPrefix(config *types.MiddlewareItemConfig) string {
	cacheConfig, _ := parseCacheConfig(config)
	return cacheConfig.KeyPrefix
}

func parseCacheConfig(config *types.MiddlewareItemConfig) (*CacheConfig, error) {
	cacheConfig := &CacheConfig{
		KeyPrefix:  "api:",
		DefaultTTL: int(types.DefaultCacheTTL / time.Second),
	}

	params := paramsOf(config)
	if params == nil {
		return cacheConfig, nil
	}

	return cacheConfig, utils.UnmarshalConfig(params, cacheConfig)
}

func (c *CacheMiddleware) Name() string { return "cache" }
func (c *CacheMiddleware) Weight() int  { return c.weight }

// Key is the cache key used for a request URI.
func (c *CacheMiddleware) Key(requestURI string) string {
	return c.cacheConfig.KeyPrefix + requestURI
}

func (c *CacheMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), config *types.RouteConfig) {
	if c.store == nil || !ctx.IsGet() || config == nil || config.Cache == nil || !config.Cache.Enabled {
		next(ctx)
		return
	}

	key := c.Key(string(ctx.RequestURI()))

	if body, found := c.store.Get(ctx, key); found {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType(utils.ContentTypeJSON)
		ctx.SetBody(body)
		ctx.Response.Header.Set(HeaderCache, cacheHit)

		c.count(cacheHit)
		c.logger.Debug("Response cache hit", zap.String("cache_key", key))
		return
	}

	next(ctx)

	ctx.Response.Header.Set(HeaderCache, cacheMiss)
	c.count(cacheMiss)

	if !c.cacheable(ctx) {
		return
	}

	// The response buffer is reused by fasthttp once the request completes.
	body := append([]byte(nil), ctx.Response.Body()...)
	c.store.SetAsync(key, body, c.ttl(config.Cache))

	c.logger.Debug("Response cache stored",
		zap.String("cache_key", key),
		zap.Int("size", len(body)))
}

func (c *CacheMiddleware) cacheable(ctx *fasthttp.RequestCtx) bool {
	status := ctx.Response.StatusCode()
	if status < 200 || status >= 300 {
		return false
	}

	if len(ctx.Response.Body()) == 0 || !utils.IsJSON(ctx) {
		return false
	}

	cacheControl := strings.ToLower(string(ctx.Response.Header.Peek("Cache-Control")))
	return !strings.Contains(cacheControl, "no-store")
}

func (c *CacheMiddleware) ttl(config *types.CacheHandlerConfig) time.Duration {
	if config.TTL > 0 {
		return config.TTL
	}
	return time.Duration(c.cacheConfig.DefaultTTL) * time.Second
}

func (c *CacheMiddleware) count(result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.Counter("http_response_cache_total", map[string]string{"result": result}).Inc()
}
