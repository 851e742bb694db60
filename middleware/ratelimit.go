package middleware

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

const rateLimitShards = 16

// RateLimitMiddleware caps requests per client IP in fixed windows. It is
// opt-in and guards write endpoints such as the contact form.
type RateLimitMiddleware struct {
	logger          types.Logger
	metrics         types.MetricsManager
	shards          [rateLimitShards]*rateLimitShard
	rateLimitConfig *RateLimitConfig
	window          time.Duration
	weight          int
	now             func() time.Time
}

type RateLimitConfig struct {
	Requests      int `json:"requests"`
	WindowSeconds int `json:"window_seconds"`
}

type rateLimitShard struct {
	mu        sync.Mutex
	clients   map[string]*rateWindow
	lastPrune time.Time
}

type rateWindow struct {
	start time.Time
	count int
}

func NewRateLimitMiddleware(config *types.MiddlewareItemConfig, logger types.Logger, metrics types.MetricsManager) *RateLimitMiddleware {
	rateLimitConfig := &RateLimitConfig{
		Requests:      5,
		WindowSeconds: 60,
	}

	if params := paramsOf(config); params != nil {
		if err := utils.UnmarshalConfig(params, rateLimitConfig); err != nil {
			logger.Error("Failed to unmarshal rate limit middleware config", zap.Error(err))
		}
	}

	if rateLimitConfig.Requests <= 0 {
		rateLimitConfig.Requests = 5
	}
	if rateLimitConfig.WindowSeconds <= 0 {
		rateLimitConfig.WindowSeconds = 60
	}

	rl := &RateLimitMiddleware{
		logger:          logger,
		metrics:         metrics,
		rateLimitConfig: rateLimitConfig,
		window:          time.Duration(rateLimitConfig.WindowSeconds) * time.Second,
		weight:          weightOr(config, 65),
		now:             time.Now,
	}

	for i := range rl.shards {
		rl.shards[i] = &rateLimitShard{clients: make(map[string]*rateWindow)}
	}

	return rl
}

func (rl *RateLimitMiddleware) Name() string { return "ratelimit" }
func (rl *RateLimitMiddleware) Weight() int  { return rl.weight }
func (rl *RateLimitMiddleware) OptIn() bool  { return true }

func (rl *RateLimitMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	if ctx.IsOptions() {
		next(ctx)
		return
	}

	client := realIP(ctx)

	allowed, retryAfter := rl.allow(client)
	if !allowed {
		rl.logger.Warn("Rate limit exceeded", zap.String("client_ip", client), zap.ByteString("path", ctx.Path()))

		if rl.metrics != nil {
			rl.metrics.Counter("http_rate_limited_total", nil).Inc()
		}

		seconds := int(retryAfter.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		ctx.Response.Header.Set(fasthttp.HeaderRetryAfter, strconv.Itoa(seconds))
		utils.WriteError(ctx, fasthttp.StatusTooManyRequests, "too many requests, try again later")
		return
	}

	next(ctx)
}

// allow counts the request against the client's current window and reports
// how long until the window resets when the limit is hit.
func (rl *RateLimitMiddleware) allow(client string) (bool, time.Duration) {
	shard := rl.shardFor(client)
	now := rl.now()

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if now.Sub(shard.lastPrune) >= rl.window {
		for key, w := range shard.clients {
			if now.Sub(w.start) >= rl.window {
				delete(shard.clients, key)
			}
		}
		shard.lastPrune = now
	}

	w, ok := shard.clients[client]
	if !ok || now.Sub(w.start) >= rl.window {
		shard.clients[client] = &rateWindow{start: now, count: 1}
		return true, 0
	}

	if w.count >= rl.rateLimitConfig.Requests {
		return false, w.start.Add(rl.window).Sub(now)
	}

	w.count++
	return true, 0
}

func (rl *RateLimitMiddleware) shardFor(client string) *rateLimitShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(client))
	return rl.shards[h.Sum32()%rateLimitShards]
}
