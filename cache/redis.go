package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

const (
	scanBatchSize   = 500
	defaultProbeGap = 10 * time.Second
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// RedisStore is the external tier. Keys are namespaced as "<prefix>:<key>"
// on the wire and handed back without the prefix.
type RedisStore struct {
	ctx           context.Context
	logger        types.Logger
	client        *redis.Client
	prefix        string
	probeInterval time.Duration
	probeTimeout  time.Duration
	ready         atomic.Bool
	state         atomic.Value
	mu            sync.Mutex
	stopProbe     chan struct{}
	probeDone     chan struct{}
}

// NewRedisStore never fails because Redis is unreachable: the store starts
// not ready and the probe brings it up once the server answers.
func NewRedisStore(ctx context.Context, config *types.RedisConfig, logger types.Logger) (*RedisStore, error) {
	if config == nil {
		return nil, types.Errorf(types.ErrConfigIsNil, "redis config")
	}

	options, err := redisOptions(config)
	if err != nil {
		return nil, err
	}

	probeInterval := config.ProbeInterval
	if probeInterval <= 0 {
		probeInterval = defaultProbeGap
	}

	probeTimeout := config.DialTimeout
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}

	store := &RedisStore{
		ctx:           ctx,
		logger:        logger,
		client:        redis.NewClient(options),
		prefix:        config.KeyPrefix,
		probeInterval: probeInterval,
		probeTimeout:  probeTimeout,
	}
	store.state.Store(StateStopped)

	if err := store.probe(); err != nil {
		logger.Warn("Redis not reachable, serving from local cache until it is",
			zap.String("addr", options.Addr),
			zap.Error(err))
	} else {
		logger.Info("Redis connected", zap.String("addr", options.Addr), zap.Int("db", options.DB))
	}

	return store, nil
}

func redisOptions(config *types.RedisConfig) (*redis.Options, error) {
	var options *redis.Options

	if config.URL != "" {
		parsed, err := redis.ParseURL(config.URL)
		if err != nil {
			return nil, types.Errorf(types.ErrConfigParseFailed, "redis url: %v", err)
		}
		options = parsed
	} else {
		options = &redis.Options{
			Addr:     net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
			Password: config.Password,
			DB:       config.DB,
		}
	}

	if config.PoolSize > 0 {
		options.PoolSize = config.PoolSize
	}
	if config.DialTimeout > 0 {
		options.DialTimeout = config.DialTimeout
	}
	if config.ReadTimeout > 0 {
		options.ReadTimeout = config.ReadTimeout
	}
	if config.WriteTimeout > 0 {
		options.WriteTimeout = config.WriteTimeout
	}

	return options, nil
}

func (r *RedisStore) Ready() bool {
	return r.ready.Load()
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, r.failure(err, "redis get")
	}

	return value, true, nil
}

func (r *RedisStore) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.fullKey(key), value, ttl).Err(); err != nil {
		return r.failure(err, "redis set")
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.fullKey(key)).Err(); err != nil {
		return r.failure(err, "redis del")
	}
	return nil
}

func (r *RedisStore) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = r.fullKey(key)
	}

	if err := r.client.Del(ctx, fullKeys...).Err(); err != nil {
		return r.failure(err, "redis del")
	}
	return nil
}

// KeysMatching takes a Redis glob (see Pattern.Glob) relative to the namespace.
func (r *RedisStore) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	match := pattern
	if r.prefix != "" {
		match = escapeGlob(r.prefix, false) + ":" + pattern
	}

	fullKeys, err := r.scan(ctx, match)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(fullKeys))
	for i, fullKey := range fullKeys {
		keys[i] = r.stripPrefix(fullKey)
	}

	return keys, nil
}

// FlushNamespace removes only this store's keys when a prefix is set and
// falls back to FLUSHDB otherwise.
func (r *RedisStore) FlushNamespace(ctx context.Context) error {
	if r.prefix == "" {
		if err := r.client.FlushDB(ctx).Err(); err != nil {
			return r.failure(err, "redis flushdb")
		}
		return nil
	}

	fullKeys, err := r.scan(ctx, escapeGlob(r.prefix, false)+":*")
	if err != nil {
		return err
	}

	for start := 0; start < len(fullKeys); start += scanBatchSize {
		end := min(start+scanBatchSize, len(fullKeys))
		if err := r.client.Del(ctx, fullKeys[start:end]...).Err(); err != nil {
			return r.failure(err, "redis del")
		}
	}

	return nil
}

// Start runs the readiness probe until Stop.
func (r *RedisStore) Start() error {
	if !r.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	r.mu.Lock()
	r.stopProbe = make(chan struct{})
	r.probeDone = make(chan struct{})
	go r.probeLoop(r.stopProbe, r.probeDone)
	r.mu.Unlock()

	r.setState(StateRunning)
	r.logger.Info("Redis probe started", zap.Duration("interval", r.probeInterval))
	return nil
}

// Stop ends the probe and closes the client.
func (r *RedisStore) Stop() error {
	if !r.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}
	defer r.setState(StateStopped)

	r.mu.Lock()
	close(r.stopProbe)
	done := r.probeDone
	r.mu.Unlock()
	<-done

	r.ready.Store(false)

	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis client", zap.Error(err))
		return types.WrapError(err, "failed to close redis client")
	}

	r.logger.Info("Redis store closed")
	return nil
}

func (r *RedisStore) IsRunning() bool {
	return r.getState() == StateRunning
}

func (r *RedisStore) HealthCheck(ctx context.Context) types.HealthCheck {
	start := time.Now()
	check := types.HealthCheck{
		Name:      "redis",
		LastCheck: start,
		Details:   map[string]interface{}{"prefix": r.prefix},
	}

	err := r.client.Ping(ctx).Err()
	check.Duration = time.Since(start)

	if err != nil {
		check.Status = types.StatusUnhealthy
		check.Message = "serving from local cache: " + err.Error()
		return check
	}

	check.Status = types.StatusHealthy
	return check
}

func (r *RedisStore) probeLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			wasReady := r.Ready()
			err := r.probe()

			switch {
			case err != nil && wasReady:
				r.logger.Warn("Redis became unavailable", zap.Error(err))
			case err == nil && !wasReady:
				r.logger.Info("Redis became available")
			}
		}
	}
}

func (r *RedisStore) probe() error {
	ctx, cancel := context.WithTimeout(r.ctx, r.probeTimeout)
	defer cancel()

	err := r.client.Ping(ctx).Err()
	r.ready.Store(err == nil)
	return err
}

func (r *RedisStore) scan(ctx context.Context, match string) ([]string, error) {
	seen := make(map[string]struct{})
	keys := make([]string, 0)

	iter := r.client.Scan(ctx, 0, match, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// SCAN may return a key more than once.
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	if err := iter.Err(); err != nil {
		return nil, r.failure(err, "redis scan")
	}

	return keys, nil
}

// failure wraps err and drops readiness when the connection itself is gone,
// leaving recovery to the probe.
func (r *RedisStore) failure(err error, op string) error {
	if isConnectionError(err) && r.ready.CompareAndSwap(true, false) {
		r.logger.Warn("Redis marked unavailable", zap.String("operation", op), zap.Error(err))
	}
	return fmt.Errorf("%s: %w: %w", op, types.ErrStoreUnavailable, err)
}

func isConnectionError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}

	if errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func (r *RedisStore) fullKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *RedisStore) stripPrefix(fullKey string) string {
	if r.prefix == "" {
		return fullKey
	}
	return strings.TrimPrefix(fullKey, r.prefix+":")
}

func (r *RedisStore) getState() State {
	return r.state.Load().(State)
}

func (r *RedisStore) setState(newState State) bool {
	currentState := r.getState()
	return r.state.CompareAndSwap(currentState, newState)
}

func (r *RedisStore) transitionState(from, to State) bool {
	return r.state.CompareAndSwap(from, to)
}
