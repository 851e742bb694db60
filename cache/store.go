package cache

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

const (
	defaultSweepInterval = 60 * time.Second
	defaultOpTimeout     = 2 * time.Second
)

// Store is a two-tier cache: an optional external store queried first and an
// always-on local map used whenever the external tier misses, is not ready or
// fails. External failures are logged and never reach the caller.
type Store struct {
	logger        types.Logger
	metrics       types.MetricsManager
	external      types.ExternalStore
	local         *localTier
	tasks         taskSet
	defaultTTL    time.Duration
	sweepInterval time.Duration
	opTimeout     time.Duration
	now           func() time.Time
	state         atomic.Value
	mu            sync.Mutex
	stopSweep     chan struct{}
	sweepDone     chan struct{}
	ownsExternal  bool
}

type Option func(*Store)

func WithMetrics(metrics types.MetricsManager) Option {
	return func(s *Store) {
		s.metrics = metrics
	}
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

func WithSweepInterval(interval time.Duration) Option {
	return func(s *Store) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithOpTimeout bounds each external call. Zero leaves only the caller's context.
func WithOpTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.opTimeout = timeout
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore builds the cache. external may be nil, in which case only the
// local tier is used.
func NewStore(logger types.Logger, external types.ExternalStore, opts ...Option) *Store {
	s := &Store{
		logger:        logger,
		external:      external,
		defaultTTL:    types.DefaultCacheTTL,
		sweepInterval: defaultSweepInterval,
		opTimeout:     defaultOpTimeout,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.local = newLocalTier(s.now)
	s.state.Store(StateStopped)

	return s
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}

	if s.externalReady("get") {
		opCtx, cancel := s.opContext(ctx)
		value, found, err := s.external.Get(opCtx, key)
		cancel()

		switch {
		case err != nil:
			s.fallback("get", key, err)
		case found:
			return value, true
		}
	}

	return s.local.get(key)
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if key == "" {
		s.logger.Warn("Cache set skipped", zap.Error(types.ErrCacheKeyEmpty))
		return
	}

	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	if s.externalReady("set") {
		opCtx, cancel := s.opContext(ctx)
		if err := s.external.SetWithExpiry(opCtx, key, value, ttl); err != nil {
			s.fallback("set", key, err)
		}
		cancel()
	}

	s.local.set(key, value, ttl)
}

// Delete removes a key from both tiers. A key containing '*' is treated as a
// pattern and every matching key is removed.
func (s *Store) Delete(ctx context.Context, key string) {
	if key == "" {
		return
	}

	if IsPattern(key) {
		s.deletePattern(ctx, key)
		return
	}

	if s.externalReady("delete") {
		opCtx, cancel := s.opContext(ctx)
		if err := s.external.Delete(opCtx, key); err != nil {
			s.fallback("delete", key, err)
		}
		cancel()
	}

	s.local.delete(key)
}

func (s *Store) Clear(ctx context.Context) {
	if s.externalReady("clear") {
		opCtx, cancel := s.opContext(ctx)
		if err := s.external.FlushNamespace(opCtx); err != nil {
			s.fallback("clear", "", err)
		}
		cancel()
	}

	cleared := s.local.clear()
	s.logger.Info("Cache cleared", zap.Int("local_entries", cleared))
}

// SetAsync writes in the background. The write is tracked so Drain can wait
// for it; a panic inside it is recovered and logged.
func (s *Store) SetAsync(key string, value []byte, ttl time.Duration) {
	s.tasks.add()

	go func() {
		defer s.tasks.done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Detached cache write panicked",
					zap.String("key", key),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
			}
		}()

		s.Set(context.Background(), key, value, ttl)
	}()
}

func (s *Store) Drain(ctx context.Context) error {
	if err := s.tasks.wait(ctx); err != nil {
		return types.Errorf(types.ErrCacheDrainTimeout, "%d writes pending: %v", s.tasks.pending(), err)
	}
	return nil
}

func (s *Store) Len() int {
	return s.local.len()
}

// Start launches the janitor. An external store that is not yet running is
// started here and then belongs to the Store, which stops it again in Stop.
// One started elsewhere is left to its owner.
func (s *Store) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrCacheIsRunning
	}

	owns := false
	if lifecycle, ok := s.external.(types.LifecycleManager); ok && !lifecycle.IsRunning() {
		if err := lifecycle.Start(); err != nil {
			s.setState(StateStopped)
			return types.WrapError(err, "failed to start external store")
		}
		owns = true
	}

	s.mu.Lock()
	s.ownsExternal = owns
	s.stopSweep = make(chan struct{})
	s.sweepDone = make(chan struct{})
	go s.sweepLoop(s.stopSweep, s.sweepDone)
	s.mu.Unlock()

	s.setState(StateRunning)
	s.logger.Info("Cache started",
		zap.Bool("external", s.external != nil),
		zap.Duration("sweep_interval", s.sweepInterval),
		zap.Duration("default_ttl", s.defaultTTL))

	return nil
}

func (s *Store) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrCacheNotRunning
	}
	defer s.setState(StateStopped)

	s.mu.Lock()
	close(s.stopSweep)
	done := s.sweepDone
	owns := s.ownsExternal
	s.ownsExternal = false
	s.mu.Unlock()
	<-done

	if lifecycle, ok := s.external.(types.LifecycleManager); ok && owns && lifecycle.IsRunning() {
		if err := lifecycle.Stop(); err != nil {
			return types.WrapError(err, "failed to stop external store")
		}
	}

	s.logger.Info("Cache stopped")
	return nil
}

func (s *Store) IsRunning() bool {
	return s.getState() == StateRunning
}

// Sweep evicts expired local entries now rather than on the next tick.
func (s *Store) Sweep() int {
	removed := s.local.sweep()
	if removed > 0 {
		s.logger.Debug("Cache sweep completed", zap.Int("expired_entries", removed))
	}
	return removed
}

func (s *Store) deletePattern(ctx context.Context, raw string) {
	pattern, err := CompilePattern(raw)
	if err != nil {
		s.logger.Warn("Cache pattern rejected", zap.String("pattern", raw), zap.Error(err))
		return
	}

	if s.externalReady("delete_pattern") {
		opCtx, cancel := s.opContext(ctx)
		keys, err := s.external.KeysMatching(opCtx, pattern.Glob())
		if err == nil {
			err = s.external.DeleteMany(opCtx, keys)
		}
		cancel()

		if err != nil {
			s.fallback("delete_pattern", raw, err)
		}
	}

	removed := s.local.deleteMatching(pattern)
	s.logger.Debug("Cache pattern deleted", zap.String("pattern", raw), zap.Int("local_entries", removed))
}

func (s *Store) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// externalReady reports whether the external tier should be consulted and
// counts a fallback when it is configured but down.
func (s *Store) externalReady(operation string) bool {
	if s.external == nil {
		return false
	}

	if !s.external.Ready() {
		s.incFallback(operation)
		return false
	}

	return true
}

func (s *Store) fallback(operation, key string, err error) {
	s.incFallback(operation)
	s.logger.Warn("External cache unavailable, using local tier",
		zap.String("operation", operation),
		zap.String("key", key),
		zap.Error(err))
}

func (s *Store) incFallback(operation string) {
	if s.metrics == nil {
		return
	}

	s.metrics.Counter("cache_fallback_total", map[string]string{
		"operation": operation,
	}).Inc()
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout > 0 {
		return context.WithTimeout(ctx, s.opTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Store) getState() State {
	return s.state.Load().(State)
}

func (s *Store) setState(newState State) bool {
	currentState := s.getState()
	return s.state.CompareAndSwap(currentState, newState)
}

func (s *Store) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}
