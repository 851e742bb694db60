package middleware

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

const MaxMiddlewares = 64

type chainFunc func(*fasthttp.RequestCtx, types.FastHTTPHandler, *types.RouteConfig)

// Manager orders middlewares by weight (lower runs first, outermost) and
// caches one compiled chain per distinct set of active middlewares.
type Manager struct {
	logger      types.Logger
	metrics     types.MetricsManager
	registered  map[string]types.Middleware
	ordered     []types.MiddlewareEntry
	nameToIndex map[string]int
	defaultMask uint64
	chains      map[uint64]chainFunc
	mu          sync.Mutex
	chainsMu    sync.RWMutex
	finalized   atomic.Bool
}

// Dependencies are the components middlewares may need beyond config.
type Dependencies struct {
	Cache types.CacheStore
}

func NewManager(logger types.Logger, metrics types.MetricsManager) *Manager {
	return &Manager{
		logger:      logger,
		metrics:     metrics,
		registered:  make(map[string]types.Middleware),
		nameToIndex: make(map[string]int),
		chains:      make(map[uint64]chainFunc),
	}
}

// RegisterFromConfig registers every enabled middleware and finalizes the order.
func (m *Manager) RegisterFromConfig(config *types.MiddlewaresConfig, deps Dependencies) error {
	if config == nil || !config.Enabled {
		return m.Finalize()
	}

	candidates := []struct {
		item  *types.MiddlewareItemConfig
		build func(*types.MiddlewareItemConfig) types.Middleware
	}{
		{config.Recovery, func(c *types.MiddlewareItemConfig) types.Middleware {
			return NewRecoveryMiddleware(c, m.logger, m.metrics)
		}},
		{config.Metadata, func(c *types.MiddlewareItemConfig) types.Middleware {
			return NewMetadataMiddleware(c, m.logger)
		}},
		{config.Logging, func(c *types.MiddlewareItemConfig) types.Middleware {
			return NewLoggingMiddleware(c, m.logger, m.metrics)
		}},
		{config.CORS, func(c *types.MiddlewareItemConfig) types.Middleware {
			return NewCORSMiddleware(c, m.logger)
		}},
		{config.Compression, func(c *types.MiddlewareItemConfig) types.Middleware {
			return NewCompressionMiddleware(c, m.logger, m.metrics)
		}},
		{config.Auth, func(c *types.MiddlewareItemConfig) types.Middleware {
			return NewAuthMiddleware(c, m.logger, m.metrics)
		}},
		{config.RateLimit, func(c *types.MiddlewareItemConfig) types.Middleware {
			return NewRateLimitMiddleware(c, m.logger, m.metrics)
		}},
		{config.Cache, func(c *types.MiddlewareItemConfig) types.Middleware {
			return NewCacheMiddleware(c, m.logger, m.metrics, deps.Cache)
		}},
	}

	for _, candidate := range candidates {
		if candidate.item == nil || !candidate.item.Enabled {
			continue
		}

		mw := candidate.build(candidate.item)
		if err := m.Register(mw); err != nil {
			return err
		}

		m.logger.Info("Middleware registered",
			zap.String("name", mw.Name()),
			zap.Int("weight", mw.Weight()))
	}

	return m.Finalize()
}

func (m *Manager) Register(middleware types.Middleware) error {
	if middleware == nil {
		return types.ErrMiddlewareInvalidType
	}

	if m.finalized.Load() {
		return types.Errorf(types.ErrInvalidState, "cannot register %q after finalization", middleware.Name())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.registered) >= MaxMiddlewares {
		return types.Errorf(types.ErrInvalidParameter, "maximum middleware count exceeded: %d", MaxMiddlewares)
	}

	name := middleware.Name()
	if _, exists := m.registered[name]; exists {
		return types.Errorf(types.ErrInvalidParameter, "middleware %q already registered", name)
	}

	m.registered[name] = middleware
	return nil
}

// Finalize fixes the execution order. Two middlewares may not share a weight.
func (m *Manager) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized.Load() {
		return nil
	}

	weights := make(map[int]string, len(m.registered))
	ordered := make([]types.MiddlewareEntry, 0, len(m.registered))

	for name, mw := range m.registered {
		if existing, exists := weights[mw.Weight()]; exists {
			return types.Errorf(types.ErrInvalidParameter, "duplicate weight %d for middlewares %q and %q",
				mw.Weight(), existing, name)
		}
		weights[mw.Weight()] = name

		ordered = append(ordered, types.MiddlewareEntry{
			Name:       name,
			Middleware: mw,
			Weight:     mw.Weight(),
		})
	}

	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Weight < ordered[j].Weight
	})

	m.ordered = ordered
	m.defaultMask = 0
	for i, entry := range ordered {
		m.nameToIndex[entry.Name] = i
		if optIn, ok := entry.Middleware.(types.OptInMiddleware); ok && optIn.OptIn() {
			continue
		}
		m.defaultMask |= 1 << uint(i)
	}

	m.finalized.Store(true)
	return nil
}

// Names lists the registered middlewares in execution order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.ordered))
	for _, entry := range m.ordered {
		names = append(names, entry.Name)
	}
	return names
}

func (m *Manager) Execute(ctx *fasthttp.RequestCtx, handler types.FastHTTPHandler, config *types.RouteConfig) {
	if !m.finalized.Load() {
		handler(ctx)
		return
	}

	mask := m.routeMask(config)
	if mask == 0 {
		handler(ctx)
		return
	}

	m.chainFor(mask)(ctx, handler, config)
}

func (m *Manager) routeMask(config *types.RouteConfig) uint64 {
	mask := m.defaultMask
	if config == nil {
		return mask
	}

	for _, name := range config.Middlewares {
		if index, exists := m.nameToIndex[name]; exists {
			mask |= 1 << uint(index)
		}
	}

	for _, name := range config.DisabledMiddlewares {
		if index, exists := m.nameToIndex[name]; exists {
			mask &^= 1 << uint(index)
		}
	}

	return mask
}

func (m *Manager) chainFor(mask uint64) chainFunc {
	m.chainsMu.RLock()
	chain, exists := m.chains[mask]
	m.chainsMu.RUnlock()
	if exists {
		return chain
	}

	active := make([]types.Middleware, 0, len(m.ordered))
	for i, entry := range m.ordered {
		if mask&(1<<uint(i)) != 0 {
			active = append(active, entry.Middleware)
		}
	}

	chain = compileChain(active)

	m.chainsMu.Lock()
	m.chains[mask] = chain
	m.chainsMu.Unlock()

	return chain
}

func compileChain(middlewares []types.Middleware) chainFunc {
	return func(ctx *fasthttp.RequestCtx, handler types.FastHTTPHandler, config *types.RouteConfig) {
		var index int

		var next func(*fasthttp.RequestCtx)
		next = func(ctx *fasthttp.RequestCtx) {
			if index >= len(middlewares) {
				handler(ctx)
				return
			}

			mw := middlewares[index]
			index++
			mw.Handle(ctx, next, config)
		}

		next(ctx)
	}
}

func weightOr(config *types.MiddlewareItemConfig, fallback int) int {
	if config != nil && config.Weight > 0 {
		return config.Weight
	}
	return fallback
}

func paramsOf(config *types.MiddlewareItemConfig) map[string]interface{} {
	if config == nil {
		return nil
	}
	return config.Params
}
