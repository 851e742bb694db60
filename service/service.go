package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/api"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/cache"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/config"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/cron"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/database"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/health"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/keepalive"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/logger"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/metrics"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/middleware"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/server"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// Service owns every component and their lifecycles. Components are built
// once in NewService and handed to each other explicitly.
type Service struct {
	ctx             context.Context
	cancel          context.CancelFunc
	config          types.ConfigManager
	logger          *logger.Manager
	metrics         types.MetricsManager
	redis           *cache.RedisStore
	cache           types.CacheStore
	db              *database.Manager
	scheduler       *cron.Scheduler
	pinger          *keepalive.Pinger
	middlewares     *middleware.Manager
	server          *server.FastHTTPServer
	health          *health.Manager
	done            chan struct{}
	wg              sync.WaitGroup
	state           atomic.Value
	shutdownTimeout time.Duration
	startTimeout    time.Duration
}

// NewService loads the configuration at configPath (empty means defaults
// plus environment) and wires the components. Nothing is started yet apart
// from the database connection, whose migrations must run before any
// request is served.
func NewService(ctx context.Context, configPath string, opts ...config.LoaderOption) (*Service, error) {
	serviceCtx, cancel := context.WithCancel(ctx)

	service := &Service{
		ctx:             serviceCtx,
		cancel:          cancel,
		done:            make(chan struct{}),
		shutdownTimeout: 30 * time.Second,
		startTimeout:    60 * time.Second,
	}
	service.state.Store(StateStopped)

	if err := service.build(configPath, opts...); err != nil {
		cancel()
		return nil, err
	}

	return service, nil
}

func (s *Service) build(configPath string, opts ...config.LoaderOption) error {
	configManager, err := config.NewConfigurationManager(s.ctx, configPath, opts...)
	if err != nil {
		return types.WrapError(err, "failed to load config")
	}
	s.config = configManager
	cfg := configManager.GetConfig()

	s.logger, err = logger.NewManager(configManager)
	if err != nil {
		return types.WrapError(err, "failed to create logger")
	}

	s.metrics = metrics.NewManager(configManager, s.logger)

	s.redis, err = cache.NewExternalStore(s.ctx, cfg.Cache, s.logger)
	if err != nil {
		return types.WrapError(err, "failed to create redis store")
	}
	s.cache = cache.NewCacheStore(cfg.Cache, s.logger, s.metrics, s.redis)

	openCtx, cancel := context.WithTimeout(s.ctx, s.startTimeout)
	defer cancel()

	s.db, err = database.Open(openCtx, cfg.Database, s.logger)
	if err != nil {
		return types.WrapError(err, "failed to open database")
	}

	s.scheduler = cron.NewScheduler(s.ctx, cfg.Cron, s.logger, s.metrics)

	pingerOpts := []keepalive.Option{keepalive.WithMetrics(s.metrics)}
	if ka := cfg.Database.KeepAlive; ka != nil && ka.Timeout > 0 {
		pingerOpts = append(pingerOpts, keepalive.WithTimeout(ka.Timeout))
	}
	s.pinger = keepalive.NewPinger(s.db.Pool(), s.scheduler, s.logger, pingerOpts...)

	s.middlewares = middleware.NewManager(s.logger, s.metrics)
	if err := s.middlewares.RegisterFromConfig(cfg.Middlewares, middleware.Dependencies{Cache: s.cache}); err != nil {
		_ = s.db.Close()
		return types.WrapError(err, "failed to register middlewares")
	}

	s.server = server.NewHTTPServer(cfg.Server.HTTP, s.logger, s.middlewares, nil)
	router := s.server.Routes()

	s.health = health.NewManager(s.ctx, configManager, s.logger, router)
	s.health.RegisterChecker("database", s.db.HealthCheck)
	s.health.RegisterChecker("keepalive", s.pinger.HealthCheck)
	if s.redis != nil {
		s.health.RegisterChecker("redis", s.redis.HealthCheck)
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, s.metrics.Handler()).WithoutMiddlewares("cache", "logging")
	}

	apiOpts := []api.Option{
		api.WithMetrics(s.metrics),
		api.WithPinger(s.pinger),
	}
	if cfg.API != nil {
		apiOpts = append(apiOpts, api.WithCacheTTL(cfg.API.CacheTTL))
	}
	if cfg.Middlewares != nil {
		apiOpts = append(apiOpts, api.WithKeyPrefix(middleware.CacheKeyPrefix(cfg.Middlewares.Cache)))
	}
	api.NewHandlers(s.db.Repository(), s.cache, s.logger, apiOpts...).Register(router)

	return nil
}

// Start brings the components up and blocks until the service is stopped by
// Stop, a signal or the parent context.
func (s *Service) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrServiceIsRunning
	}

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				runErr = fmt.Errorf("service panic: %v", r)
				s.logger.Error("Service run panic", zap.String("stack", string(buf[:n])))
				s.setState(StateStopped)
			}
		}()

		runErr = s.run()
	}()

	return runErr
}

func (s *Service) run() error {
	cfg := s.config.GetConfig()
	s.logger.Info("Starting service",
		zap.String("name", cfg.Name),
		zap.String("version", cfg.Version))

	ctx, cancel := context.WithTimeout(s.ctx, s.startTimeout)
	defer cancel()

	if err := s.startComponents(ctx); err != nil {
		if stopErr := s.stopComponents(); stopErr != nil {
			s.logger.Error("Error while unwinding failed start", zap.Error(stopErr))
		}
		s.setState(StateStopped)
		return types.WrapError(err, "failed to start components")
	}

	s.setState(StateRunning)
	s.setupSignalHandling()

	s.wg.Add(1)
	go s.contextMonitor()

	s.logger.Info("Service started successfully")

	<-s.done

	err := s.stopComponents()
	if err != nil {
		s.logger.Error("Error during service shutdown", zap.Error(err))
	}

	s.wg.Wait()
	s.setState(StateStopped)

	_ = s.logger.Stop()
	return err
}

// Stop asks a running service to shut down. Start returns once every
// component has stopped.
func (s *Service) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrServiceIsNotRunning
	}

	s.logger.Info("Stopping service...")
	s.cancel()

	return nil
}

func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) Context() context.Context {
	return s.ctx
}

func (s *Service) IsRunning() bool {
	return s.getState() == StateRunning
}

// Addr is the address the HTTP server is bound to.
func (s *Service) Addr() string {
	return s.server.Addr()
}

func (s *Service) getState() State {
	return s.state.Load().(State)
}

func (s *Service) setState(newState State) bool {
	currentState := s.getState()
	return s.state.CompareAndSwap(currentState, newState)
}

func (s *Service) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}

// startComponents starts storage before scheduling and scheduling before the
// HTTP server, so the first request sees a warm stack.
func (s *Service) startComponents(ctx context.Context) error {
	cfg := s.config.GetConfig()

	steps := []struct {
		name  string
		start func() error
	}{
		{"logger", s.logger.Start},
		{"redis", s.startRedis},
		{"cache", s.cache.Start},
		{"scheduler", s.scheduler.Start},
		{"keepalive", func() error { return s.startKeepAlive(cfg.Database.KeepAlive) }},
		{"health", s.startHealth},
		{"http server", s.server.Start},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			return types.Errorf(ctx.Err(), "component startup timeout at %s", step.name)
		default:
		}

		if err := step.start(); err != nil {
			return types.WrapError(err, "failed to start "+step.name)
		}
	}

	s.logger.Info("All components started successfully")
	return nil
}

func (s *Service) startRedis() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Start()
}

func (s *Service) startKeepAlive(config *types.KeepAliveConfig) error {
	if config == nil || !config.Enabled {
		s.logger.Debug("Database keep-alive disabled")
		return nil
	}
	return s.pinger.Start(config.Interval)
}

func (s *Service) startHealth() error {
	if hc := s.config.GetConfig().Health; hc == nil || !hc.Enabled {
		return nil
	}
	return s.health.Start()
}

// stopComponents stops in reverse start order. Detached cache writes are
// drained before the stores close.
func (s *Service) stopComponents() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	var errs []error

	s.logger.Info("Stopping service components...")

	if s.server.IsRunning() {
		if err := s.server.Stop(); err != nil {
			s.logger.Error("Failed to stop HTTP server", zap.Error(err))
			errs = append(errs, err)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	if s.health.IsRunning() {
		g.Go(func() error {
			if err := s.health.Stop(); err != nil {
				s.logger.Error("Failed to stop health manager", zap.Error(err))
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		if err := s.pinger.Stop(); err != nil {
			s.logger.Error("Failed to stop keep-alive", zap.Error(err))
			return err
		}
		if !s.scheduler.IsRunning() {
			return nil
		}
		if err := s.scheduler.Stop(); err != nil {
			s.logger.Error("Failed to stop scheduler", zap.Error(err))
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := s.cache.Drain(gCtx); err != nil {
			s.logger.Warn("Detached cache writes still pending", zap.Error(err))
		}
		if !s.cache.IsRunning() {
			return nil
		}
		return s.cache.Stop()
	})

	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	if s.redis != nil && s.redis.IsRunning() {
		if err := s.redis.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return types.WrapError(errors.Join(errs...), "errors during shutdown")
	}

	s.logger.Info("All components stopped successfully")
	return nil
}

func (s *Service) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case sig := <-sigChan:
			s.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			if s.transitionState(StateRunning, StateStopping) {
				s.cancel()
			}

		case <-s.ctx.Done():
		}

		signal.Stop(sigChan)
	}()
}

func (s *Service) contextMonitor() {
	defer s.wg.Done()
	defer close(s.done)

	<-s.ctx.Done()

	switch err := s.ctx.Err(); {
	case types.IsError(err, context.Canceled):
		s.logger.Info("Service shutdown: context cancelled")
	case types.IsError(err, context.DeadlineExceeded):
		s.logger.Warn("Service shutdown: context deadline exceeded")
	default:
		s.logger.Info("Service shutdown: context done")
	}
}
