package config

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

type Loader struct {
	validator *validator.Validate
	environ   map[string]string
}

type LoaderOption func(*Loader)

// WithEnvironment replaces the process environment as the source of overrides.
func WithEnvironment(environ map[string]string) LoaderOption {
	return func(l *Loader) {
		l.environ = environ
	}
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFromFile reads the YAML file over Defaults, applies environment
// overrides and validates the result. An empty path yields defaults plus
// environment.
func (l *Loader) LoadFromFile(ctx context.Context, configPath string) (*types.ServiceConfig, error) {
	config := l.Defaults()

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, types.Errorf(types.ErrConfigNotFound, "file not found: %s", configPath)
		}

		data, err := l.ReadFileWithTimeout(ctx, configPath)
		if err != nil {
			return nil, types.WrapError(err, "failed to read config file")
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, types.Errorf(types.ErrConfigParseFailed, "%v", err)
		}
	}

	if err := applyEnvOverrides(config, l.environ); err != nil {
		return nil, err
	}

	if err := l.validator.Struct(config); err != nil {
		return nil, types.Errorf(types.ErrConfigValidateFailed, "%v", err)
	}

	return config, nil
}

func (l *Loader) ReadFileWithTimeout(ctx context.Context, filepath string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	resultChan := make(chan result, 1)

	go func() {
		data, err := os.ReadFile(filepath)
		resultChan <- result{data: data, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "file read timeout")
	}
}

func (l *Loader) Defaults() *types.ServiceConfig {
	return &types.ServiceConfig{
		Name:    "portfolio-api",
		Version: "1.0.0",
		Server: &types.ServerConfig{
			HTTP: &types.HTTPConfig{
				Host:            "0.0.0.0",
				Port:            5000,
				ReadTimeout:     30 * time.Second,
				WriteTimeout:    30 * time.Second,
				IdleTimeout:     120 * time.Second,
				ShutdownTimeout: 10 * time.Second,
				MaxBodySize:     1 << 20,
			},
		},
		Logger: &types.LoggerConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Cache: &types.CacheConfig{
			DefaultTTL:    types.DefaultCacheTTL,
			SweepInterval: 60 * time.Second,
			OpTimeout:     2 * time.Second,
			Redis: &types.RedisConfig{
				Enabled:       false,
				Host:          "localhost",
				Port:          6379,
				KeyPrefix:     "portfolio",
				PoolSize:      10,
				DialTimeout:   5 * time.Second,
				ReadTimeout:   3 * time.Second,
				WriteTimeout:  3 * time.Second,
				ProbeInterval: 10 * time.Second,
			},
		},
		Database: &types.DatabaseConfig{
			Driver:          "sqlite3",
			DSN:             "file:portfolio.db?_foreign_keys=on",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			Migrate:         true,
			KeepAlive: &types.KeepAliveConfig{
				Enabled:  false,
				Interval: 12 * time.Hour,
				Timeout:  10 * time.Second,
			},
		},
		Cron: &types.CronConfig{
			Timezone:        "UTC",
			ShutdownTimeout: 10 * time.Second,
			JobTimeout:      5 * time.Minute,
		},
		Metrics: &types.MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Health: &types.HealthConfig{
			Enabled: true,
			Path:    "/health",
			Timeout: 5 * time.Second,
		},
		API: &types.APIConfig{
			CacheTTL: types.DefaultCacheTTL,
		},
		Middlewares: &types.MiddlewaresConfig{
			Enabled: true,
			Recovery: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"stack_trace": true,
				},
				Weight: 10,
			},
			Metadata: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"generate_request_id": true,
				},
				Weight: 20,
			},
			Logging: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"log_level":   "info",
					"log_headers": false,
				},
				Weight: 30,
			},
			CORS: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"allowed_origins": []string{"*"},
					"allowed_methods": []string{"GET", "POST", "DELETE", "OPTIONS"},
					"allowed_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
					"max_age":         86400,
				},
				Weight: 40,
			},
			Compression: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"level":    6,
					"min_size": 1024,
				},
				Weight: 50,
			},
			Auth: &types.MiddlewareItemConfig{
				Enabled: true,
				Params:  map[string]interface{}{},
				Weight:  60,
			},
			RateLimit: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"requests":       5,
					"window_seconds": 60,
				},
				Weight: 65,
			},
			Cache: &types.MiddlewareItemConfig{
				Enabled: true,
				Params: map[string]interface{}{
					"key_prefix": "api:",
				},
				Weight: 70,
			},
		},
	}
}
