package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

// envOverrides lists the variables a deployment may set on top of the file.
// Unset variables leave the pointer nil and the file value untouched.
type envOverrides struct {
	Port              *int           `env:"PORT"`
	LogLevel          *string        `env:"LOG_LEVEL"`
	RedisURL          *string        `env:"REDIS_URL"`
	RedisEnabled      *bool          `env:"REDIS_ENABLED"`
	CacheDefaultTTL   *time.Duration `env:"CACHE_DEFAULT_TTL"`
	DatabaseDriver    *string        `env:"DATABASE_DRIVER"`
	DatabaseURL       *string        `env:"DATABASE_URL"`
	KeepAliveInterval *time.Duration `env:"KEEPALIVE_INTERVAL"`
	KeepAliveEnabled  *bool          `env:"KEEPALIVE_ENABLED"`
	AdminToken        *string        `env:"ADMIN_TOKEN"`
}

func applyEnvOverrides(config *types.ServiceConfig, environ map[string]string) error {
	var overrides envOverrides

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}

	if err := env.ParseWithOptions(&overrides, opts); err != nil {
		return types.Errorf(types.ErrConfigEnvFailed, "%v", err)
	}

	// Sections nulled out in the file are left for validation to reject.
	if overrides.Port != nil && config.Server != nil && config.Server.HTTP != nil {
		config.Server.HTTP.Port = *overrides.Port
	}

	if overrides.LogLevel != nil {
		if config.Logger == nil {
			config.Logger = &types.LoggerConfig{}
		}
		config.Logger.Level = *overrides.LogLevel
	}

	if overrides.AdminToken != nil {
		if config.Middlewares == nil {
			config.Middlewares = &types.MiddlewaresConfig{}
		}
		if config.Middlewares.Auth == nil {
			config.Middlewares.Auth = &types.MiddlewareItemConfig{Enabled: true, Weight: 60}
		}
		if config.Middlewares.Auth.Params == nil {
			config.Middlewares.Auth.Params = map[string]interface{}{}
		}
		config.Middlewares.Auth.Params["token"] = *overrides.AdminToken
	}

	if config.Cache != nil && (overrides.RedisURL != nil || overrides.RedisEnabled != nil) {
		if config.Cache.Redis == nil {
			config.Cache.Redis = &types.RedisConfig{}
		}
		if overrides.RedisURL != nil {
			config.Cache.Redis.URL = *overrides.RedisURL
			// A URL without an explicit switch means the deployment wants Redis.
			config.Cache.Redis.Enabled = *overrides.RedisURL != ""
		}
		if overrides.RedisEnabled != nil {
			config.Cache.Redis.Enabled = *overrides.RedisEnabled
		}
	}

	if overrides.CacheDefaultTTL != nil && config.Cache != nil {
		config.Cache.DefaultTTL = *overrides.CacheDefaultTTL
	}

	if config.Database == nil {
		return nil
	}

	if overrides.DatabaseDriver != nil {
		config.Database.Driver = *overrides.DatabaseDriver
	}

	if overrides.DatabaseURL != nil {
		config.Database.DSN = *overrides.DatabaseURL
	}

	if overrides.KeepAliveInterval != nil || overrides.KeepAliveEnabled != nil {
		if config.Database.KeepAlive == nil {
			config.Database.KeepAlive = &types.KeepAliveConfig{}
		}
		if overrides.KeepAliveInterval != nil {
			config.Database.KeepAlive.Interval = *overrides.KeepAliveInterval
		}
		if overrides.KeepAliveEnabled != nil {
			config.Database.KeepAlive.Enabled = *overrides.KeepAliveEnabled
		}
	}

	return nil
}
