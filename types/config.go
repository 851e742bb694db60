package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
}

type ServiceConfig struct {
	Name        string             `yaml:"name" json:"name" validate:"required"`
	Version     string             `yaml:"version" json:"version" validate:"required"`
	Server      *ServerConfig      `yaml:"server" json:"server" validate:"required"`
	Logger      *LoggerConfig      `yaml:"logger" json:"logger"`
	Cache       *CacheConfig       `yaml:"cache" json:"cache" validate:"required"`
	Database    *DatabaseConfig    `yaml:"database" json:"database" validate:"required"`
	Cron        *CronConfig        `yaml:"cron" json:"cron"`
	Middlewares *MiddlewaresConfig `yaml:"middlewares" json:"middlewares"`
	Metrics     *MetricsConfig     `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig      `yaml:"health" json:"health"`
	API         *APIConfig         `yaml:"api" json:"api"`
}

type ServerConfig struct {
	HTTP *HTTPConfig `yaml:"http" json:"http" validate:"required"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxBodySize     int           `yaml:"max_body_size" json:"max_body_size" validate:"min=0"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=console json"`
	Output string `yaml:"output" json:"output" validate:"omitempty,oneof=stdout stderr file"`
	File   string `yaml:"file" json:"file" validate:"required_if=Output file"`
}

type CacheConfig struct {
	DefaultTTL    time.Duration `yaml:"default_ttl" json:"default_ttl" validate:"min=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval" validate:"min=0"`
	OpTimeout     time.Duration `yaml:"op_timeout" json:"op_timeout" validate:"min=0"`
	Redis         *RedisConfig  `yaml:"redis" json:"redis"`
}

type RedisConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	URL           string        `yaml:"url" json:"url"`
	Host          string        `yaml:"host" json:"host"`
	Port          int           `yaml:"port" json:"port" validate:"min=0,max=65535"`
	Password      string        `yaml:"password" json:"password"`
	DB            int           `yaml:"db" json:"db" validate:"min=0"`
	KeyPrefix     string        `yaml:"key_prefix" json:"key_prefix"`
	PoolSize      int           `yaml:"pool_size" json:"pool_size" validate:"min=0"`
	DialTimeout   time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout   time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ProbeInterval time.Duration `yaml:"probe_interval" json:"probe_interval"`
}

type DatabaseConfig struct {
	Driver          string           `yaml:"driver" json:"driver" validate:"required,oneof=sqlite3 postgres"`
	DSN             string           `yaml:"dsn" json:"dsn" validate:"required"`
	MaxOpenConns    int              `yaml:"max_open_conns" json:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int              `yaml:"max_idle_conns" json:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration    `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	Migrate         bool             `yaml:"migrate" json:"migrate"`
	KeepAlive       *KeepAliveConfig `yaml:"keepalive" json:"keepalive"`
}

type KeepAliveConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Interval time.Duration `yaml:"interval" json:"interval" validate:"min=0"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" validate:"min=0"`
}

type CronConfig struct {
	Timezone        string        `yaml:"timezone" json:"timezone"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	JobTimeout      time.Duration `yaml:"job_timeout" json:"job_timeout"`
}

type MiddlewaresConfig struct {
	Enabled     bool                  `yaml:"enabled" json:"enabled"`
	Recovery    *MiddlewareItemConfig `yaml:"recovery" json:"recovery"`
	Metadata    *MiddlewareItemConfig `yaml:"metadata" json:"metadata"`
	Logging     *MiddlewareItemConfig `yaml:"logging" json:"logging"`
	CORS        *MiddlewareItemConfig `yaml:"cors" json:"cors"`
	Compression *MiddlewareItemConfig `yaml:"compression" json:"compression"`
	Auth        *MiddlewareItemConfig `yaml:"auth" json:"auth"`
	RateLimit   *MiddlewareItemConfig `yaml:"ratelimit" json:"ratelimit"`
	Cache       *MiddlewareItemConfig `yaml:"cache" json:"cache"`
}

type MiddlewareItemConfig struct {
	Enabled bool                   `yaml:"enabled" json:"enabled"`
	Weight  int                    `yaml:"weight" json:"weight" validate:"min=0"`
	Params  map[string]interface{} `yaml:"params" json:"params"`
}

type MetricsConfig struct {
	Enabled bool              `yaml:"enabled" json:"enabled"`
	Path    string            `yaml:"path" json:"path" validate:"required_if=Enabled true"`
	Prefix  string            `yaml:"prefix" json:"prefix"`
	Labels  map[string]string `yaml:"labels" json:"labels"`
}

type HealthConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Path    string        `yaml:"path" json:"path" validate:"required_if=Enabled true"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type APIConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl" validate:"min=0"`
}
