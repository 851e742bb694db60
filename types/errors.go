package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigInvalidPath    = errors.New("config invalid path")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigLoadFailed     = errors.New("config load failed")
	ErrConfigValidateFailed = errors.New("config validate failed")
	ErrConfigEnvFailed      = errors.New("config env override failed")
)

var (
	ErrServerNotRunning     = errors.New("server not running")
	ErrServerAlreadyRunning = errors.New("server already running")
	ErrServerStartFailed    = errors.New("server start failed")
	ErrServerStopFailed     = errors.New("server stop failed")
	ErrHandlerIsNil         = errors.New("handler is nil")
	ErrRouteInvalid         = errors.New("route invalid")
)

var (
	ErrMiddlewareNotFound    = errors.New("middleware not found")
	ErrMiddlewareInvalidType = errors.New("middleware invalid type")
	ErrAuthTokenInvalid      = errors.New("auth token invalid")
)

var (
	ErrCacheKeyEmpty     = errors.New("cache key empty")
	ErrCacheIsRunning    = errors.New("cache janitor is running")
	ErrCacheNotRunning   = errors.New("cache janitor is not running")
	ErrStoreUnavailable  = errors.New("external store unavailable")
	ErrPatternInvalid    = errors.New("cache pattern invalid")
	ErrCacheWriteFailed  = errors.New("cache write failed")
	ErrCacheDrainTimeout = errors.New("cache drain timeout")
)

var (
	ErrPingFailed         = errors.New("database ping failed")
	ErrPoolAcquireFailed  = errors.New("pool acquire failed")
	ErrKeepAliveNoPing    = errors.New("keepalive has not pinged yet")
	ErrDatabaseDriver     = errors.New("database driver unsupported")
	ErrDatabaseOpenFailed = errors.New("database open failed")
	ErrMigrationFailed    = errors.New("database migration failed")
	ErrNotFound           = errors.New("not found")
)

var (
	ErrCronJobNotFound       = errors.New("cron job not found")
	ErrCronIsRunning         = errors.New("cron is running")
	ErrCronIsNotRunning      = errors.New("cron is not running")
	ErrCronSchedulerStopped  = errors.New("cron scheduler stopped")
	ErrCronExpressionInvalid = errors.New("cron expression invalid")
	ErrCronJobFailed         = errors.New("cron job failed")
	ErrCronJobNameIsEmpty    = errors.New("cron job name is empty")
	ErrCronJobIsNil          = errors.New("cron job is nil")
	ErrCronJobTimeout        = errors.New("cron job timeout")
)

var (
	ErrMetricsStartFailed = errors.New("metrics start failed")
	ErrMetricsIsRunning   = errors.New("metrics manager is running")
)

var (
	ErrHealthCheckFailed  = errors.New("health check failed")
	ErrHealthCheckTimeout = errors.New("health check timeout")
	ErrHealthIsNotRunning = errors.New("health manager is not running")
)

var (
	ErrLogFileIsEmpty     = errors.New("log file is empty")
	ErrLogFileWrongFormat = errors.New("log file wrong format")
)

var (
	ErrServiceIsRunning     = errors.New("service is running")
	ErrServiceIsNotRunning  = errors.New("service is not running")
	ErrComponentStartFailed = errors.New("component start failed")
	ErrComponentStopFailed  = errors.New("component stop failed")
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidState     = errors.New("invalid state")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
