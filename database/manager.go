package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Manager owns the *sql.DB handle for the process.
type Manager struct {
	db     *sql.DB
	driver string
	logger types.Logger
	pool   *SQLPool

	closeOnce sync.Once
	closeErr  error
}

// Open connects, verifies the connection and, when enabled, applies the
// embedded migrations for the configured driver.
func Open(ctx context.Context, config *types.DatabaseConfig, logger types.Logger) (*Manager, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	switch config.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, types.Errorf(types.ErrDatabaseDriver, "driver: %q", config.Driver)
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, types.Errorf(types.ErrDatabaseOpenFailed, "open %s: %v", config.Driver, err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", types.ErrDatabaseOpenFailed, config.Driver, err)
	}

	if config.Migrate {
		applied, err := applyMigrations(ctx, db, config.Driver)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if applied > 0 {
			logger.Info("Database migrations applied", zap.Int("count", applied))
		}
	}

	logger.Info("Database opened",
		zap.String("driver", config.Driver),
		zap.Int("max_open_conns", config.MaxOpenConns))

	return &Manager{
		db:     db,
		driver: config.Driver,
		logger: logger,
		pool:   NewSQLPool(db),
	}, nil
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

func (m *Manager) Driver() string {
	return m.driver
}

// Pool is the acquire/release view of the handle used by the keep-alive pinger.
func (m *Manager) Pool() *SQLPool {
	return m.pool
}

func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.db.Close()
		if m.closeErr != nil {
			m.logger.Error("Failed to close database", zap.Error(m.closeErr))
			return
		}
		m.logger.Info("Database closed")
	})
	return m.closeErr
}

func (m *Manager) HealthCheck(ctx context.Context) types.HealthCheck {
	start := time.Now()
	stats := m.db.Stats()

	check := types.HealthCheck{
		Name:      "database",
		Status:    types.StatusHealthy,
		LastCheck: start,
		Details: map[string]interface{}{
			"driver":           m.driver,
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		},
	}

	if err := m.db.PingContext(ctx); err != nil {
		check.Status = types.StatusUnhealthy
		check.Message = err.Error()
	}

	check.Duration = time.Since(start)
	return check
}

func (m *Manager) Repository() *Repository {
	return NewRepository(m.db, m.driver)
}
