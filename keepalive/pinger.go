package keepalive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/utils"
)

const (
	DefaultInterval = 12 * time.Hour
	DefaultTimeout  = 10 * time.Second

	jobName   = "db-keepalive"
	pingQuery = "SELECT 1"
)

// Pinger keeps an idle-suspending database awake by running a trivial query
// on a fixed cadence. It is either stopped or running with exactly one
// schedule; Start on a running pinger replaces the schedule.
type Pinger struct {
	pool      types.ConnPool
	scheduler types.Scheduler
	logger    types.Logger
	metrics   types.MetricsManager
	timeout   time.Duration
	now       func() time.Time

	mu       sync.Mutex
	running  bool
	interval time.Duration

	statsMu  sync.RWMutex
	lastPing time.Time
	lastErr  error
	pinged   bool
}

type Option func(*Pinger)

func WithTimeout(timeout time.Duration) Option {
	return func(p *Pinger) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

func WithMetrics(metrics types.MetricsManager) Option {
	return func(p *Pinger) {
		p.metrics = metrics
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pinger) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPinger(pool types.ConnPool, scheduler types.Scheduler, logger types.Logger, opts ...Option) *Pinger {
	p := &Pinger{
		pool:      pool,
		scheduler: scheduler,
		logger:    logger,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start pings once right away and then every interval. A non-positive
// interval means DefaultInterval. Calling Start again tears the previous
// schedule down first.
func (p *Pinger) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.scheduler.Remove(jobName)
		p.running = false
		p.logger.Info("Database keep-alive restarting", zap.Duration("previous_interval", p.interval))
	}

	p.runScheduled()

	if err := p.scheduler.Schedule(jobName, interval, p.runScheduled); err != nil {
		p.setRunningGauge(0)
		return types.WrapError(err, "failed to schedule keep-alive")
	}

	p.running = true
	p.interval = interval
	p.setRunningGauge(1)

	p.logger.Info(fmt.Sprintf("Database keep-alive started, pinging every %s", utils.HumanDuration(interval)),
		zap.Duration("interval", interval))

	return nil
}

// Stop cancels the schedule. It is a no-op when already stopped; a ping in
// flight is allowed to finish.
func (p *Pinger) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	p.scheduler.Remove(jobName)
	p.running = false
	p.setRunningGauge(0)

	p.logger.Info("Database keep-alive stopped")
	return nil
}

func (p *Pinger) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Interval is the active cadence, or zero when stopped.
func (p *Pinger) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return 0
	}
	return p.interval
}

// LastPing reports when the last ping ran and how it ended.
func (p *Pinger) LastPing() (time.Time, error) {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()

	if !p.pinged {
		return time.Time{}, types.ErrKeepAliveNoPing
	}
	return p.lastPing, p.lastErr
}

// Ping acquires a connection, runs the probe query and always releases the
// connection it acquired. A panicking driver is reported as ErrPingFailed.
func (p *Pinger) Ping(ctx context.Context) (err error) {
	start := p.now()
	defer func() {
		p.record(start, err)
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", types.ErrPingFailed, r)
		}
	}()

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire: %w", types.ErrPingFailed, err)
	}

	defer func() {
		if releaseErr := conn.Release(); releaseErr != nil {
			p.logger.Warn("Failed to release keep-alive connection", zap.Error(releaseErr))
		}
	}()

	if err := conn.Query(ctx, pingQuery); err != nil {
		return fmt.Errorf("%w: %w", types.ErrPingFailed, err)
	}

	return nil
}

func (p *Pinger) HealthCheck(_ context.Context) types.HealthCheck {
	check := types.HealthCheck{
		Name:      "keepalive",
		LastCheck: p.now(),
		Details: map[string]interface{}{
			"running":  p.IsRunning(),
			"interval": utils.HumanDuration(p.Interval()),
		},
	}

	lastPing, err := p.LastPing()
	switch {
	case types.IsError(err, types.ErrKeepAliveNoPing):
		check.Status = types.StatusUnknown
		check.Message = err.Error()
	case err != nil:
		check.Status = types.StatusUnhealthy
		check.Message = err.Error()
		check.Details["last_ping"] = lastPing
	default:
		check.Status = types.StatusHealthy
		check.Details["last_ping"] = lastPing
	}

	return check
}

// runScheduled is the recurring job. Failures are logged and counted, never
// returned, so one bad ping does not end the schedule.
func (p *Pinger) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	_ = p.Ping(ctx)
}

func (p *Pinger) record(at time.Time, err error) {
	p.statsMu.Lock()
	p.lastPing = at
	p.lastErr = err
	p.pinged = true
	p.statsMu.Unlock()

	result := "success"
	if err != nil {
		result = "error"
		p.logger.Error("Database keep-alive ping failed", zap.Error(err))
	} else {
		p.logger.Info("Database keep-alive ping succeeded", zap.Time("at", at))
	}

	if p.metrics != nil {
		p.metrics.Counter("db_keepalive_pings_total", map[string]string{"result": result}).Inc()
	}
}

func (p *Pinger) setRunningGauge(value float64) {
	if p.metrics == nil {
		return
	}
	p.metrics.Gauge("db_keepalive_running", nil).Set(value)
}
