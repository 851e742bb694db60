package cron

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Fahmiduzzaman2003/MyPortfolio-sub001/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// Scheduler runs named fixed-interval jobs. Scheduling a name that is already
// registered replaces the old entry, so a name never has two live schedules.
type Scheduler struct {
	ctx             context.Context
	cancel          context.CancelFunc
	logger          types.Logger
	metrics         types.MetricsManager
	cron            *cron.Cron
	jobs            map[string]*types.JobEntry
	mu              sync.RWMutex
	state           atomic.Value
	shutdownTimeout time.Duration
	jobTimeout      time.Duration
}

func NewScheduler(ctx context.Context, config *types.CronConfig, logger types.Logger, metrics types.MetricsManager) *Scheduler {
	timezone := time.UTC
	shutdownTimeout := 10 * time.Second
	jobTimeout := 5 * time.Minute

	if config != nil {
		if loc, err := time.LoadLocation(config.Timezone); err == nil && config.Timezone != "" {
			timezone = loc
		}
		if config.ShutdownTimeout > 0 {
			shutdownTimeout = config.ShutdownTimeout
		}
		if config.JobTimeout > 0 {
			jobTimeout = config.JobTimeout
		}
	}

	cronL := safeCronLogger{logger: logger}

	schedulerCtx, cancel := context.WithCancel(ctx)

	s := &Scheduler{
		ctx:     schedulerCtx,
		cancel:  cancel,
		logger:  logger,
		metrics: metrics,
		cron: cron.New(
			cron.WithLocation(timezone),
			cron.WithSeconds(),
			cron.WithLogger(cronL),
			cron.WithChain(cron.Recover(cronL)),
		),
		jobs:            make(map[string]*types.JobEntry),
		shutdownTimeout: shutdownTimeout,
		jobTimeout:      jobTimeout,
	}

	s.state.Store(StateStopped)

	return s
}

// Schedule runs job every interval (whole seconds, at least one) until the
// name is removed or rescheduled.
func (s *Scheduler) Schedule(name string, interval time.Duration, job func()) error {
	if name == "" {
		return types.ErrCronJobNameIsEmpty
	}

	if job == nil {
		return types.ErrCronJobIsNil
	}

	if interval <= 0 {
		return types.Errorf(types.ErrCronExpressionInvalid, "interval %v", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return types.ErrCronSchedulerStopped
	}

	if old, exists := s.jobs[name]; exists {
		s.cron.Remove(old.ID)
		delete(s.jobs, name)
		s.logger.Debug("Cron job replaced", zap.String("job_name", name))
	}

	entryID := s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.wrapJob(name, job)))

	entry := &types.JobEntry{
		ID:       entryID,
		Name:     name,
		Interval: interval,
		AddedAt:  time.Now(),
	}

	if cronEntry := s.cron.Entry(entryID); cronEntry.Valid() {
		entry.NextRun = cronEntry.Next
	}

	s.jobs[name] = entry

	s.logger.Info("Cron job scheduled",
		zap.String("job_name", name),
		zap.Duration("interval", interval))

	return nil
}

func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return false
	}

	s.cron.Remove(entry.ID)
	delete(s.jobs, name)

	s.logger.Info("Cron job removed", zap.String("job_name", name))
	return true
}

func (s *Scheduler) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.jobs[name]
	return exists
}

// Len counts live cron entries, not just names, so a leaked entry shows up.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Job returns a snapshot of the named job's stats.
func (s *Scheduler) Job(name string) (types.JobEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.jobs[name]
	if !exists {
		return types.JobEntry{}, false
	}
	return *entry, true
}

func (s *Scheduler) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrCronIsRunning
	}

	s.cron.Start()
	s.setState(StateRunning)
	s.setSchedulerStatus(1)

	s.logger.Info("Cron scheduler started")
	return nil
}

// Stop prevents new runs and waits for running jobs, up to the shutdown timeout.
func (s *Scheduler) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrCronIsNotRunning
	}
	defer s.setState(StateStopped)

	stopCtx := s.cron.Stop()
	s.setSchedulerStatus(0)

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.Info("Cron scheduler stopped gracefully")
		return nil
	case <-timer.C:
		s.cancel()
		s.logger.Warn("Cron scheduler stop timeout, cancelling running jobs")
		return types.Errorf(types.ErrCronJobTimeout, "jobs still running after %v", s.shutdownTimeout)
	}
}

func (s *Scheduler) IsRunning() bool {
	return s.getState() == StateRunning
}

func (s *Scheduler) getState() State {
	return s.state.Load().(State)
}

func (s *Scheduler) setState(newState State) bool {
	currentState := s.getState()
	return s.state.CompareAndSwap(currentState, newState)
}

func (s *Scheduler) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}

func (s *Scheduler) wrapJob(jobName string, job func()) func() {
	return func() {
		startTime := time.Now()
		s.logger.Debug("Cron job started", zap.String("job_name", jobName))

		s.incActiveJobsGauge()
		defer s.decActiveJobsGauge()

		jobCtx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
		defer cancel()

		done := make(chan error, 1)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- types.Errorf(types.ErrCronJobFailed, "job panic: %v", r)
				}
			}()
			job()
			done <- nil
		}()

		var err error
		select {
		case err = <-done:
		case <-jobCtx.Done():
			if types.IsError(jobCtx.Err(), context.DeadlineExceeded) {
				err = types.Errorf(types.ErrCronJobTimeout, "timeout after %v", s.jobTimeout)
			} else {
				err = types.WrapError(jobCtx.Err(), "job canceled")
			}
		}

		duration := time.Since(startTime)

		result := "success"
		if err != nil {
			result = "error"
		}

		s.incJobExecutionsCounter(jobName, result)
		s.observeJobDuration(jobName, duration.Seconds())
		s.updateJobStats(jobName, startTime, duration, err)

		if err != nil {
			s.logger.Error("Cron job failed",
				zap.String("job_name", jobName),
				zap.Duration("duration", duration),
				zap.Error(err))
			return
		}

		s.logger.Debug("Cron job completed",
			zap.String("job_name", jobName),
			zap.Duration("duration", duration))
	}
}

func (s *Scheduler) updateJobStats(jobName string, startTime time.Time, duration time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.jobs[jobName]
	if !exists {
		// Removed while running.
		return
	}

	entry.LastRun = startTime
	entry.LastDuration = duration
	entry.TotalDuration += duration
	entry.RunCount++
	entry.Error = err

	if cronEntry := s.cron.Entry(entry.ID); cronEntry.Valid() {
		entry.NextRun = cronEntry.Next
	}
}

func (s *Scheduler) incJobExecutionsCounter(jobName, result string) {
	if s.metrics == nil {
		return
	}

	s.metrics.Counter("cron_job_executions_total", map[string]string{
		"job_name": jobName,
		"result":   result,
	}).Inc()
}

func (s *Scheduler) observeJobDuration(jobName string, seconds float64) {
	if s.metrics == nil {
		return
	}

	s.metrics.Histogram("cron_job_duration_seconds",
		[]float64{0.01, 0.1, 1.0, 10.0, 60.0, 300.0},
		map[string]string{"job_name": jobName},
	).Observe(seconds)
}

func (s *Scheduler) incActiveJobsGauge() {
	if s.metrics == nil {
		return
	}
	s.metrics.Gauge("cron_active_jobs", nil).Inc()
}

func (s *Scheduler) decActiveJobsGauge() {
	if s.metrics == nil {
		return
	}
	s.metrics.Gauge("cron_active_jobs", nil).Dec()
}

func (s *Scheduler) setSchedulerStatus(value float64) {
	if s.metrics == nil {
		return
	}
	s.metrics.Gauge("cron_scheduler_running", nil).Set(value)
}

// safeCronLogger adapts types.Logger to cron.Logger.
type safeCronLogger struct {
	logger types.Logger
}

func (l safeCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, toFields(keysAndValues)...)
}

func (l safeCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(toFields(keysAndValues), zap.Error(err))
	l.logger.Error(msg, fields...)
}

func toFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}

	return fields
}
