package types

import (
	"time"

	"github.com/robfig/cron/v3"
)

type Scheduler interface {
	LifecycleManager
	Schedule(name string, interval time.Duration, job func()) error
	Remove(name string) bool
	Has(name string) bool
	Len() int
}

type JobEntry struct {
	ID            cron.EntryID
	Name          string
	Interval      time.Duration
	AddedAt       time.Time
	LastRun       time.Time
	NextRun       time.Time
	LastDuration  time.Duration
	TotalDuration time.Duration
	RunCount      int64
	Error         error
}
