package scheduler

import (
	"time"

	"github.com/qqmakana/ai-sales-agent/internal/schedule"
	"github.com/qqmakana/ai-sales-agent/internal/store"
)

// NextRun computes the run after from for a persisted automation.
func NextRun(a store.Automation, from time.Time) (time.Time, bool) {
	return schedule.ComputeNextRun(schedule.ParseFrequency(a.Frequency), a.ScheduledTime, a.ScheduledDays, from.UTC())
}

var _ store.NextRunFunc = NextRun
