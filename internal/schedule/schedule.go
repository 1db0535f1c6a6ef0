// Package schedule turns an automation's recurrence settings into absolute
// run times.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
)

// Frequency is the recurrence kind stored on an automation.
type Frequency string

const (
	Once   Frequency = "once"
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
	Custom Frequency = "custom"
)

// DefaultHour and DefaultMinute are used whenever scheduled_time is absent
// or cannot be parsed.
const (
	DefaultHour   = 9
	DefaultMinute = 0
)

// ParseFrequency normalises user input. Unknown values are returned as-is so
// ComputeNextRun can reject them.
func ParseFrequency(s string) Frequency {
	return Frequency(strings.ToLower(strings.TrimSpace(s)))
}

// Recurring reports whether the frequency produces more than one run.
func (f Frequency) Recurring() bool {
	switch f {
	case Daily, Weekly, Custom:
		return true
	}
	return false
}

var dayIndex = map[string]int{
	"mon": 0,
	"tue": 1,
	"wed": 2,
	"thu": 3,
	"fri": 4,
	"sat": 5,
	"sun": 6,
}

// ParseTime parses "HH:MM" (or "HH"). Malformed or out of range input falls
// back to 09:00.
func ParseTime(s string) (hour, minute int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultHour, DefaultMinute
	}
	parts := strings.Split(s, ":")
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return DefaultHour, DefaultMinute
	}
	m := 0
	if len(parts) > 1 {
		m, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return DefaultHour, DefaultMinute
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return DefaultHour, DefaultMinute
	}
	return h, m
}

// ParseDays parses a comma separated list of weekday codes ("mon,wed") into
// sorted, de-duplicated indices where Monday is 0 and Sunday is 6. Unknown
// codes are ignored.
func ParseDays(s string) []int {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	seen := make(map[int]struct{})
	var out []int
	for _, part := range strings.Split(s, ",") {
		idx, ok := dayIndex[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// MondayIndex converts a time.Weekday into the Monday=0 indexing used by
// ParseDays.
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// ComputeNextRun returns the first run time strictly after from. The bool is
// false for one-shot and unknown frequencies. The result is expressed in
// from's location; callers pass UTC.
func ComputeNextRun(freq Frequency, scheduledTime, scheduledDays string, from time.Time) (time.Time, bool) {
	hour, minute := ParseTime(scheduledTime)
	base := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())

	var dow string
	switch freq {
	case Daily:
		dow = "*"
	case Weekly, Custom:
		days := ParseDays(scheduledDays)
		if len(days) == 0 {
			days = []int{MondayIndex(from.Weekday())}
		}
		dow = cronWeekdays(days)
	default:
		return time.Time{}, false
	}

	expr, err := cronexpr.Parse(fmt.Sprintf("%d %d * * %s", minute, hour, dow))
	if err != nil {
		return base.AddDate(0, 0, 7), true
	}
	next := expr.Next(from)
	if next.IsZero() || !next.After(from) {
		return base.AddDate(0, 0, 7), true
	}
	return next, true
}

// cronWeekdays renders Monday-based indices as a cron day-of-week list
// (Sunday=0).
func cronWeekdays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa((d+1)%7))
	}
	return strings.Join(parts, ",")
}
