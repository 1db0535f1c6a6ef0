package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Automation is a persisted, optionally recurring goal.
type Automation struct {
	ID             string
	UserID         string
	Goal           string
	ActionType     string
	Niche          string
	RecipientEmail string
	Frequency      string
	ScheduledTime  string
	ScheduledDays  string
	EndDate        *time.Time
	IsActive       bool
	LastRun        *time.Time
	RunCount       int
	NextRunAt      *time.Time
	LockedAt       *time.Time
	Status         string
	Result         string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// Expired reports whether the end date has passed at now.
func (a Automation) Expired(now time.Time) bool {
	return a.EndDate != nil && now.After(*a.EndDate)
}

const automationColumns = `id::text, user_id::text, goal, action_type, niche, recipient_email,
       frequency, scheduled_time, scheduled_days, end_date, is_active, last_run,
       run_count, next_run_at, locked_at, status, result, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomation(row rowScanner) (Automation, error) {
	var a Automation
	var endDate, lastRun, nextRun, lockedAt, completedAt sql.NullTime
	err := row.Scan(&a.ID, &a.UserID, &a.Goal, &a.ActionType, &a.Niche, &a.RecipientEmail,
		&a.Frequency, &a.ScheduledTime, &a.ScheduledDays, &endDate, &a.IsActive, &lastRun,
		&a.RunCount, &nextRun, &lockedAt, &a.Status, &a.Result, &a.CreatedAt, &completedAt)
	if err != nil {
		return Automation{}, err
	}
	a.EndDate = timePtr(endDate)
	a.LastRun = timePtr(lastRun)
	a.NextRunAt = timePtr(nextRun)
	a.LockedAt = timePtr(lockedAt)
	a.CompletedAt = timePtr(completedAt)
	return a, nil
}

// CreateAutomation inserts an automation. ID, CreatedAt and RunCount are
// assigned by the database.
func (s *Store) CreateAutomation(ctx context.Context, a Automation) (Automation, error) {
	if a.Status == "" {
		a.Status = StatusPending
	}
	row := s.DB.QueryRowContext(ctx, `
INSERT INTO automations (user_id, goal, action_type, niche, recipient_email, frequency,
                         scheduled_time, scheduled_days, end_date, is_active, next_run_at, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING `+automationColumns,
		a.UserID, a.Goal, a.ActionType, a.Niche, a.RecipientEmail, a.Frequency,
		a.ScheduledTime, a.ScheduledDays, nullTime(a.EndDate), a.IsActive, nullTime(a.NextRunAt), a.Status)
	created, err := scanAutomation(row)
	if err != nil {
		return Automation{}, fmt.Errorf("create automation: %w", err)
	}
	return created, nil
}

// GetAutomation loads an automation by id.
func (s *Store) GetAutomation(ctx context.Context, id string) (Automation, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+automationColumns+` FROM automations WHERE id=$1`, id)
	a, err := scanAutomation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Automation{}, ErrNotFound
	}
	if err != nil {
		return Automation{}, fmt.Errorf("get automation %s: %w", id, err)
	}
	return a, nil
}

// ListDueAutomations returns active recurring automations whose next run is
// at or before now, oldest first. Failed automations are never due.
func (s *Store) ListDueAutomations(ctx context.Context, now time.Time, limit int) ([]Automation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+automationColumns+`
FROM automations
WHERE is_active AND status <> 'failed' AND frequency <> 'once' AND next_run_at IS NOT NULL AND next_run_at <= $1
ORDER BY next_run_at
LIMIT $2`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list due automations: %w", err)
	}
	defer rows.Close()
	var out []Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan automation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ClaimAutomation locks an automation for execution. The update only applies
// when the row is unlocked or its lock is at or before staleBefore, so two
// dispatchers cannot both claim it. It reports whether this caller won.
func (s *Store) ClaimAutomation(ctx context.Context, id string, now, staleBefore time.Time) (bool, error) {
	var claimed string
	err := s.DB.QueryRowContext(ctx, `
UPDATE automations
SET locked_at=$2, status='queued'
WHERE id=$1 AND is_active AND status <> 'failed' AND (locked_at IS NULL OR locked_at <= $3)
RETURNING id::text`, id, now.UTC(), staleBefore.UTC()).Scan(&claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim automation %s: %w", id, err)
	}
	return true, nil
}

// ReleaseAutomation clears a lock taken by ClaimAutomation that could not be
// handed to a worker.
func (s *Store) ReleaseAutomation(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE automations SET locked_at=NULL, status='scheduled' WHERE id=$1`, id)
	if err := expectOne(res, err); err != nil {
		return fmt.Errorf("release automation %s: %w", id, err)
	}
	return nil
}

// MarkRunning flags an automation as executing.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE automations SET status='running' WHERE id=$1`, id)
	if err := expectOne(res, err); err != nil {
		return fmt.Errorf("mark running %s: %w", id, err)
	}
	return nil
}

// Completion is the outcome of a finished execution.
type Completion struct {
	Status      string
	Result      string
	LastRun     time.Time
	NextRunAt   *time.Time
	CompletedAt *time.Time
}

// FinishAutomation records a completed execution: the lock is cleared and
// run_count incremented. Nil NextRunAt/CompletedAt leave the stored values.
func (s *Store) FinishAutomation(ctx context.Context, id string, c Completion) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE automations
SET locked_at=NULL,
    run_count=run_count+1,
    last_run=$2,
    status=$3,
    result=$4,
    next_run_at=COALESCE($5, next_run_at),
    completed_at=COALESCE($6, completed_at)
WHERE id=$1`, id, c.LastRun.UTC(), c.Status, c.Result, nullTime(c.NextRunAt), nullTime(c.CompletedAt))
	if err := expectOne(res, err); err != nil {
		return fmt.Errorf("finish automation %s: %w", id, err)
	}
	return nil
}

// FailAutomation records an execution failure and clears the lock. A failed
// automation stays out of the due set until its status is reset.
func (s *Store) FailAutomation(ctx context.Context, id, message string) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE automations SET status='failed', result=$2, locked_at=NULL WHERE id=$1`, id, "Error: "+message)
	if err := expectOne(res, err); err != nil {
		return fmt.Errorf("fail automation %s: %w", id, err)
	}
	return nil
}

// ExpireAutomation deactivates an automation whose end date has passed.
func (s *Store) ExpireAutomation(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE automations SET is_active=FALSE, status='expired', locked_at=NULL WHERE id=$1`, id)
	if err := expectOne(res, err); err != nil {
		return fmt.Errorf("expire automation %s: %w", id, err)
	}
	return nil
}

// NextRunFunc computes the next run of an automation from a base time.
type NextRunFunc func(a Automation, from time.Time) (time.Time, bool)

// BackfillNextRuns sets next_run_at for active recurring automations that
// have none, skipping failed ones. It returns how many rows were updated.
func (s *Store) BackfillNextRuns(ctx context.Context, now time.Time, next NextRunFunc) (int, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+automationColumns+`
FROM automations
WHERE is_active AND status <> 'failed' AND frequency <> 'once' AND next_run_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("list automations without next run: %w", err)
	}
	var pending []Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan automation: %w", err)
		}
		pending = append(pending, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	updated := 0
	for _, a := range pending {
		at, ok := next(a, now)
		if !ok {
			continue
		}
		if _, err := s.DB.ExecContext(ctx, `
UPDATE automations SET next_run_at=$2, status='scheduled' WHERE id=$1 AND next_run_at IS NULL`, a.ID, at.UTC()); err != nil {
			return updated, fmt.Errorf("backfill automation %s: %w", a.ID, err)
		}
		updated++
	}
	return updated, nil
}
