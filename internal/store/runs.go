package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AutomationRun is the durable history of one execution.
type AutomationRun struct {
	ID           string
	AutomationID string
	Status       string
	Summary      string
	Steps        int
	ToolCalls    json.RawMessage
	Observations json.RawMessage
	StartedAt    time.Time
	FinishedAt   time.Time
}

// RecordRun stores a run history row and returns its id.
func (s *Store) RecordRun(ctx context.Context, r AutomationRun) (string, error) {
	if r.AutomationID == "" {
		return "", fmt.Errorf("record run: automation id required")
	}
	calls := r.ToolCalls
	if len(calls) == 0 {
		calls = json.RawMessage("[]")
	}
	obs := r.Observations
	if len(obs) == 0 {
		obs = json.RawMessage("[]")
	}
	var id string
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO automation_runs (automation_id, status, summary, steps, tool_calls, observations, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id::text`, r.AutomationID, r.Status, r.Summary, r.Steps, []byte(calls), []byte(obs),
		r.StartedAt.UTC(), r.FinishedAt.UTC()).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

// ListRuns returns the newest runs of an automation.
func (s *Store) ListRuns(ctx context.Context, automationID string, limit int) ([]AutomationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id::text, automation_id::text, status, summary, steps, tool_calls, observations, started_at, finished_at
FROM automation_runs
WHERE automation_id=$1
ORDER BY started_at DESC
LIMIT $2`, automationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []AutomationRun
	for rows.Next() {
		var (
			r           AutomationRun
			calls, obsv []byte
		)
		if err := rows.Scan(&r.ID, &r.AutomationID, &r.Status, &r.Summary, &r.Steps, &calls, &obsv,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.ToolCalls = calls
		r.Observations = obsv
		out = append(out, r)
	}
	return out, rows.Err()
}
