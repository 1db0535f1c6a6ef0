// Package models holds the data contracts shared by the planner, the
// controller and the tools.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle of a decomposed task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Terminal reports whether the planner must never revisit the task.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// ToolStatus is the lifecycle of a tool call.
type ToolStatus string

const (
	ToolRequested ToolStatus = "requested"
	ToolRunning   ToolStatus = "running"
	ToolSucceeded ToolStatus = "succeeded"
	ToolErrored   ToolStatus = "errored"
)

// Task is one step of a goal decomposition.
type Task struct {
	ID       string     `json:"id"`
	Goal     string     `json:"goal"`
	Status   TaskStatus `json:"status"`
	Priority int        `json:"priority"`
	ParentID string     `json:"parent_id,omitempty"`
	Children []string   `json:"children,omitempty"`
	Notes    []string   `json:"notes,omitempty"`
}

// AddChild links a child task id.
func (t *Task) AddChild(id string) { t.Children = append(t.Children, id) }

// AddNote attaches a planner or controller note.
func (t *Task) AddNote(note string) { t.Notes = append(t.Notes, note) }

// ToolSpec is the immutable descriptor of a tool. InputSchema and
// OutputSchema are JSON Schema documents.
type ToolSpec struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	InputSchema    map[string]any `json:"input_schema,omitempty"`
	OutputSchema   map[string]any `json:"output_schema,omitempty"`
	TimeoutSeconds int            `json:"timeout_seconds"`
	MaxRetries     int            `json:"max_retries"`
}

const (
	DefaultToolTimeoutSeconds = 60
	DefaultToolMaxRetries     = 1
)

// Timeout returns the per-call deadline, applying the default for zero specs.
func (s ToolSpec) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return DefaultToolTimeoutSeconds * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ToolCall records one invocation. It is not modified after FinishedAt is set.
type ToolCall struct {
	Spec        ToolSpec       `json:"spec"`
	Arguments   map[string]any `json:"arguments"`
	CallID      string         `json:"call_id"`
	Status      ToolStatus     `json:"status"`
	RequestedAt time.Time      `json:"requested_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// NewToolCall builds a call in the Requested state.
func NewToolCall(spec ToolSpec, args map[string]any) *ToolCall {
	if args == nil {
		args = map[string]any{}
	}
	return &ToolCall{
		Spec:        spec,
		Arguments:   args,
		CallID:      uuid.NewString(),
		Status:      ToolRequested,
		RequestedAt: time.Now().UTC(),
	}
}

// Observation is the immutable outcome of one executed tool call.
type Observation struct {
	CallID     string     `json:"call_id"`
	OutputText string     `json:"output_text"`
	Payload    Result     `json:"-"`
	Status     ToolStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Succeeded is a convenience for Status == ToolSucceeded.
func (o Observation) Succeeded() bool { return o.Status == ToolSucceeded }
