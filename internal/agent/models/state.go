package models

import "fmt"

// ActionKind is the explicit intent selected by the caller.
type ActionKind string

const (
	ActionAuto  ActionKind = "auto"
	ActionEmail ActionKind = "email"
	ActionLeads ActionKind = "leads"
)

// RunContext carries the per-run inputs. It is set before the run starts and
// only read by the planner afterwards.
type RunContext struct {
	Action           ActionKind
	Goal             string
	Niche            string
	Recipient        string
	SenderEmail      string
	UserID           string
	AutomationID     string
	SubscriptionTier string
}

// Unlocked reports whether the tier may see full lead details.
func (c RunContext) Unlocked() bool {
	return c.SubscriptionTier == "pro" || c.SubscriptionTier == "business"
}

// AgentState is the mutable state of a single controller run. It is owned by
// one goroutine.
type AgentState struct {
	CurrentTaskID string
	Context       RunContext
	StepCount     int
	ToolHistory   []*ToolCall
	Observations  []Observation

	tasks map[string]*Task
	order []string
}

// NewAgentState returns an empty state for the given run context.
func NewAgentState(rc RunContext) *AgentState {
	return &AgentState{Context: rc, tasks: map[string]*Task{}}
}

// AddTask registers a task. A task with a known ParentID is linked as a child.
func (s *AgentState) AddTask(t *Task) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("task id required")
	}
	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("task %s already registered", t.ID)
	}
	if t.Status == "" {
		t.Status = TaskPending
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	if parent, ok := s.tasks[t.ParentID]; ok && t.ParentID != "" {
		parent.AddChild(t.ID)
	}
	return nil
}

// Task returns a task by id.
func (s *AgentState) Task(id string) (*Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

// Tasks returns the tasks in insertion order.
func (s *AgentState) Tasks() []*Task {
	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	return out
}

// CurrentTask returns the active task, if any.
func (s *AgentState) CurrentTask() *Task {
	if s.CurrentTaskID == "" {
		return nil
	}
	return s.tasks[s.CurrentTaskID]
}

// FirstPending returns the earliest registered pending task.
func (s *AgentState) FirstPending() *Task {
	for _, id := range s.order {
		if t := s.tasks[id]; t.Status == TaskPending {
			return t
		}
	}
	return nil
}

// Record appends a finished call and its observation.
func (s *AgentState) Record(call *ToolCall, obs Observation) {
	s.ToolHistory = append(s.ToolHistory, call)
	s.Observations = append(s.Observations, obs)
}

// Count returns the number of tasks in the given status.
func (s *AgentState) Count(status TaskStatus) int {
	n := 0
	for _, t := range s.tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

// LatestLeads returns the most recent observation payload carrying leads.
func (s *AgentState) LatestLeads() (LeadsFound, bool) {
	for i := len(s.Observations) - 1; i >= 0; i-- {
		if r, ok := s.Observations[i].Payload.(LeadsFound); ok {
			return r, true
		}
	}
	return LeadsFound{}, false
}

// LatestPitch returns the most recent pitch payload.
func (s *AgentState) LatestPitch() (PitchCreated, bool) {
	for i := len(s.Observations) - 1; i >= 0; i-- {
		if r, ok := s.Observations[i].Payload.(PitchCreated); ok {
			return r, true
		}
	}
	return PitchCreated{}, false
}
