package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/qqmakana/ai-sales-agent/internal/logger"
)

// CompletionMessage is the summary message of every finished run.
const CompletionMessage = "Agent execution completed"

// Outcome says why the controller loop stopped.
type Outcome string

const (
	OutcomeDone            Outcome = "done"
	OutcomeBudgetExhausted Outcome = "step_budget_exhausted"
	OutcomeCancelled       Outcome = "cancelled"
)

const (
	DefaultMaxSteps          = 10
	DefaultMaxRetriesPerTool = 2
)

// Config bounds a controller run.
type Config struct {
	MaxSteps          int
	MaxRetriesPerTool int
}

func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.MaxRetriesPerTool <= 0 {
		c.MaxRetriesPerTool = DefaultMaxRetriesPerTool
	}
	return c
}

// Summary reports a finished run.
type Summary struct {
	Message   string
	Outcome   Outcome
	Steps     int
	Completed int
	Failed    int
	State     *models.AgentState
}

// Controller runs the plan/execute/observe loop for one goal at a time.
type Controller struct {
	cfg     Config
	planner Planner
	tools   ToolLookup
	log     zerolog.Logger

	steps     metric.Int64Counter
	toolCalls metric.Int64Counter
}

// NewController wires a controller. Metrics are recorded on the global
// OpenTelemetry meter provider.
func NewController(cfg Config, planner Planner, tools ToolLookup, log zerolog.Logger) *Controller {
	meter := otel.Meter("salesagent/controller")
	steps, _ := meter.Int64Counter("salesagent_controller_steps_total",
		metric.WithDescription("Controller loop iterations"))
	toolCalls, _ := meter.Int64Counter("salesagent_tool_calls_total",
		metric.WithDescription("Tool executions by tool and status"))
	return &Controller{
		cfg:       cfg.withDefaults(),
		planner:   planner,
		tools:     tools,
		log:       logger.Component(log, "controller"),
		steps:     steps,
		toolCalls: toolCalls,
	}
}

// Run executes a goal with an empty run context.
func (c *Controller) Run(ctx context.Context, goal string) Summary {
	return c.RunWith(ctx, models.RunContext{}, goal)
}

// RunWith executes a goal with the supplied run context. The raw goal may
// carry the legacy [email]/[leads]/[niche:...] tags.
func (c *Controller) RunWith(ctx context.Context, rc models.RunContext, goal string) (summary Summary) {
	req := models.ParseGoal(goal).Merge(rc.Action, rc.Niche, rc.Recipient)
	if rc.Goal == "" {
		rc.Goal = req.Goal
	}
	if rc.Niche == "" {
		rc.Niche = req.Niche
	}
	if rc.Recipient == "" {
		rc.Recipient = req.Recipient
	}
	state := models.NewAgentState(rc)
	log := c.log.With().Str(logger.AutomationField, rc.AutomationID).Logger()

	summary = Summary{Message: CompletionMessage, Outcome: OutcomeDone, State: state}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("controller loop panicked")
		}
		summary.Steps = state.StepCount
		summary.Completed = state.Count(models.TaskCompleted)
		summary.Failed = state.Count(models.TaskFailed)
		log.Info().Str("outcome", string(summary.Outcome)).Int("steps", summary.Steps).
			Int("completed", summary.Completed).Int("failed", summary.Failed).Msg(summary.Message)
	}()

	for _, name := range c.planner.Decompose(req, rc) {
		_ = state.AddTask(&models.Task{ID: uuid.NewString(), Goal: name, Status: models.TaskPending})
	}

	failures := map[string]int{}
	for state.StepCount < c.cfg.MaxSteps {
		if err := ctx.Err(); err != nil {
			summary.Outcome = OutcomeCancelled
			log.Warn().Err(err).Int(logger.StepField, state.StepCount).Msg("run cancelled")
			return summary
		}
		state.StepCount++
		c.steps.Add(ctx, 1)

		call := c.planner.NextAction(state)
		if call == nil {
			return summary
		}
		stepLog := log.With().Int(logger.StepField, state.StepCount).Str(logger.ToolField, call.Spec.Name).Logger()

		tool, ok := c.tools.Get(call.Spec.Name)
		if !ok {
			stepLog.Warn().Msg("tool not found, skipping step")
			continue
		}

		started := time.Now().UTC()
		call.Status = models.ToolRunning
		call.StartedAt = &started
		obs := tool.Execute(ctx, call.Arguments)
		obs.CallID = call.CallID
		finished := time.Now().UTC()
		call.FinishedAt = &finished
		call.Status = obs.Status
		call.Error = obs.Error
		state.Record(call, obs)
		c.toolCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", call.Spec.Name),
			attribute.String("status", string(obs.Status)),
		))

		task := state.CurrentTask()
		if task == nil {
			continue
		}
		if obs.Succeeded() {
			task.Status = models.TaskCompleted
			state.CurrentTaskID = ""
			stepLog.Info().Str(logger.TaskField, task.Goal).Str(logger.CallField, call.CallID).Msg("task completed")
			continue
		}

		failures[task.ID]++
		stepLog.Warn().Str(logger.TaskField, task.Goal).Str("error", obs.Error).
			Int("attempt", failures[task.ID]).Msg("tool call errored")
		if failures[task.ID] >= c.cfg.MaxRetriesPerTool {
			task.Status = models.TaskFailed
			task.AddNote(fmt.Sprintf("%s failed after %d attempts: %s", call.Spec.Name, failures[task.ID], obs.Error))
			state.CurrentTaskID = ""
		}
	}

	if state.Count(models.TaskPending)+state.Count(models.TaskInProgress) > 0 {
		summary.Outcome = OutcomeBudgetExhausted
	}
	return summary
}
