package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qqmakana/ai-sales-agent/internal/agent/core"
	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/qqmakana/ai-sales-agent/internal/logger"
	"github.com/qqmakana/ai-sales-agent/internal/scheduler"
	"github.com/qqmakana/ai-sales-agent/internal/store"
	"github.com/qqmakana/ai-sales-agent/tools/email"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Store is the persistence an automation run touches.
type Store interface {
	GetAutomation(ctx context.Context, id string) (store.Automation, error)
	GetUser(ctx context.Context, id string) (store.User, error)
	ReleaseAutomation(ctx context.Context, id string) error
	ExpireAutomation(ctx context.Context, id string) error
	MarkRunning(ctx context.Context, id string) error
	FinishAutomation(ctx context.Context, id string, c store.Completion) error
	FailAutomation(ctx context.Context, id, message string) error
	IncrementAutomationsCount(ctx context.Context, userID string) error
	RecordRun(ctx context.Context, r store.AutomationRun) (string, error)
	ListRecentLeads(ctx context.Context, userID string, limit int) ([]store.Lead, error)
}

// Pipeline executes a goal for a run context.
type Pipeline interface {
	RunWith(ctx context.Context, rc models.RunContext, goal string) core.Summary
}

// Outcome classifies a finished automation run.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeExpired   Outcome = "expired"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// RunResult is what RunAutomation did.
type RunResult struct {
	Outcome Outcome
	Reason  string
	Result  string
	Summary *core.Summary
}

// Runner executes one automation end to end.
type Runner struct {
	store    Store
	pipeline Pipeline
	notifier email.Notifier
	log      zerolog.Logger
	now      func() time.Time
	runs     otelmetric.Int64Counter
}

func NewRunner(st Store, pipeline Pipeline, notifier email.Notifier, log zerolog.Logger) *Runner {
	runs, _ := otel.Meter("salesagent/worker").Int64Counter("salesagent_automation_runs_total",
		otelmetric.WithDescription("Automation executions by outcome"))
	return &Runner{
		store:    st,
		pipeline: pipeline,
		notifier: notifier,
		log:      logger.Component(log, "runner"),
		now:      func() time.Time { return time.Now().UTC() },
		runs:     runs,
	}
}

// RunAutomation loads, executes and finalizes automation id. Any error or
// panic after loading marks the automation failed; it is not retried.
func (r *Runner) RunAutomation(ctx context.Context, id string) (res RunResult, err error) {
	log := r.log.With().Str(logger.AutomationField, id).Logger()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		switch {
		case err != nil && res.Outcome == OutcomeSkipped:
			log.Error().Err(err).Msg("automation not loaded")
		case err != nil:
			res = RunResult{Outcome: OutcomeFailed, Reason: err.Error(), Summary: res.Summary}
			// A fresh context so a cancelled run still records its failure.
			failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if ferr := r.store.FailAutomation(failCtx, id, err.Error()); ferr != nil {
				log.Error().Err(ferr).Msg("record automation failure")
			}
			log.Error().Err(err).Msg("automation failed")
		}
		if r.runs != nil {
			r.runs.Add(context.WithoutCancel(ctx), 1, otelmetric.WithAttributes(attribute.String("outcome", string(res.Outcome))))
		}
	}()

	a, err := r.store.GetAutomation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		log.Info().Msg("automation not found, skipping")
		return RunResult{Outcome: OutcomeSkipped, Reason: "automation not found"}, nil
	}
	if err != nil {
		// Nothing was loaded, so there is no row to mark failed.
		return RunResult{Outcome: OutcomeSkipped, Reason: err.Error()}, fmt.Errorf("load automation: %w", err)
	}
	if !a.IsActive {
		log.Info().Msg("automation inactive, skipping")
		return RunResult{Outcome: OutcomeSkipped, Reason: "automation not active"}, nil
	}

	user, err := r.store.GetUser(ctx, a.UserID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn().Str("user_id", a.UserID).Msg("automation owner not found, skipping")
		if rerr := r.store.ReleaseAutomation(ctx, a.ID); rerr != nil {
			log.Error().Err(rerr).Msg("release automation")
		}
		return RunResult{Outcome: OutcomeSkipped, Reason: "user not found"}, nil
	}
	if err != nil {
		return RunResult{}, fmt.Errorf("load user: %w", err)
	}

	now := r.now()
	if a.Expired(now) {
		if err := r.store.ExpireAutomation(ctx, a.ID); err != nil {
			return RunResult{}, err
		}
		log.Info().Msg("automation expired")
		return RunResult{Outcome: OutcomeExpired, Reason: "automation expired"}, nil
	}

	if IsWeeklyReport(a.Goal) {
		return r.weeklyReport(ctx, a, user)
	}
	return r.runPipeline(ctx, a, user)
}

// RunContext derives the planner inputs from the row and its owner.
func RunContext(a store.Automation, u store.User) models.RunContext {
	req := models.ParseGoal(a.Goal)
	action := models.ActionKind(strings.ToLower(strings.TrimSpace(a.ActionType)))
	switch action {
	case models.ActionEmail, models.ActionLeads:
	default:
		action = models.ActionEmail
		if req.Action == models.ActionLeads {
			action = models.ActionLeads
		}
	}
	niche := strings.TrimSpace(a.Niche)
	if niche == "" {
		niche = req.Niche
	}
	return models.RunContext{
		Action:           action,
		Goal:             req.Goal,
		Niche:            niche,
		Recipient:        a.RecipientEmail,
		SenderEmail:      u.Email,
		UserID:           u.ID,
		AutomationID:     a.ID,
		SubscriptionTier: u.SubscriptionTier,
	}
}

func (r *Runner) runPipeline(ctx context.Context, a store.Automation, u store.User) (RunResult, error) {
	if err := r.store.MarkRunning(ctx, a.ID); err != nil {
		return RunResult{}, err
	}
	started := r.now()
	summary := r.pipeline.RunWith(ctx, RunContext(a, u), a.Goal)
	if summary.Outcome == core.OutcomeCancelled {
		return RunResult{Summary: &summary}, fmt.Errorf("run cancelled: %w", context.Cause(ctx))
	}

	result := summary.Message + EmailAnnotation(summary.State, a.RecipientEmail)
	finished := r.now()
	if err := r.finish(ctx, a, result, finished); err != nil {
		return RunResult{Summary: &summary}, err
	}
	r.afterRun(ctx, a, summary, started, finished)
	return RunResult{Outcome: OutcomeCompleted, Result: result, Summary: &summary}, nil
}

func (r *Runner) weeklyReport(ctx context.Context, a store.Automation, u store.User) (RunResult, error) {
	leads, err := r.store.ListRecentLeads(ctx, u.ID, weeklyReportLeads)
	if err != nil {
		return RunResult{}, err
	}
	text, html, err := WeeklyReport(leads)
	if err != nil {
		return RunResult{}, err
	}

	result := WeeklyReportResult
	d, err := r.notifier.Send(ctx, email.Message{
		To:         email.SplitRecipients(a.RecipientEmail),
		Subject:    WeeklyReportSubject,
		Text:       text,
		HTML:       html,
		SenderName: email.DefaultSenderName,
		ReplyTo:    u.Email,
	})
	switch {
	case err != nil:
		result += "\n\n⚠️ Email Status: Error: " + err.Error()
	case d.Status != models.DeliverySent:
		result += "\n\n⚠️ Email Status: " + d.Summary
	}

	if err := r.finish(ctx, a, result, r.now()); err != nil {
		return RunResult{}, err
	}
	return RunResult{Outcome: OutcomeCompleted, Result: result}, nil
}

func (r *Runner) finish(ctx context.Context, a store.Automation, result string, at time.Time) error {
	c := store.Completion{Result: result, LastRun: at}
	if next, ok := scheduler.NextRun(a, at); ok {
		c.Status = store.StatusScheduled
		c.NextRunAt = &next
	} else {
		c.Status = store.StatusCompleted
		c.CompletedAt = &at
	}
	return r.store.FinishAutomation(ctx, a.ID, c)
}

// afterRun writes the usage counter and run history. Failures are logged
// only: the automation itself already finished.
func (r *Runner) afterRun(ctx context.Context, a store.Automation, s core.Summary, started, finished time.Time) {
	log := r.log.With().Str(logger.AutomationField, a.ID).Logger()
	if err := r.store.IncrementAutomationsCount(ctx, a.UserID); err != nil {
		log.Error().Err(err).Msg("increment automations count")
	}
	run := store.AutomationRun{
		AutomationID: a.ID,
		Status:       string(s.Outcome),
		Summary:      s.Message,
		Steps:        s.Steps,
		StartedAt:    started,
		FinishedAt:   finished,
	}
	if s.State != nil {
		if b, err := json.Marshal(s.State.ToolHistory); err == nil {
			run.ToolCalls = b
		}
		if b, err := json.Marshal(s.State.Observations); err == nil {
			run.Observations = b
		}
	}
	if _, err := r.store.RecordRun(ctx, run); err != nil {
		log.Error().Err(err).Msg("record run history")
	}
}

// EmailAnnotation describes what the run's send_email calls achieved. A
// failed or simulated delivery wins over a successful one.
func EmailAnnotation(state *models.AgentState, recipient string) string {
	if state == nil {
		return ""
	}
	var sent bool
	var problem string
	for i, call := range state.ToolHistory {
		if call.Spec.Name != core.ToolSendEmail || i >= len(state.Observations) {
			continue
		}
		obs := state.Observations[i]
		if !obs.Succeeded() {
			problem = obs.OutputText
			continue
		}
		if res, ok := obs.Payload.(models.EmailSent); ok && res.Delivery != models.DeliverySent {
			problem = obs.OutputText
			continue
		}
		sent = true
	}
	switch {
	case problem != "":
		return "\n\n⚠️ Email Status: " + problem
	case sent:
		return "\n\n✅ Email sent to: " + recipient
	}
	return ""
}
