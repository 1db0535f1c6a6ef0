// Package core contains the rule based planner and the controller loop that
// drives tools until a goal is finished or the step budget runs out.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/qqmakana/ai-sales-agent/internal/capability"
)

// Tool names the planner routes to.
const (
	ToolSearchLeads = "search_leads"
	ToolPitch       = "personalize_pitch"
	ToolSendEmail   = "send_email"
	ToolReadFile    = "read_file"
)

// Task names produced by Decompose.
const (
	TaskSendEmail       = "Send email"
	TaskSearchLeads     = "Search for leads"
	TaskSendResults     = "Send results summary"
	TaskCreatePitch     = "Create pitch"
	TaskSendOutreach    = "Send outreach emails"
	TaskSendReportEmail = "Send report email"
)

// ToolLookup resolves registered tools by name.
type ToolLookup interface {
	Get(name string) (*capability.Tool, bool)
}

// Planner turns a request into tasks and picks the next tool call.
type Planner interface {
	Decompose(req models.Request, rc models.RunContext) []string
	NextAction(state *models.AgentState) *models.ToolCall
}

// RulePlanner is a deterministic keyword router over a fixed intent set.
type RulePlanner struct {
	tools ToolLookup
	log   zerolog.Logger
	now   func() time.Time
}

// NewRulePlanner builds a planner over the given tools.
func NewRulePlanner(tools ToolLookup, log zerolog.Logger) *RulePlanner {
	return &RulePlanner{tools: tools, log: log, now: time.Now}
}

// Decompose maps a goal to an ordered task list. Explicit action kinds win
// over keyword detection.
func (p *RulePlanner) Decompose(req models.Request, rc models.RunContext) []string {
	action := req.Action
	if rc.Action != "" && rc.Action != models.ActionAuto {
		action = rc.Action
	}
	switch action {
	case models.ActionEmail:
		return []string{TaskSendEmail}
	case models.ActionLeads:
		return []string{TaskSearchLeads, TaskSendResults}
	}

	goal := strings.ToLower(req.Goal)
	if containsAny(goal, "find", "search", "look for", "get me") &&
		containsAny(goal, "lead", "company", "companies", "business", "contact") {
		if containsAny(goal, "send", "email", "pitch", "contact them") {
			return []string{TaskSearchLeads, TaskCreatePitch, TaskSendOutreach}
		}
		return []string{TaskSearchLeads, TaskSendResults}
	}
	if containsAny(goal, "send", "email", "test", "notify", "message", "reminder") {
		return []string{TaskSendEmail}
	}
	if containsAny(goal, "report", "summary", "update", "status") {
		return []string{TaskSendReportEmail}
	}
	return []string{TaskSendEmail}
}

type decision int

const (
	decideCall decision = iota
	decideSkip
	decideFail
)

// NextAction activates the first pending task when none is active and
// returns the call for it. Tasks with no matching rule or no registered tool
// are completed and the next task is tried. Tasks missing upstream data are
// failed. A nil call means every task is finished.
func (p *RulePlanner) NextAction(state *models.AgentState) *models.ToolCall {
	// Each iteration finishes one task or returns, so the task count bounds it.
	for range len(state.Tasks()) + 1 {
		task := state.CurrentTask()
		if task == nil || task.Status.Terminal() {
			task = state.FirstPending()
			if task == nil {
				state.CurrentTaskID = ""
				return nil
			}
			task.Status = models.TaskInProgress
			state.CurrentTaskID = task.ID
		}

		call, outcome, reason := p.route(task, state)
		switch outcome {
		case decideCall:
			return call
		case decideFail:
			task.Status = models.TaskFailed
			task.AddNote(reason)
			p.log.Warn().Str("task", task.Goal).Str("reason", reason).Msg("task failed during planning")
		default:
			task.Status = models.TaskCompleted
			if reason != "" {
				task.AddNote(reason)
			}
			p.log.Debug().Str("task", task.Goal).Msg("no action for task, skipping")
		}
		state.CurrentTaskID = ""
	}
	return nil
}

func (p *RulePlanner) route(task *models.Task, state *models.AgentState) (*models.ToolCall, decision, string) {
	name := strings.ToLower(task.Goal)
	rc := state.Context
	sender := rc.SenderEmail
	if sender == "" {
		sender = DefaultSender
	}

	switch {
	case strings.Contains(name, "search") && strings.Contains(name, "lead"):
		return p.call(ToolSearchLeads, map[string]any{
			"niche":    ExtractNiche(rc.Niche, rc.Goal),
			"location": ExtractLocation(rc.Goal),
			"user_id":  rc.UserID,
			"unlock":   rc.Unlocked(),
		})

	case strings.Contains(name, "create") && strings.Contains(name, "pitch"):
		leadName := "Business Owner"
		if found, ok := state.LatestLeads(); ok && len(found.Leads) > 0 && found.Leads[0].Name != "" {
			leadName = found.Leads[0].Name
		}
		return p.call(ToolPitch, map[string]any{
			"lead_name": leadName,
			"niche":     ExtractNiche(rc.Niche, rc.Goal),
		})

	case strings.Contains(name, "outreach") || (strings.Contains(name, "send") && strings.Contains(name, "pitch")):
		if _, ok := p.tools.Get(ToolSendEmail); !ok {
			return nil, decideSkip, "tool not registered: " + ToolSendEmail
		}
		pitch, hasPitch := state.LatestPitch()
		var leadEmail string
		if found, ok := state.LatestLeads(); ok && len(found.Leads) > 0 {
			leadEmail = found.Leads[0].Email
		}
		switch {
		case !hasPitch || pitch.Pitch == "":
			return nil, decideFail, "missing upstream data: no pitch"
		case leadEmail == "":
			return nil, decideFail, "missing upstream data: no lead email"
		}
		return p.call(ToolSendEmail, emailArgs(leadEmail, OutreachSubject, pitch.Pitch, rc.SenderEmail))

	case strings.Contains(name, "send") && containsAny(name, "result", "summary"):
		var leads []models.Lead
		if found, ok := state.LatestLeads(); ok {
			leads = found.Leads
		}
		body, err := ResultsBody(rc.Goal, leads, p.now())
		if err != nil {
			return nil, decideFail, err.Error()
		}
		return p.call(ToolSendEmail, emailArgs(rc.Recipient, ResultsSubject, body, rc.SenderEmail))

	case strings.Contains(name, "send") && containsAny(name, "email", "report"):
		now := p.now()
		body, err := StatusBody(rc.Goal, sender, now)
		if err != nil {
			return nil, decideFail, err.Error()
		}
		return p.call(ToolSendEmail, emailArgs(rc.Recipient, StatusSubject(rc.Goal, now), body, rc.SenderEmail))
	}
	return nil, decideSkip, ""
}

func (p *RulePlanner) call(tool string, args map[string]any) (*models.ToolCall, decision, string) {
	t, ok := p.tools.Get(tool)
	if !ok {
		return nil, decideSkip, fmt.Sprintf("tool not registered: %s", tool)
	}
	return models.NewToolCall(t.Spec, args), decideCall, ""
}

// emailArgs names the sender after the owner's address when there is one.
// reply_to is only set for a real address.
func emailArgs(to, subject, body, senderEmail string) map[string]any {
	args := map[string]any{
		"to":          to,
		"subject":     subject,
		"body":        body,
		"sender_name": DefaultSender,
	}
	if senderEmail = strings.TrimSpace(senderEmail); senderEmail != "" {
		args["sender_name"] = senderEmail
		args["reply_to"] = senderEmail
	}
	return args
}
