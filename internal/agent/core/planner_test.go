package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/qqmakana/ai-sales-agent/internal/capability"
)

func okTool(name string, result models.Result) *capability.Tool {
	return capability.MustNew(models.ToolSpec{Name: name}, func(context.Context, map[string]any) (models.Result, error) {
		return result, nil
	})
}

func fullRegistry() *capability.Registry {
	return capability.NewRegistry(
		okTool(ToolSearchLeads, models.LeadsFound{Leads: []models.Lead{{Name: "Acme Guards", Email: "hello@acme.co.za"}}}),
		okTool(ToolPitch, models.PitchCreated{LeadName: "Acme Guards", Pitch: "Hi Acme"}),
		okTool(ToolSendEmail, models.EmailSent{Delivery: models.DeliverySent, Sent: 1}),
	)
}

func newTestPlanner(reg ToolLookup) *RulePlanner {
	p := NewRulePlanner(reg, zerolog.Nop())
	p.now = func() time.Time { return time.Date(2026, 10, 14, 9, 5, 0, 0, time.UTC) }
	return p
}

func stateWithTasks(rc models.RunContext, names ...string) *models.AgentState {
	st := models.NewAgentState(rc)
	for i, n := range names {
		_ = st.AddTask(&models.Task{ID: string(rune('a' + i)), Goal: n})
	}
	return st
}

func TestDecompose(t *testing.T) {
	p := newTestPlanner(fullRegistry())
	cases := []struct {
		goal string
		rc   models.RunContext
		want []string
	}{
		{"[email] find companies", models.RunContext{}, []string{TaskSendEmail}},
		{"[leads] anything", models.RunContext{}, []string{TaskSearchLeads, TaskSendResults}},
		{"find companies", models.RunContext{Action: models.ActionEmail}, []string{TaskSendEmail}},
		{"find solar companies in Durban", models.RunContext{}, []string{TaskSearchLeads, TaskSendResults}},
		{"search for leads and send them a pitch", models.RunContext{}, []string{TaskSearchLeads, TaskCreatePitch, TaskSendOutreach}},
		{"Send Sarah a test email", models.RunContext{}, []string{TaskSendEmail}},
		{"weekly status", models.RunContext{}, []string{TaskSendReportEmail}},
		{"hello there", models.RunContext{}, []string{TaskSendEmail}},
	}
	for _, tc := range cases {
		got := p.Decompose(models.ParseGoal(tc.goal), tc.rc)
		assert.Equal(t, tc.want, got, tc.goal)
	}
}

func TestTaggedLeadsGoal(t *testing.T) {
	p := newTestPlanner(fullRegistry())
	req := models.ParseGoal("[leads] find security companies [niche:Security Services]")
	require.Equal(t, models.ActionLeads, req.Action)
	assert.Equal(t, "Security Services", req.Niche)
	assert.Equal(t, "find security companies", req.Goal)

	tasks := p.Decompose(req, models.RunContext{})
	assert.Equal(t, []string{"Search for leads", "Send results summary"}, tasks)

	st := stateWithTasks(models.RunContext{Goal: req.Goal, Niche: req.Niche, SubscriptionTier: "pro", UserID: "u1"}, tasks...)
	call := p.NextAction(st)
	require.NotNil(t, call)
	assert.Equal(t, ToolSearchLeads, call.Spec.Name)
	assert.Equal(t, "Security Services", call.Arguments["niche"])
	assert.Equal(t, "South Africa", call.Arguments["location"])
	assert.Equal(t, true, call.Arguments["unlock"])
	assert.Equal(t, "u1", call.Arguments["user_id"])
	assert.Equal(t, models.TaskInProgress, st.CurrentTask().Status)
	assert.Equal(t, models.ToolRequested, call.Status)
	assert.NotEmpty(t, call.CallID)
}

func TestTestEmailSubject(t *testing.T) {
	p := newTestPlanner(fullRegistry())
	req := models.ParseGoal("Send Sarah a test email")
	tasks := p.Decompose(req, models.RunContext{})
	require.Equal(t, []string{"Send email"}, tasks)

	st := stateWithTasks(models.RunContext{Goal: req.Goal, Recipient: "sarah@example.com", SenderEmail: "owner@example.com"}, tasks...)
	call := p.NextAction(st)
	require.NotNil(t, call)
	assert.Equal(t, ToolSendEmail, call.Spec.Name)
	assert.Contains(t, call.Arguments["subject"], "Test")
	assert.Equal(t, "sarah@example.com", call.Arguments["to"])
	assert.Equal(t, "owner@example.com", call.Arguments["reply_to"])
	assert.Contains(t, call.Arguments["body"], "Send Sarah a test email")
}

func TestStatusSubjects(t *testing.T) {
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Daily Report - January 05, 2026", StatusSubject("email me the report", now))
	assert.Equal(t, "Reminder from AI Sales Agent", StatusSubject("send a reminder", now))
	assert.Equal(t, "Message from AI Sales Agent", StatusSubject("say hi", now))
}

func TestUnmatchedTasksAreSkipped(t *testing.T) {
	p := newTestPlanner(fullRegistry())
	st := stateWithTasks(models.RunContext{}, "Water the plants", "Send email")

	call := p.NextAction(st)
	require.NotNil(t, call)
	assert.Equal(t, ToolSendEmail, call.Spec.Name)
	tasks := st.Tasks()
	assert.Equal(t, models.TaskCompleted, tasks[0].Status)
	assert.Equal(t, models.TaskInProgress, tasks[1].Status)

	tasks[1].Status = models.TaskCompleted
	st.CurrentTaskID = ""
	assert.Nil(t, p.NextAction(st))
}

func TestMissingToolIsSkipped(t *testing.T) {
	reg := capability.NewRegistry(okTool(ToolSendEmail, models.EmailSent{}))
	p := newTestPlanner(reg)
	st := stateWithTasks(models.RunContext{Recipient: "a@b.co"}, TaskSearchLeads, TaskSendResults)

	call := p.NextAction(st)
	require.NotNil(t, call)
	assert.Equal(t, ToolSendEmail, call.Spec.Name)
	assert.Equal(t, models.TaskCompleted, st.Tasks()[0].Status)
	assert.Contains(t, call.Arguments["body"], "No leads were found")
}

func TestOutreachWithoutPitchFails(t *testing.T) {
	p := newTestPlanner(fullRegistry())
	st := stateWithTasks(models.RunContext{}, TaskSendOutreach)

	assert.Nil(t, p.NextAction(st))
	task := st.Tasks()[0]
	assert.Equal(t, models.TaskFailed, task.Status)
	require.Len(t, task.Notes, 1)
	assert.True(t, strings.HasPrefix(task.Notes[0], "missing upstream data"))
}

func TestPitchAndOutreachUseUpstreamObservations(t *testing.T) {
	p := newTestPlanner(fullRegistry())
	st := stateWithTasks(models.RunContext{Goal: "find security companies and email them"}, TaskCreatePitch, TaskSendOutreach)
	st.Record(&models.ToolCall{CallID: "1"}, models.Observation{CallID: "1", Status: models.ToolSucceeded,
		Payload: models.LeadsFound{Leads: []models.Lead{{Name: "Acme Guards", Email: "hello@acme.co.za"}}}})

	call := p.NextAction(st)
	require.NotNil(t, call)
	assert.Equal(t, ToolPitch, call.Spec.Name)
	assert.Equal(t, "Acme Guards", call.Arguments["lead_name"])
	assert.Equal(t, "Security Services", call.Arguments["niche"])

	st.CurrentTask().Status = models.TaskCompleted
	st.CurrentTaskID = ""
	st.Record(&models.ToolCall{CallID: "2"}, models.Observation{CallID: "2", Status: models.ToolSucceeded,
		Payload: models.PitchCreated{LeadName: "Acme Guards", Pitch: "Dear Acme"}})

	call = p.NextAction(st)
	require.NotNil(t, call)
	assert.Equal(t, ToolSendEmail, call.Spec.Name)
	assert.Equal(t, "hello@acme.co.za", call.Arguments["to"])
	assert.Equal(t, OutreachSubject, call.Arguments["subject"])
	assert.Equal(t, "Dear Acme", call.Arguments["body"])
	assert.Equal(t, DefaultSender, call.Arguments["sender_name"])
	assert.NotContains(t, call.Arguments, "reply_to")
}

func TestStatusEmailWithoutSenderHasNoReplyTo(t *testing.T) {
	p := newTestPlanner(fullRegistry())
	st := stateWithTasks(models.RunContext{Goal: "Send Sarah a test email", Recipient: "sarah@example.com"}, "Send email")
	call := p.NextAction(st)
	require.NotNil(t, call)
	assert.Equal(t, DefaultSender, call.Arguments["sender_name"])
	assert.NotContains(t, call.Arguments, "reply_to")
}

func TestResultsEmailListsLeads(t *testing.T) {
	p := newTestPlanner(fullRegistry())
	st := stateWithTasks(models.RunContext{Goal: "find solar companies", Recipient: "me@x.co"}, TaskSendResults)
	st.Record(&models.ToolCall{CallID: "1"}, models.Observation{CallID: "1", Status: models.ToolSucceeded,
		Payload: models.LeadsFound{Leads: []models.Lead{
			{Name: "Sun Co", Email: "info@sun.co.za"},
			{Name: "Ray Ltd", Email: "hi@ray.co.za"},
		}}})

	call := p.NextAction(st)
	require.NotNil(t, call)
	assert.Equal(t, ResultsSubject, call.Arguments["subject"])
	body := call.Arguments["body"].(string)
	assert.Contains(t, body, "LEADS FOUND (2 contacts)")
	assert.Contains(t, body, "  • Sun Co - info@sun.co.za")
	assert.Contains(t, body, "  • Ray Ltd - hi@ray.co.za")
	assert.Contains(t, body, "Completed: 09:05 on Wednesday, October 14, 2026")
}
