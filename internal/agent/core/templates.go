package core

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

const (
	OutreachSubject = "Partnership Opportunity - Let's Connect"
	ResultsSubject  = "AI Sales Agent - Results Ready"
	DefaultSender   = "AI Sales Agent"

	completedLayout = "15:04 on Monday, January 02, 2006"
	reportLayout    = "January 02, 2006"
)

type bodyData struct {
	Goal      string
	Completed string
	Sender    string
	Leads     []models.Lead
}

func render(name string, data bodyData) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// ResultsBody renders the lead summary email. An empty lead list renders the
// "no leads found" variant.
func ResultsBody(goal string, leads []models.Lead, now time.Time) (string, error) {
	data := bodyData{Goal: goal, Completed: now.Format(completedLayout), Leads: leads}
	if len(leads) == 0 {
		return render("no_results.tmpl", data)
	}
	return render("results.tmpl", data)
}

// StatusBody renders the generic automation status email.
func StatusBody(goal, sender string, now time.Time) (string, error) {
	return render("status.tmpl", bodyData{Goal: goal, Completed: now.Format(completedLayout), Sender: sender})
}

// StatusSubject picks the subject line from keywords in the original goal.
func StatusSubject(goal string, now time.Time) string {
	lower := strings.ToLower(goal)
	switch {
	case strings.Contains(lower, "test"):
		return "Test Email - AI Sales Agent Working!"
	case strings.Contains(lower, "report"):
		return "Daily Report - " + now.Format(reportLayout)
	case strings.Contains(lower, "reminder"):
		return "Reminder from AI Sales Agent"
	default:
		return "Message from AI Sales Agent"
	}
}
