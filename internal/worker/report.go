package worker

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/qqmakana/ai-sales-agent/internal/store"
)

const (
	WeeklyReportSubject = "Weekly Lead Delivery Report"
	WeeklyReportResult  = "Weekly lead delivery report sent."
	weeklyReportMarker  = "weekly lead delivery report"
	weeklyReportLeads   = 20
)

//go:embed templates/*.tmpl
var reportFS embed.FS

var (
	reportText = texttemplate.Must(texttemplate.ParseFS(reportFS, "templates/weekly_report.txt.tmpl"))
	reportHTML = htmltemplate.Must(htmltemplate.ParseFS(reportFS, "templates/weekly_report.html.tmpl"))
)

// IsWeeklyReport reports whether goal asks for the CRM digest instead of an agent run.
func IsWeeklyReport(goal string) bool {
	return strings.Contains(strings.ToLower(goal), weeklyReportMarker)
}

// WeeklyReport renders the plain text and HTML digest of leads.
func WeeklyReport(leads []store.Lead) (text, html string, err error) {
	data := struct{ Leads []store.Lead }{leads}
	var tb, hb bytes.Buffer
	if err := reportText.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render weekly report text: %w", err)
	}
	if err := reportHTML.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render weekly report html: %w", err)
	}
	return strings.TrimRight(tb.String(), "\n"), hb.String(), nil
}
