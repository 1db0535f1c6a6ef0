// Package pitch renders cold outreach copy for a lead.
package pitch

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/qqmakana/ai-sales-agent/internal/capability"
)

const (
	ToolName        = "personalize_pitch"
	DefaultLeadName = "Valued Partner"
	DefaultNiche    = "Security Services"
)

var (
	solarPitch = template.Must(template.New("solar").Parse(`Hi {{.}},

I work with solar installation companies across South Africa to consistently book qualified site‑assessment appointments.

Our system finds property owners and business managers who are actively exploring solar upgrades, then runs a short outreach sequence that turns interest into booked calls.

If I could deliver 10–20 qualified solar leads per month, would you be open to a quick 5‑minute call this week?

Best regards,
AI Sales Agent
`))
	securityPitch = template.Must(template.New("security").Parse(`Hi {{.}},

I help security companies in South Africa book more armed‑response and guarding contracts with qualified decision‑makers.

Our system targets estates, businesses, and property managers, then runs a proven outreach sequence that converts interest into booked consultations.

If I could deliver 10–20 qualified security leads per month, would you be open to a quick 5‑minute call this week?

Best regards,
AI Sales Agent
`))
)

// Generate returns the pitch for leadName. Solar niches get the solar copy,
// everything else the security copy.
func Generate(leadName, niche string) string {
	if strings.TrimSpace(leadName) == "" {
		leadName = DefaultLeadName
	}
	tmpl := securityPitch
	if strings.Contains(strings.ToLower(niche), "solar") {
		tmpl = solarPitch
	}
	var buf bytes.Buffer
	// Executing a parsed template into a buffer with a string cannot fail.
	_ = tmpl.Execute(&buf, leadName)
	return buf.String()
}

// Spec describes the personalize_pitch tool.
func Spec() models.ToolSpec {
	return models.ToolSpec{
		Name:        ToolName,
		Description: "Generates a personalized sales pitch for a specific lead",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"lead_name": map[string]any{"type": "string"},
				"niche":     map[string]any{"type": "string"},
			},
		},
		OutputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"pitch": map[string]any{"type": "string"}},
		},
		TimeoutSeconds: 5,
	}
}

// NewTool returns the personalize_pitch tool.
func NewTool() *capability.Tool {
	return capability.MustNew(Spec(), func(_ context.Context, args map[string]any) (models.Result, error) {
		name := capability.String(args, "lead_name", DefaultLeadName)
		niche := capability.String(args, "niche", DefaultNiche)
		return models.PitchCreated{LeadName: name, Niche: niche, Pitch: Generate(name, niche)}, nil
	})
}
