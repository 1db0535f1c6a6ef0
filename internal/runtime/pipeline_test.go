package runtime

import (
	"context"
	"testing"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/qqmakana/ai-sales-agent/internal/agent/core"
	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct{ leads []models.Lead }

func (s stubSource) Search(context.Context, string, string, int) ([]models.Lead, error) {
	return s.leads, nil
}

func TestPipelineWithoutSearchKey(t *testing.T) {
	cfg := &config.Config{Files: config.FilesConfig{BaseDir: t.TempDir()}}
	p, err := NewPipeline(cfg, PipelineDeps{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{core.ToolPitch, core.ToolReadFile, core.ToolSendEmail}, p.Registry.List())
}

func TestPipelineEmailRunIsSimulated(t *testing.T) {
	cfg := &config.Config{Files: config.FilesConfig{BaseDir: t.TempDir()}}
	p, err := NewPipeline(cfg, PipelineDeps{}, zerolog.Nop())
	require.NoError(t, err)

	s := p.Controller.RunWith(context.Background(), models.RunContext{
		Action:    models.ActionEmail,
		Recipient: "ops@example.com",
	}, "send a reminder")

	assert.Equal(t, core.OutcomeDone, s.Outcome)
	assert.Equal(t, 1, s.Completed)
	require.Len(t, s.State.Observations, 1)
	sent, ok := s.State.Observations[0].Payload.(models.EmailSent)
	require.True(t, ok)
	assert.Equal(t, models.DeliverySimulated, sent.Delivery)
}

func TestPipelineLeadsRun(t *testing.T) {
	cfg := &config.Config{
		Files: config.FilesConfig{BaseDir: t.TempDir()},
		Leads: config.LeadsConfig{MaxResults: 5},
	}
	src := stubSource{leads: []models.Lead{{Name: "Bright Solar", Email: "hello@brightsolar.co.za", Website: "https://brightsolar.co.za"}}}
	p, err := NewPipeline(cfg, PipelineDeps{LeadSource: src}, zerolog.Nop())
	require.NoError(t, err)
	assert.Contains(t, p.Registry.List(), core.ToolSearchLeads)

	s := p.Controller.RunWith(context.Background(), models.RunContext{Recipient: "ops@example.com"},
		"find solar companies and send them a pitch")
	assert.Equal(t, 3, s.Completed)
	found, ok := s.State.LatestLeads()
	require.True(t, ok)
	assert.Len(t, found.Leads, 1)
	pitch, ok := s.State.LatestPitch()
	require.True(t, ok)
	assert.Contains(t, pitch.Pitch, "Bright Solar")
}
