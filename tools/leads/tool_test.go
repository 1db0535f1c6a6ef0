package leads

import (
	"context"
	"errors"
	"testing"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/qqmakana/ai-sales-agent/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	calls map[string]int
	fail  map[string]bool
}

func (s *stubSource) Search(_ context.Context, niche, _ string, limit int) ([]models.Lead, error) {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[niche] = limit
	if s.fail[niche] {
		return nil, errors.New(niche + " unavailable")
	}
	return []models.Lead{
		{Name: niche + " One", Email: "one@" + niche + ".co.za", Niche: niche, Source: "web_search"},
		{Name: niche + " Two", Website: "https://two.co.za", Niche: niche, Source: "web_search"},
	}, nil
}

type memoryLeads struct {
	saved []store.Lead
	seen  map[string]bool
}

func (m *memoryLeads) SaveLead(_ context.Context, l store.Lead) (bool, error) {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	key := l.Email
	if key == "" {
		key = l.Website
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	m.saved = append(m.saved, l)
	return true, nil
}

func TestSearchLeadsSplitsMultiNicheBudget(t *testing.T) {
	src := &stubSource{}
	st := &memoryLeads{seen: map[string]bool{"https://two.co.za": true}}
	tool, err := NewTool(src, st, 15, zerolog.Nop())
	require.NoError(t, err)

	obs := tool.Execute(context.Background(), map[string]any{
		"niche": "security + solar", "location": "Durban", "user_id": "u-1", "unlock": true, "max_leads": 10,
	})
	require.Equal(t, models.ToolSucceeded, obs.Status, obs.Error)
	assert.Equal(t, map[string]int{"Security Services": 5, "Solar Energy": 5}, src.calls)

	res, ok := obs.Payload.(models.LeadsFound)
	require.True(t, ok)
	assert.Len(t, res.Leads, 4)
	assert.Equal(t, 2, res.Saved)
	assert.Equal(t, 2, res.WithEmail)
	assert.Equal(t, "Found 4 leads in Durban. 2 new leads added (2 with verified emails).", obs.OutputText)
	for _, l := range st.saved {
		assert.Equal(t, "u-1", l.UserID)
		assert.True(t, l.IsUnlocked)
	}
}

func TestSearchLeadsDefaultsAndNoStore(t *testing.T) {
	src := &stubSource{}
	tool, err := NewTool(src, nil, 15, zerolog.Nop())
	require.NoError(t, err)

	obs := tool.Execute(context.Background(), map[string]any{})
	require.Equal(t, models.ToolSucceeded, obs.Status)
	assert.Equal(t, 15, src.calls[DefaultNiche])
	res := obs.Payload.(models.LeadsFound)
	assert.Equal(t, DefaultLocation, res.Location)
	assert.Equal(t, 0, res.Saved)
	assert.Equal(t, 1, res.WithEmail)
}

func TestSearchLeadsPartialNicheFailure(t *testing.T) {
	src := &stubSource{fail: map[string]bool{"Solar Energy": true}}
	tool, err := NewTool(src, nil, 15, zerolog.Nop())
	require.NoError(t, err)

	obs := tool.Execute(context.Background(), map[string]any{"niche": "all"})
	require.Equal(t, models.ToolSucceeded, obs.Status)
	assert.Len(t, obs.Payload.(models.LeadsFound).Leads, 2)

	src.fail["Security Services"] = true
	obs = tool.Execute(context.Background(), map[string]any{"niche": "all"})
	assert.Equal(t, models.ToolErrored, obs.Status)
	assert.Contains(t, obs.OutputText, "unavailable")
}

func TestSearchLeadsRejectsBadArguments(t *testing.T) {
	tool, err := NewTool(&stubSource{}, nil, 15, zerolog.Nop())
	require.NoError(t, err)
	obs := tool.Execute(context.Background(), map[string]any{"max_leads": 0})
	assert.Equal(t, models.ToolErrored, obs.Status)

	_, err = NewTool(nil, nil, 15, zerolog.Nop())
	assert.Error(t, err)
}
