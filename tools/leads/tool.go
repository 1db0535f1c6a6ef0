package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/qqmakana/ai-sales-agent/internal/capability"
	"github.com/qqmakana/ai-sales-agent/internal/store"
	"github.com/rs/zerolog"
)

const (
	ToolName        = "search_leads"
	DefaultNiche    = "Security Services"
	DefaultLocation = "South Africa"
)

// LeadStore persists found leads, deduplicating per user.
type LeadStore interface {
	SaveLead(ctx context.Context, l store.Lead) (bool, error)
}

// Spec describes the search_leads tool.
func Spec() models.ToolSpec {
	return models.ToolSpec{
		Name:        ToolName,
		Description: "Finds business leads in a specific niche and location",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"niche":     map[string]any{"type": "string"},
				"location":  map[string]any{"type": "string"},
				"user_id":   map[string]any{"type": "string"},
				"unlock":    map[string]any{"type": "boolean"},
				"max_leads": map[string]any{"type": "integer", "minimum": 1},
			},
		},
		OutputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"leads": map[string]any{"type": "array"}},
		},
		TimeoutSeconds: 180,
	}
}

// NewTool wires src and st into the search_leads tool. st may be nil, in
// which case nothing is persisted.
func NewTool(src Source, st LeadStore, maxLeads int, log zerolog.Logger) (*capability.Tool, error) {
	if src == nil {
		return nil, fmt.Errorf("%s: lead source required", ToolName)
	}
	if maxLeads <= 0 {
		maxLeads = 15
	}
	return capability.New(Spec(), func(ctx context.Context, args map[string]any) (models.Result, error) {
		return search(ctx, src, st, maxLeads, log, args)
	})
}

func search(ctx context.Context, src Source, st LeadStore, maxLeads int, log zerolog.Logger, args map[string]any) (models.Result, error) {
	niche := capability.String(args, "niche", DefaultNiche)
	location := capability.String(args, "location", DefaultLocation)
	userID := capability.String(args, "user_id", "")
	unlock := capability.Bool(args, "unlock")
	limit := capability.Int(args, "max_leads", maxLeads)

	niches := ExpandNiche(niche)
	per := limit / len(niches)
	if per < 1 {
		per = 1
	}

	var (
		found []models.Lead
		errs  []error
	)
	for _, n := range niches {
		leads, err := src.Search(ctx, n, location, per)
		if err != nil {
			log.Warn().Err(err).Str("niche", n).Msg("lead search failed")
			errs = append(errs, err)
			continue
		}
		found = append(found, leads...)
	}
	if len(errs) == len(niches) {
		return nil, errors.Join(errs...)
	}

	res := models.LeadsFound{Leads: found, Location: location}
	if st == nil || userID == "" {
		for _, l := range found {
			if l.Email != "" {
				res.WithEmail++
			}
		}
		return res, nil
	}
	for _, l := range found {
		inserted, err := st.SaveLead(ctx, store.Lead{
			UserID:     userID,
			Name:       l.Name,
			Email:      l.Email,
			Website:    l.Website,
			Phone:      l.Phone,
			Niche:      l.Niche,
			Source:     l.Source,
			IsUnlocked: unlock,
		})
		if err != nil {
			return nil, fmt.Errorf("save lead %q: %w", l.Name, err)
		}
		if inserted {
			res.Saved++
			if l.Email != "" {
				res.WithEmail++
			}
		}
	}
	return res, nil
}
