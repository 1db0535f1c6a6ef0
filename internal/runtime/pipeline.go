package runtime

import (
	"errors"
	"net/http"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/qqmakana/ai-sales-agent/internal/agent/core"
	"github.com/qqmakana/ai-sales-agent/internal/capability"
	"github.com/qqmakana/ai-sales-agent/tools/email"
	"github.com/qqmakana/ai-sales-agent/tools/files"
	"github.com/qqmakana/ai-sales-agent/tools/leads"
	"github.com/qqmakana/ai-sales-agent/tools/pitch"
	"github.com/rs/zerolog"
)

// PipelineDeps overrides the collaborators NewPipeline would otherwise build
// from configuration. Zero fields fall back to the configured defaults.
type PipelineDeps struct {
	LeadStore  leads.LeadStore
	LeadSource leads.Source
	Notifier   email.Notifier
	HTTPClient *http.Client
}

// Pipeline is the tool registry plus the controller that drives it.
type Pipeline struct {
	Controller *core.Controller
	Registry   *capability.Registry
	Notifier   email.Notifier
}

// NewPipeline registers search_leads, personalize_pitch, send_email and
// read_file and wires the rule planner over them. search_leads is left out
// when no search provider key is configured; the planner then skips lead
// tasks.
func NewPipeline(cfg *config.Config, deps PipelineDeps, log zerolog.Logger) (*Pipeline, error) {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Leads.Timeout}
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = email.NewMailer(cfg.Email, nil, log)
	}
	emailTool, err := email.NewTool(notifier)
	if err != nil {
		return nil, err
	}
	reg := capability.NewRegistry(
		emailTool,
		pitch.NewTool(),
		files.NewTool(files.NewReader(cfg.Files)),
	)

	src := deps.LeadSource
	if src == nil {
		src, err = webSource(cfg.Leads, client, log)
		if err != nil && !errors.Is(err, leads.ErrMissingAPIKey) {
			return nil, err
		}
		if err != nil {
			log.Warn().Err(err).Msg("lead search disabled")
		}
	}
	if src != nil {
		leadTool, err := leads.NewTool(src, deps.LeadStore, cfg.Leads.MaxResults, log)
		if err != nil {
			return nil, err
		}
		reg.Register(leadTool)
	}

	planner := core.NewRulePlanner(reg, log)
	ctrl := core.NewController(core.Config{
		MaxSteps:          cfg.Controller.MaxSteps,
		MaxRetriesPerTool: cfg.Controller.MaxRetriesPerTool,
	}, planner, reg, log)
	return &Pipeline{Controller: ctrl, Registry: reg, Notifier: notifier}, nil
}

func webSource(cfg config.LeadsConfig, client *http.Client, log zerolog.Logger) (leads.Source, error) {
	searcher, err := leads.NewSearcher(cfg, client)
	if err != nil {
		return nil, err
	}
	var contacts leads.ContactFinder
	if cfg.ScrapePages {
		contacts = leads.Scraper{Client: client, UserAgent: cfg.UserAgent}
	}
	return leads.NewWebSource(searcher, contacts, cfg, log), nil
}
