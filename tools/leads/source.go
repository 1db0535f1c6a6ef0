// Package leads finds business contacts on the open web and exposes them
// as the search_leads tool.
package leads

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/rs/zerolog"
)

const resultsPerQuery = 10

// Source yields leads for one niche in one location.
type Source interface {
	Search(ctx context.Context, niche, location string, limit int) ([]models.Lead, error)
}

// ContactFinder looks up how to reach a business from its website.
type ContactFinder interface {
	Contacts(ctx context.Context, site string) (Contact, error)
}

// WebSource combines web search hits with contact scraping.
type WebSource struct {
	searcher Searcher
	contacts ContactFinder
	cfg      config.LeadsConfig
	log      zerolog.Logger
}

// NewWebSource builds a source. A nil contacts finder keeps leads to what
// the search result itself shows.
func NewWebSource(searcher Searcher, contacts ContactFinder, cfg config.LeadsConfig, log zerolog.Logger) *WebSource {
	return &WebSource{searcher: searcher, contacts: contacts, cfg: cfg.Normalize(), log: log}
}

func (w *WebSource) Search(ctx context.Context, niche, location string, limit int) ([]models.Lead, error) {
	if limit <= 0 {
		limit = w.cfg.MaxResults
	}
	queries := Queries(niche, location)
	if len(queries) > w.cfg.QueriesPerNiche {
		queries = queries[:w.cfg.QueriesPerNiche]
	}

	var (
		out         []models.Lead
		errs        []error
		seenSites   = map[string]bool{}
		seenDomains = map[string]bool{}
	)
	for _, q := range queries {
		if len(out) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := w.searcher.Search(ctx, q, resultsPerQuery)
		if err != nil {
			w.log.Warn().Err(err).Str("query", q).Msg("lead search query failed")
			errs = append(errs, err)
			continue
		}
		for _, r := range results {
			if len(out) >= limit {
				break
			}
			if r.URL == "" || seenSites[r.URL] {
				continue
			}
			domain := Domain(r.URL)
			if domain == "" || w.cfg.Skips(domain) || seenDomains[domain] {
				continue
			}
			seenSites[r.URL] = true
			seenDomains[domain] = true
			out = append(out, w.lead(ctx, niche, r))
		}
	}
	if len(out) == 0 && len(errs) == len(queries) && len(errs) > 0 {
		return nil, fmt.Errorf("search %s in %s: %w", niche, location, errors.Join(errs...))
	}

	// Leads with an address first; order is otherwise kept.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Email != "" && out[j].Email == "" })
	return out, nil
}

func (w *WebSource) lead(ctx context.Context, niche string, r Result) models.Lead {
	l := models.Lead{
		Name:    CleanName(r.Title, r.URL),
		Website: r.URL,
		Niche:   niche,
		Source:  "web_search",
	}
	if w.contacts == nil || !w.cfg.ScrapePages {
		return l
	}
	c, err := w.contacts.Contacts(ctx, r.URL)
	if err != nil {
		w.log.Debug().Err(err).Str("website", r.URL).Msg("contact scrape failed")
		return l
	}
	l.Email = BestEmail(c.Emails, w.cfg.PriorityPrefixes)
	if len(c.Phones) > 0 {
		l.Phone = c.Phones[0]
	}
	if l.Name == "" {
		l.Name = CleanName(c.Title, r.URL)
	}
	return l
}
