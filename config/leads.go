package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DefaultSkipDomains lists directory and social sites that never yield a
// business contact.
var DefaultSkipDomains = []string{
	"facebook.com", "linkedin.com", "twitter.com", "youtube.com",
	"wikipedia.org", "instagram.com", "tiktok.com", "pinterest.com",
	"yelp.com", "tripadvisor.com", "amazon.com", "ebay.com",
}

// DefaultPriorityPrefixes ranks mailbox names when a site lists several.
var DefaultPriorityPrefixes = []string{"info", "contact", "sales", "hello", "enquiries", "admin", "support"}

// LeadsConfig configures the lead search capability.
type LeadsConfig struct {
	Provider         string        `mapstructure:"provider"`
	SerperAPIKey     string        `mapstructure:"serper_api_key"`
	BraveAPIKey      string        `mapstructure:"brave_api_key"`
	MaxResults       int           `mapstructure:"max_results"`
	QueriesPerNiche  int           `mapstructure:"queries_per_niche"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ScrapePages      bool          `mapstructure:"scrape_pages"`
	UserAgent        string        `mapstructure:"user_agent"`
	SkipDomains      []string      `mapstructure:"skip_domains"`
	PriorityPrefixes []string      `mapstructure:"priority_prefixes"`
}

// Normalize lowercases and dedupes the domain list and fills defaults.
func (c LeadsConfig) Normalize() LeadsConfig {
	norm := c
	norm.Provider = strings.ToLower(strings.TrimSpace(norm.Provider))
	norm.SkipDomains = sanitizeDomainList(norm.SkipDomains)
	if norm.MaxResults <= 0 {
		norm.MaxResults = 15
	}
	if norm.QueriesPerNiche <= 0 {
		norm.QueriesPerNiche = 4
	}
	var prefixes []string
	for _, p := range norm.PriorityPrefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	norm.PriorityPrefixes = prefixes
	return norm
}

// Validate ensures the provider is known.
func (c LeadsConfig) Validate() error {
	switch c.Provider {
	case "serper", "brave", "":
	default:
		return fmt.Errorf("leads.provider %q not supported (serper, brave)", c.Provider)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("leads.timeout cannot be negative")
	}
	return nil
}

// Skips reports whether host is on the skip list or a subdomain of an entry.
func (c LeadsConfig) Skips(host string) bool {
	host = normalizeHost(host)
	for _, d := range c.SkipDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func sanitizeDomainList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		host := normalizeHost(raw)
		if host == "" {
			continue
		}
		seen[host] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for host := range seen {
		out = append(out, host)
	}
	sort.Strings(out)
	return out
}

func normalizeHost(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		if u, err := url.Parse(value); err == nil && u.Host != "" {
			return strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	return strings.TrimPrefix(value, "www.")
}
