package leads

import (
	"fmt"
	"strings"
)

var multiNicheAliases = map[string]bool{
	"multi-niche":        true,
	"all":                true,
	"all niches":         true,
	"all high-ticket":    true,
	"security + solar":   true,
	"security and solar": true,
}

// HighTicketNiches is what the multi-niche aliases expand to.
var HighTicketNiches = []string{"Security Services", "Solar Energy"}

// ExpandNiche turns a multi-niche alias into its member niches.
func ExpandNiche(niche string) []string {
	if multiNicheAliases[strings.ToLower(strings.TrimSpace(niche))] {
		out := make([]string, len(HighTicketNiches))
		copy(out, HighTicketNiches)
		return out
	}
	return []string{niche}
}

// Queries builds the search phrases for a niche, most generic first.
func Queries(niche, location string) []string {
	q := []string{
		fmt.Sprintf("%s companies in %s", niche, location),
		fmt.Sprintf("%s services %s", niche, location),
		fmt.Sprintf("best %s %s", niche, location),
		fmt.Sprintf("%s near %s", niche, location),
	}
	lower := strings.ToLower(niche)
	var extra []string
	switch {
	case strings.Contains(lower, "security"):
		extra = []string{"armed response companies", "security guarding services", "CCTV installation companies", "security patrol services"}
	case strings.Contains(lower, "solar"), strings.Contains(lower, "renewable"):
		extra = []string{"solar panel installation", "solar energy companies", "solar installers", "renewable energy companies"}
	case strings.Contains(lower, "logistics"), strings.Contains(lower, "fleet"):
		extra = []string{"logistics companies", "fleet management", "courier services", "transport companies"}
	}
	for _, e := range extra {
		q = append(q, e+" "+location)
	}
	return q
}
