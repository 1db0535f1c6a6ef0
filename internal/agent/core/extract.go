package core

import (
	"regexp"
	"strings"
)

const (
	DefaultNiche    = "General Business"
	DefaultLocation = "South Africa"
)

type nicheRule struct {
	keywords []string
	niche    string
}

// Order matters: the first rule with a matching keyword wins.
var nicheRules = []nicheRule{
	{[]string{"security", "guard"}, "Security Services"},
	{[]string{"solar", "energy"}, "Solar & Renewable Energy"},
	{[]string{"logistics", "transport", "truck"}, "Logistics & Transport"},
	{[]string{"cleaning"}, "Commercial Cleaning"},
	{[]string{"it", "tech", "software"}, "IT & Technology"},
	{[]string{"finance", "financial"}, "Financial Services"},
	{[]string{"saas", "b2b"}, "B2B Software"},
	{[]string{"restaurant", "food"}, "Restaurants & Hospitality"},
	{[]string{"property", "real estate"}, "Real Estate"},
}

type place struct{ key, name string }

var gazetteer = []place{
	{"johannesburg", "Johannesburg"},
	{"joburg", "Johannesburg"},
	{"jhb", "Johannesburg"},
	{"cape town", "Cape Town"},
	{"durban", "Durban"},
	{"pretoria", "Pretoria"},
	{"sandton", "Sandton"},
	{"soweto", "Soweto"},
	{"port elizabeth", "Port Elizabeth"},
	{"bloemfontein", "Bloemfontein"},
	{"gauteng", "Gauteng"},
	{"western cape", "Western Cape"},
}

var (
	nicheTagRe = regexp.MustCompile(`(?i)\[niche:([^\]]+)\]`)
	itWordRe   = regexp.MustCompile(`\bit\b`)
)

// ExtractNiche resolves the business niche for a goal. An explicit niche
// wins, then an inline [niche:...] tag, then the keyword table.
func ExtractNiche(explicit, goal string) string {
	if n := strings.TrimSpace(explicit); n != "" {
		return n
	}
	if m := nicheTagRe.FindStringSubmatch(goal); m != nil {
		if n := strings.TrimSpace(m[1]); n != "" {
			return n
		}
	}
	lower := strings.ToLower(goal)
	for _, rule := range nicheRules {
		for _, kw := range rule.keywords {
			if matchKeyword(lower, kw) {
				return rule.niche
			}
		}
	}
	return DefaultNiche
}

func matchKeyword(lower, kw string) bool {
	if kw == "it" {
		return itWordRe.MatchString(lower)
	}
	return strings.Contains(lower, kw)
}

// ExtractLocation returns the first known South African place in the goal.
func ExtractLocation(goal string) string {
	lower := strings.ToLower(goal)
	for _, p := range gazetteer {
		if strings.Contains(lower, p.key) {
			return p.name
		}
	}
	return DefaultLocation
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
