package leads

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Addresses matching any of these are placeholders, tracking hosts or asset names.
var emailNoise = []string{
	"example.com", "test.com", "domain.com", "email.com", "yoursite.com",
	"sentry.io", "wixpress.com", "w3.org",
	".png", ".jpg", ".gif", ".css", ".js",
}

// ExtractEmails finds plausible business addresses in text, lowercased,
// deduplicated and sorted.
func ExtractEmails(text string) []string {
	seen := map[string]struct{}{}
	for _, m := range emailPattern.FindAllString(text, -1) {
		addEmail(seen, m)
	}
	return sortedKeys(seen)
}

func addEmail(set map[string]struct{}, raw string) {
	e := strings.ToLower(strings.TrimSpace(raw))
	if len(e) >= 100 || !strings.Contains(e, "@") {
		return
	}
	for _, noise := range emailNoise {
		if strings.Contains(e, noise) {
			return
		}
	}
	set[e] = struct{}{}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BestEmail prefers a role mailbox (info@, sales@, ...) and otherwise
// returns the first address.
func BestEmail(emails, prefixes []string) string {
	if len(emails) == 0 {
		return ""
	}
	for _, e := range emails {
		local, _, _ := strings.Cut(e, "@")
		for _, p := range prefixes {
			if strings.Contains(local, p) {
				return e
			}
		}
	}
	return emails[0]
}

// CleanName strips the "Home" suffixes sites put in their titles and falls
// back to the capitalised first label of the domain.
func CleanName(title, website string) string {
	name := strings.TrimSpace(title)
	name = strings.ReplaceAll(name, " - Home", "")
	name = strings.ReplaceAll(name, " | Home", "")
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	host := Domain(website)
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// Domain returns the lowercased host of raw without "www.".
func Domain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
