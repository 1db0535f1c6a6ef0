package leads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxPageBytes     = 2 << 20
)

var contactKeywords = []string{"contact", "about", "get-in-touch", "reach-us"}

// Contact is what a business site reveals about how to reach it.
type Contact struct {
	Title  string
	Emails []string
	Phones []string
}

// Scraper visits a site's landing page and at most one contact page.
type Scraper struct {
	Client    *http.Client
	UserAgent string
}

// Contacts scrapes site for addresses and phone numbers. Only a failure
// to load the landing page is an error.
func (s Scraper) Contacts(ctx context.Context, site string) (Contact, error) {
	base, err := siteURL(site)
	if err != nil {
		return Contact{}, err
	}
	body, err := s.fetch(ctx, base.String())
	if err != nil {
		return Contact{}, err
	}

	emails := map[string]struct{}{}
	phones := map[string]struct{}{}
	page := parsePage(body, base)
	for _, e := range ExtractEmails(body) {
		emails[e] = struct{}{}
	}
	for _, e := range page.mailto {
		addEmail(emails, e)
	}
	for _, p := range page.tel {
		phones[p] = struct{}{}
	}

	title := page.title
	if article, err := readability.FromReader(strings.NewReader(body), base); err == nil {
		if t := strings.TrimSpace(article.Title); t != "" {
			title = t
		}
		for _, e := range ExtractEmails(article.TextContent) {
			emails[e] = struct{}{}
		}
	}

	if page.contact != "" {
		if extra, err := s.fetch(ctx, page.contact); err == nil {
			for _, e := range ExtractEmails(extra) {
				emails[e] = struct{}{}
			}
			cp := parsePage(extra, base)
			for _, e := range cp.mailto {
				addEmail(emails, e)
			}
			for _, p := range cp.tel {
				phones[p] = struct{}{}
			}
		}
	}

	return Contact{Title: title, Emails: sortedKeys(emails), Phones: sortedKeys(phones)}, nil
}

func (s Scraper) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	ua := s.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := httpClient(s.Client).Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", target, err)
	}
	return string(b), nil
}

func siteURL(site string) (*url.URL, error) {
	site = strings.TrimSpace(site)
	if site == "" {
		return nil, fmt.Errorf("empty website")
	}
	if !strings.HasPrefix(site, "http://") && !strings.HasPrefix(site, "https://") {
		site = "https://" + site
	}
	u, err := url.Parse(site)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid website %q", site)
	}
	return u, nil
}

type pageLinks struct {
	title   string
	mailto  []string
	tel     []string
	contact string
}

func parsePage(body string, base *url.URL) pageLinks {
	var out pageLinks
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return out
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "title":
				if out.title == "" && n.FirstChild != nil {
					out.title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				out.link(attr(n, "href"), base)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func (p *pageLinks) link(href string, base *url.URL) {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	switch {
	case href == "":
	case strings.HasPrefix(lower, "mailto:"):
		addr, _, _ := strings.Cut(href[len("mailto:"):], "?")
		if strings.Contains(addr, "@") {
			p.mailto = append(p.mailto, addr)
		}
	case strings.HasPrefix(lower, "tel:"):
		if num := strings.TrimSpace(href[len("tel:"):]); num != "" {
			p.tel = append(p.tel, num)
		}
	case p.contact == "" && !strings.HasPrefix(lower, "javascript:"):
		for _, kw := range contactKeywords {
			if strings.Contains(lower, kw) {
				if u, err := url.Parse(href); err == nil {
					p.contact = base.ResolveReference(u).String()
				}
				return
			}
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
