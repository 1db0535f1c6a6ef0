package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/qqmakana/ai-sales-agent/config"
)

const (
	SerperEndpoint = "https://google.serper.dev/search"
	BraveEndpoint  = "https://api.search.brave.com/res/v1/web/search"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported search provider")
	ErrMissingAPIKey       = errors.New("search provider api key not configured")
)

// Result is one organic web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher runs a web search query.
type Searcher interface {
	Search(ctx context.Context, q string, k int) ([]Result, error)
}

// NewSearcher picks the provider named in cfg.
func NewSearcher(cfg config.LeadsConfig, client *http.Client) (Searcher, error) {
	switch cfg.Provider {
	case "serper", "":
		if cfg.SerperAPIKey == "" {
			return nil, fmt.Errorf("serper: %w", ErrMissingAPIKey)
		}
		return Serper{APIKey: cfg.SerperAPIKey, Client: client}, nil
	case "brave":
		if cfg.BraveAPIKey == "" {
			return nil, fmt.Errorf("brave: %w", ErrMissingAPIKey)
		}
		return Brave{APIKey: cfg.BraveAPIKey, Client: client}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// Serper queries the serper.dev Google search API.
type Serper struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

func (s Serper) Search(ctx context.Context, q string, k int) ([]Result, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = SerperEndpoint
	}
	body, err := json.Marshal(map[string]any{"q": q, "num": k, "gl": "za"})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := doJSON(httpClient(s.Client), req, &raw); err != nil {
		return nil, fmt.Errorf("serper search: %w", err)
	}
	out := make([]Result, 0, len(raw.Organic))
	for i, it := range raw.Organic {
		if i >= k {
			break
		}
		out = append(out, Result{Title: it.Title, URL: it.Link, Snippet: it.Snippet})
	}
	return out, nil
}

// Brave queries the Brave web search API.
type Brave struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

func (b Brave) Search(ctx context.Context, q string, k int) ([]Result, error) {
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = BraveEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	qs := u.Query()
	qs.Set("q", q)
	qs.Set("count", strconv.Itoa(k))
	qs.Set("country", "za")
	u.RawQuery = qs.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := doJSON(httpClient(b.Client), req, &raw); err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	out := make([]Result, 0, len(raw.Web.Results))
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out, nil
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

func doJSON(client *http.Client, req *http.Request, v any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
