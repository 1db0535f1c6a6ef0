package leads

import (
	"context"
	"errors"
	"testing"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	results map[string][]Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, q string, _ int) ([]Result, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	return s.results[q], nil
}

type stubContacts map[string]Contact

func (s stubContacts) Contacts(_ context.Context, site string) (Contact, error) {
	c, ok := s[site]
	if !ok {
		return Contact{}, errors.New("unreachable")
	}
	return c, nil
}

func testLeadsConfig() config.LeadsConfig {
	return config.LeadsConfig{
		MaxResults:       15,
		QueriesPerNiche:  4,
		ScrapePages:      true,
		SkipDomains:      []string{"facebook.com"},
		PriorityPrefixes: []string{"info", "sales"},
	}
}

func TestWebSourceDedupesAndOrders(t *testing.T) {
	s := &stubSearcher{results: map[string][]Result{
		"Cleaning companies in Durban": {
			{Title: "Mop Co - Home", URL: "https://mop.co.za"},
			{Title: "Mop Co on Facebook", URL: "https://m.facebook.com/mopco"},
			{Title: "Shine", URL: "https://shine.co.za"},
		},
		"Cleaning services Durban": {
			{Title: "Mop Co again", URL: "https://www.mop.co.za/services"},
			{Title: "Sparkle", URL: "https://sparkle.co.za"},
		},
	}}
	contacts := stubContacts{
		"https://shine.co.za":   {Emails: []string{"jo@shine.co.za", "info@shine.co.za"}, Phones: []string{"031 555 0101"}},
		"https://sparkle.co.za": {Emails: []string{"sam@sparkle.co.za"}},
	}

	got, err := NewWebSource(s, contacts, testLeadsConfig(), zerolog.Nop()).Search(context.Background(), "Cleaning", "Durban", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Shine", got[0].Name)
	assert.Equal(t, "info@shine.co.za", got[0].Email)
	assert.Equal(t, "031 555 0101", got[0].Phone)
	assert.Equal(t, "sam@sparkle.co.za", got[1].Email)
	assert.Equal(t, "Mop Co", got[2].Name)
	assert.Empty(t, got[2].Email)
	assert.Equal(t, "web_search", got[2].Source)
	assert.Len(t, s.queries, 4)
}

func TestWebSourceStopsAtLimit(t *testing.T) {
	s := &stubSearcher{results: map[string][]Result{
		"Cleaning companies in Durban": {
			{Title: "A", URL: "https://a.co.za"},
			{Title: "B", URL: "https://b.co.za"},
		},
	}}
	got, err := NewWebSource(s, nil, testLeadsConfig(), zerolog.Nop()).Search(context.Background(), "Cleaning", "Durban", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, s.queries, 1)
}

func TestWebSourceFailsWhenEveryQueryFails(t *testing.T) {
	s := &stubSearcher{err: errors.New("quota")}
	_, err := NewWebSource(s, nil, testLeadsConfig(), zerolog.Nop()).Search(context.Background(), "Cleaning", "Durban", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}
