package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerperSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "solar near Durban", body["q"])
		_, _ = w.Write([]byte(`{"organic":[
			{"title":"Sun Co","link":"https://sun.co.za","snippet":"installers"},
			{"title":"Ray Co","link":"https://ray.co.za"},
			{"title":"Extra","link":"https://extra.co.za"}]}`))
	}))
	defer srv.Close()

	res, err := Serper{APIKey: "key", Endpoint: srv.URL, Client: srv.Client()}.Search(context.Background(), "solar near Durban", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, Result{Title: "Sun Co", URL: "https://sun.co.za", Snippet: "installers"}, res[0])
}

func TestBraveSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "cleaning Durban", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"web":{"results":[{"title":"Spotless","url":"https://spotless.co.za","description":"office cleaning"}]}}`))
	}))
	defer srv.Close()

	res, err := Brave{APIKey: "tok", Endpoint: srv.URL, Client: srv.Client()}.Search(context.Background(), "cleaning Durban", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "office cleaning", res[0].Snippet)
}

func TestSearchReportsHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := Serper{APIKey: "key", Endpoint: srv.URL, Client: srv.Client()}.Search(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNewSearcher(t *testing.T) {
	s, err := NewSearcher(config.LeadsConfig{Provider: "serper", SerperAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, Serper{}, s)

	s, err = NewSearcher(config.LeadsConfig{Provider: "brave", BraveAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, Brave{}, s)

	_, err = NewSearcher(config.LeadsConfig{Provider: "brave"}, nil)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))

	_, err = NewSearcher(config.LeadsConfig{Provider: "bing", SerperAPIKey: "k"}, nil)
	assert.True(t, errors.Is(err, ErrUnsupportedProvider))
}
