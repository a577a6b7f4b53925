package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBraveSearch(t *testing.T) {
	t.Setenv("BRAVE_API_KEY", "")
	_, err := NewBraveSearch("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	b, err := NewBraveSearch("key", WithBraveCountry("CN"), WithBraveLang("zh"), WithBraveBaseURL("http://localhost"))
	require.NoError(t, err)
	assert.Equal(t, "CN", b.Country)
	assert.Equal(t, "zh", b.Lang)
	assert.Equal(t, "http://localhost", b.BaseURL)
}

func TestBraveSearch_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "golang generics", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("count"))
		assert.Equal(t, "en", r.URL.Query().Get("search_lang"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"Go <strong>Generics</strong>","url":"https://go.dev","description":"Type parameters &amp; <strong>constraints</strong>"},
			{"title":"Tutorial","url":"https://go.dev/doc","description":"Getting started"},
			{"title":"Extra","url":"https://x.example","description":"ignored"}
		]}}`))
	}))
	defer server.Close()

	b, err := NewBraveSearch("key", WithBraveBaseURL(server.URL))
	require.NoError(t, err)

	results, err := b.Search(context.Background(), "golang generics", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Go Generics", results[0].Title)
	assert.Equal(t, "Type parameters & constraints", results[0].Content)
	assert.Equal(t, "Getting started", results[1].Content)
}

func TestBraveSearch_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	b, err := NewBraveSearch("key", WithBraveBaseURL(server.URL))
	require.NoError(t, err)

	_, err = b.Search(context.Background(), "q", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brave api returned status: 429")
	assert.True(t, IsRetryable(err))
}
