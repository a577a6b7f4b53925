package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallnest/reviewgraph/retry"
)

// ErrMissingAPIKey is returned by constructors when no API key is available.
var ErrMissingAPIKey = errors.New("search api key not set")

// SearchResult is one hit returned by a search provider.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Searcher runs a web search and returns at most maxResults hits in provider order.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string, maxResults int) ([]SearchResult, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	return f(ctx, query, maxResults)
}

// APIError reports a non-successful response from a search provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s api returned status: %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s api returned status: %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsRetryable reports whether a search failure is worth another attempt.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return true
}

type resilientSearcher struct {
	next    Searcher
	retry   *retry.Config
	timeout time.Duration
}

// WithRetry wraps s with a per-call timeout and retry on transient failures.
func WithRetry(s Searcher, cfg *retry.Config, timeout time.Duration) Searcher {
	if cfg == nil {
		cfg = retry.DefaultConfig()
	}
	if cfg.RetryableErrors == nil {
		withPredicate := *cfg
		withPredicate.RetryableErrors = IsRetryable
		cfg = &withPredicate
	}
	return &resilientSearcher{next: s, retry: cfg, timeout: timeout}
}

func (r *resilientSearcher) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	return retry.Do(ctx, r.retry, "search", func(ctx context.Context) ([]SearchResult, error) {
		return retry.WithTimeout(ctx, r.timeout, "search", func(ctx context.Context) ([]SearchResult, error) {
			return r.next.Search(ctx, query, maxResults)
		})
	})
}
