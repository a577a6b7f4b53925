package tool

import (
	"context"
	"testing"
	"time"

	"github.com/smallnest/reviewgraph/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_RetriesRateLimit(t *testing.T) {
	calls := 0
	inner := SearcherFunc(func(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
		calls++
		if calls == 1 {
			return nil, &APIError{Provider: "tavily", StatusCode: 429}
		}
		return []SearchResult{{Content: query}}, nil
	})

	s := WithRetry(inner, &retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond}, time.Second)
	results, err := s.Search(context.Background(), "q", 2)

	require.NoError(t, err)
	assert.Equal(t, []SearchResult{{Content: "q"}}, results)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_StopsOnClientError(t *testing.T) {
	calls := 0
	inner := SearcherFunc(func(context.Context, string, int) ([]SearchResult, error) {
		calls++
		return nil, &APIError{Provider: "brave", StatusCode: 403}
	})

	s := WithRetry(inner, &retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond}, 0)
	_, err := s.Search(context.Background(), "q", 2)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
