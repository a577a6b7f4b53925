// Package tool provides the web search clients used by the research steps.
//
// Two providers are available, both implementing Searcher:
//
//	tavily, err := tool.NewTavilySearch("")        // reads TAVILY_API_KEY
//	brave, err := tool.NewBraveSearch("", tool.WithBraveCountry("US"))
//
//	results, err := tavily.Search(ctx, "go context cancellation", 2)
//	for _, r := range results {
//		fmt.Println(r.Title, r.URL, r.Content)
//	}
//
// WithRetry adds per-call timeouts and backoff for transient failures
// such as rate limiting. Non-2xx responses are returned as *APIError.
package tool
