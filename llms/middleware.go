package llms

import (
	"context"
	"time"

	"github.com/smallnest/reviewgraph/retry"
)

type resilientClient struct {
	next    Client
	retry   *retry.Config
	timeout time.Duration
}

// WithRetry wraps c so each call is bounded by timeout and transient
// failures are retried according to cfg. A nil cfg uses retry.DefaultConfig
// with IsRetryable as the predicate.
func WithRetry(c Client, cfg *retry.Config, timeout time.Duration) Client {
	if cfg == nil {
		cfg = retry.DefaultConfig()
	}
	if cfg.RetryableErrors == nil {
		withPredicate := *cfg
		withPredicate.RetryableErrors = IsRetryable
		cfg = &withPredicate
	}
	return &resilientClient{next: c, retry: cfg, timeout: timeout}
}

func (r *resilientClient) Generate(ctx context.Context, messages []Message) (string, error) {
	return retry.Do(ctx, r.retry, "generate", func(ctx context.Context) (string, error) {
		return retry.WithTimeout(ctx, r.timeout, "generate", func(ctx context.Context) (string, error) {
			return r.next.Generate(ctx, messages)
		})
	})
}

func (r *resilientClient) GenerateStructured(ctx context.Context, messages []Message, schema *Schema) (string, error) {
	return retry.Do(ctx, r.retry, "generate structured", func(ctx context.Context) (string, error) {
		return retry.WithTimeout(ctx, r.timeout, "generate structured", func(ctx context.Context) (string, error) {
			return r.next.GenerateStructured(ctx, messages, schema)
		})
	})
}
