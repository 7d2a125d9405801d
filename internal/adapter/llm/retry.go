package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Capybaralifestyle/moonshot-poc/internal/metrics"
)

// retryClient retries transient failures (network errors, non-2xx responses,
// empty bodies) up to a fixed attempt ceiling. It sits below JSON parsing,
// so parse failures never reach it and are never retried.
type retryClient struct {
	inner       Client
	maxAttempts uint64
	interval    time.Duration
}

// WithRetry wraps client with an attempt ceiling. maxAttempts counts the
// first try; values below 2 return the client unchanged. interval is the
// initial backoff delay.
func WithRetry(client Client, maxAttempts uint64, interval time.Duration) Client {
	if maxAttempts < 2 {
		return client
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &retryClient{inner: client, maxAttempts: maxAttempts, interval: interval}
}

func (r *retryClient) Complete(ctx context.Context, prompt string) (string, error) {
	var out string
	attempt := 0

	op := func() error {
		attempt++
		if attempt > 1 {
			metrics.LLMRetriesTotal.Inc()
		}
		text, err := r.inner.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("empty response from provider")
		}
		out = text
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.interval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.maxAttempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("gave up after %d attempts: %w", attempt, err)
	}
	return out, nil
}
