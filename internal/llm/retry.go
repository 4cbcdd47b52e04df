package llm

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	"tutorial-backend/internal/shared/metrics"
)

const (
	defaultRetryBudget    = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultAttemptTimeout = 120 * time.Second
)

// RetryingClient wraps a Client with a bounded retry budget. Transient
// failures (timeouts, 5xx, connection resets) are retried with exponential
// backoff; once the budget is exhausted the last error is returned to the
// caller, which treats it as fatal.
type RetryingClient struct {
	Base           Client
	RetryBudget    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
	JobID          string
	RequestID      string
}

// NewRetryingClient wraps base with the default retry policy.
func NewRetryingClient(base Client, jobID, requestID string) *RetryingClient {
	if base == nil {
		return nil
	}
	return &RetryingClient{
		Base:           base,
		RetryBudget:    defaultRetryBudget,
		BaseDelay:      defaultRetryBaseDelay,
		AttemptTimeout: defaultAttemptTimeout,
		JobID:          jobID,
		RequestID:      requestID,
	}
}

// Complete issues the completion, retrying transient failures.
func (r *RetryingClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	budget := r.RetryBudget
	if budget < 0 {
		budget = 0
	}
	delay := r.BaseDelay
	if delay <= 0 {
		delay = defaultRetryBaseDelay
	}

	var lastErr error
	for attempt := 0; attempt <= budget; attempt++ {
		if attempt > 0 {
			metrics.IncLLMRetry()
			log.Printf("llm retry attempt=%d request_id=%s job_id=%s error=%v", attempt, r.RequestID, r.JobID, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}

		resp, err := r.complete(ctx, prompt, maxTokens)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			// Caller cancellation is never retried.
			return "", ctx.Err()
		}
		if !ShouldRetry(err) {
			return "", err
		}
	}
	return "", lastErr
}

func (r *RetryingClient) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	metrics.IncLLMCall()
	timeout := r.AttemptTimeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.Base.Complete(attemptCtx, prompt, maxTokens)
}

// ShouldRetry reports whether the error is transient enough to retry.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "http status 429") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}

var _ Client = (*RetryingClient)(nil)
