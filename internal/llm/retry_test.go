package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedClient struct {
	calls int
	errs  []error
	resp  string
}

func (s *scriptedClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	_ = ctx
	_ = prompt
	_ = maxTokens
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	return s.resp, nil
}

func newTestRetrier(base Client) *RetryingClient {
	r := NewRetryingClient(base, "job-1", "req-1")
	r.BaseDelay = time.Millisecond
	return r
}

func TestRetryingClientRecovers(t *testing.T) {
	base := &scriptedClient{
		errs: []error{errors.New("openai error: overloaded (server_error)"), nil},
		resp: "ok",
	}
	got, err := newTestRetrier(base).Complete(context.Background(), "p", 0)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "ok" {
		t.Fatalf("unexpected response %q", got)
	}
	if base.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", base.calls)
	}
}

func TestRetryingClientExhaustsBudget(t *testing.T) {
	transient := errors.New("connection reset by peer")
	base := &scriptedClient{errs: []error{transient, transient, transient, transient, transient}}
	_, err := newTestRetrier(base).Complete(context.Background(), "p", 0)
	if err == nil {
		t.Fatal("expected error after budget exhausted")
	}
	// Initial attempt plus the three-retry budget.
	if base.calls != 4 {
		t.Fatalf("expected 4 calls, got %d", base.calls)
	}
}

func TestRetryingClientStopsOnPermanentError(t *testing.T) {
	base := &scriptedClient{errs: []error{errors.New("openai error: invalid api key")}}
	_, err := newTestRetrier(base).Complete(context.Background(), "p", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("permanent error retried: %d calls", base.calls)
	}
}

func TestShouldRetryClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{errors.New("openai request timeout"), true},
		{errors.New("http status 503"), true},
		{errors.New("http status 429"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("openai error: bad request"), false},
	}
	for _, tc := range cases {
		if got := ShouldRetry(tc.err); got != tc.want {
			t.Errorf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
