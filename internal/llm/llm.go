package llm

import (
	"context"
	"errors"
)

// Client abstracts language-model providers behind a single completion call.
type Client interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type promptHashSinkKey struct{}

// WithPromptHashCapture returns a context instructing providers to record the
// hash of the exact prompt they send into sink.
func WithPromptHashCapture(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, promptHashSinkKey{}, sink)
}

// PromptHashSinkFromContext returns the prompt hash sink, if any.
func PromptHashSinkFromContext(ctx context.Context) (*string, bool) {
	sink, ok := ctx.Value(promptHashSinkKey{}).(*string)
	return sink, ok
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	_ = ctx
	_ = prompt
	_ = maxTokens
	return "", ErrNotImplemented
}
