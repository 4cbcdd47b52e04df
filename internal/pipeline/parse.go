package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrBadModelOutput marks a response the model returned in a shape we could
// not parse. The orchestrator reports it as a language-model failure.
var ErrBadModelOutput = errors.New("language model returned unparsable output")

// decodeModelJSON extracts the first JSON array or object from a model
// response, tolerating markdown code fences and surrounding prose.
func decodeModelJSON(raw string, v any) error {
	payload := strings.TrimSpace(raw)
	if idx := strings.Index(payload, "```"); idx >= 0 {
		payload = payload[idx+3:]
		payload = strings.TrimPrefix(payload, "json")
		if end := strings.Index(payload, "```"); end >= 0 {
			payload = payload[:end]
		}
	}
	payload = strings.TrimSpace(payload)

	start := strings.IndexAny(payload, "[{")
	if start < 0 {
		return fmt.Errorf("%w: no JSON payload found", ErrBadModelOutput)
	}
	closer := "]"
	if payload[start] == '{' {
		closer = "}"
	}
	end := strings.LastIndex(payload, closer)
	if end < start {
		return fmt.Errorf("%w: unterminated JSON payload", ErrBadModelOutput)
	}
	if err := json.Unmarshal([]byte(payload[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadModelOutput, err)
	}
	return nil
}
