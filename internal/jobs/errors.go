package jobs

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrNotReady              = errors.New("not ready")
	ErrInvalidConfig         = errors.New("invalid config")
	ErrJobQueueNotConfigured = errors.New("job queue not configured")
)

const (
	ErrorCodeInvalidConfig     = "INVALID_CONFIG"
	ErrorCodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	ErrorCodeLLMError          = "LLM_ERROR"
	ErrorCodeLLMTimeout        = "LLM_TIMEOUT"
	ErrorCodeEmptyArtifact     = "EMPTY_ARTIFACT"
	ErrorCodeCancelled         = "CANCELLED"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)
