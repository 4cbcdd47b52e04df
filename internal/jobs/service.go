package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tutorial-backend/internal/llm"
	"tutorial-backend/internal/pipeline"
	"tutorial-backend/internal/shared/metrics"
	"tutorial-backend/internal/shared/storage/object"
	"tutorial-backend/internal/shared/telemetry"
	"tutorial-backend/internal/source"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

const (
	defaultLanguage        = "english"
	defaultMaxAbstractions = 10
)

// Enqueuer hands a job off to an external queue for worker execution.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, jobID string) error
}

// Service owns the job lifecycle: it accepts generation requests, runs the
// pipeline asynchronously, and persists progress, logs, and terminal state.
type Service struct {
	Repo          Repo
	Cache         pipeline.ChapterCache
	Store         object.ObjectStore
	LLM           llm.Client
	Queue         Enqueuer
	Provider      string
	Model         string
	PromptVersion string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// Submit validates the config, creates a queued job, and schedules its
// execution: through the queue when one is configured, otherwise on a
// goroutine in this process.
func (s *Service) Submit(ctx context.Context, userID string, cfg Config) (Job, error) {
	if userID == "" {
		return Job{}, fmt.Errorf("%w: user id is required", ErrInvalidConfig)
	}
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return Job{}, err
	}

	now := time.Now().UTC()
	job := Job{
		ID:            uuid.NewString(),
		UserID:        userID,
		Status:        StatusQueued,
		Progress:      0,
		Config:        cfg,
		Provider:      normalizeProvider(s.Provider),
		Model:         s.Model,
		PromptVersion: normalizePromptVersion(s.PromptVersion),
		Logs: []LogEntry{{
			Timestamp: now,
			Level:     LogLevelInfo,
			Message:   "job queued",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}

	if s.Queue != nil {
		if err := s.Queue.EnqueueJob(ctx, job.ID); err != nil {
			s.failJob(ctx, &job, fmt.Errorf("enqueue job: %w", err), nil)
			return Job{}, err
		}
	} else {
		go s.runAsync(backgroundWithRequestID(ctx), job.ID)
	}

	return job, nil
}

// Get returns a job snapshot scoped to its owner.
func (s *Service) Get(ctx context.Context, jobID, userID string) (Job, error) {
	if jobID == "" {
		return Job{}, errors.New("jobID is required")
	}
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if userID != "" && job.UserID != userID {
		// Owner mismatch is indistinguishable from a missing job.
		return Job{}, ErrNotFound
	}
	return job, nil
}

// List returns a user's jobs ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Job, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Cancel requests termination of a queued or running job. A terminal job is
// returned unchanged. Cancellation is observed at stage boundaries, so the
// status may read running briefly after this call returns.
func (s *Service) Cancel(ctx context.Context, jobID, userID string) (Job, error) {
	job, err := s.Get(ctx, jobID, userID)
	if err != nil {
		return Job{}, err
	}
	if job.Terminal() {
		return job, nil
	}

	if cancel := s.takeCancel(jobID); cancel != nil {
		cancel()
		return s.Get(ctx, jobID, userID)
	}

	// No execution in flight yet (queue-mode job still waiting for a
	// worker): fail it directly so the worker skips it.
	s.failJob(ctx, &job, context.Canceled, nil)
	return s.Get(ctx, jobID, userID)
}

// Artifact loads the assembled tutorial of a completed job.
func (s *Service) Artifact(ctx context.Context, jobID, userID string) (pipeline.Artifact, error) {
	job, err := s.Get(ctx, jobID, userID)
	if err != nil {
		return pipeline.Artifact{}, err
	}
	if job.Status != StatusCompleted || job.ArtifactKey == "" {
		return pipeline.Artifact{}, ErrNotReady
	}
	if s.Store == nil {
		return pipeline.Artifact{}, errors.New("missing artifact store")
	}

	body, err := s.Store.Open(ctx, job.ArtifactKey)
	if err != nil {
		return pipeline.Artifact{}, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return pipeline.Artifact{}, err
	}
	var artifact pipeline.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return pipeline.Artifact{}, fmt.Errorf("decode artifact: %w", err)
	}
	return artifact, nil
}

func (s *Service) runAsync(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			job := Job{ID: jobID}
			if loaded, err := s.Repo.GetByID(context.Background(), jobID); err == nil {
				job = loaded
			}
			s.failJob(ctx, &job, fmt.Errorf("panic: %v", r), nil)
		}
	}()
	_ = s.Run(ctx, jobID)
}

// Run executes the pipeline for one job. Called from the submit goroutine
// or from the queue worker; exactly one execution is active per job id.
func (s *Service) Run(ctx context.Context, jobID string) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.registerCancel(jobID, cancel)
	defer s.clearCancel(jobID)

	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("job lookup: %w", err)
	}
	if job.Status != StatusQueued {
		// Already executed or cancelled before a worker picked it up.
		return nil
	}
	if s.LLM == nil {
		s.failJob(ctx, &job, errors.New("missing llm client"), nil)
		return nil
	}

	startedAt := time.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &startedAt
	s.appendLog(&job, LogLevelInfo, "job started", "", job.Progress)
	if err := s.persist(ctx, &job); err != nil {
		s.failJob(ctx, &job, fmt.Errorf("set running failed: %w", err), &startedAt)
		return nil
	}
	metrics.IncJobStarted()
	telemetry.Info("job.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           job.UserID,
		"job_id":            job.ID,
		"status":            StatusRunning,
		"status_transition": "queued->running",
	})

	requestID := requestIDFromContext(ctx)
	client := llm.NewRetryingClient(s.LLM, job.ID, requestID)
	runner := pipeline.NewRunner(client, s.Cache, job.Model)

	artifact, err := runner.Run(runCtx, pipeline.Request{
		RepoRef:         job.Config.RepoRef,
		ProjectName:     projectName(job.Config),
		IncludePatterns: job.Config.IncludePatterns,
		ExcludePatterns: job.Config.ExcludePatterns,
		MaxFileSize:     job.Config.MaxFileSize,
		Language:        job.Config.Language,
		UseCache:        job.Config.UseCache,
		MaxAbstractions: job.Config.MaxAbstractions,
	}, func(step string, progress int, message string) {
		job.CurrentStep = step
		if progress > job.Progress {
			job.Progress = progress
		}
		s.appendLog(&job, LogLevelInfo, message, step, job.Progress)
		if err := s.persist(ctx, &job); err != nil {
			telemetry.Error("job.persist", map[string]any{
				"job_id": job.ID,
				"step":   step,
				"error":  err.Error(),
			})
		}
	})
	if err != nil {
		s.failJob(ctx, &job, err, &startedAt)
		return nil
	}

	key, err := s.saveArtifact(ctx, job.ID, artifact)
	if err != nil {
		s.failJob(ctx, &job, fmt.Errorf("save artifact: %w", err), &startedAt)
		return nil
	}

	completedAt := time.Now().UTC()
	job.Status = StatusCompleted
	job.Progress = 100
	job.ArtifactKey = key
	job.CompletedAt = &completedAt
	s.appendLog(&job, LogLevelInfo, "tutorial ready", pipeline.StepAssemble, 100)
	if err := s.persist(ctx, &job); err != nil {
		s.failJob(ctx, &job, fmt.Errorf("set completed failed: %w", err), &startedAt)
		return nil
	}
	metrics.IncJobCompleted()
	metrics.ObserveJobDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("job.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           job.UserID,
		"job_id":            job.ID,
		"status":            StatusCompleted,
		"status_transition": "running->completed",
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
	return nil
}

func (s *Service) saveArtifact(ctx context.Context, jobID string, artifact pipeline.Artifact) (string, error) {
	if s.Store == nil {
		return "", errors.New("missing artifact store")
	}
	payload, err := json.Marshal(artifact)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("tutorials/%s.json", jobID)
	if _, err := s.Store.SaveWithKey(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Service) failJob(ctx context.Context, job *Job, err error, startedAt *time.Time) {
	code := classifyFailure(err)
	msg := sanitizeError(err)
	if code == ErrorCodeCancelled {
		msg = "job cancelled by caller"
	}
	completedAt := time.Now().UTC()
	job.Status = StatusFailed
	job.ErrorCode = code
	job.ErrorMessage = &msg
	job.CompletedAt = &completedAt
	s.appendLog(job, LogLevelError, msg, job.CurrentStep, job.Progress)
	// Persist on a fresh context: the run context may already be cancelled.
	if updateErr := s.persist(context.Background(), job); updateErr != nil {
		telemetry.Error("job.persist", map[string]any{
			"job_id": job.ID,
			"error":  updateErr.Error(),
			"cause":  msg,
		})
	}
	if code == ErrorCodeCancelled {
		metrics.IncJobCancelled()
	}
	metrics.IncJobFailed()
	if startedAt != nil {
		metrics.ObserveJobDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("job.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           job.UserID,
		"job_id":            job.ID,
		"status":            StatusFailed,
		"status_transition": "running->failed",
		"error_code":        code,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func (s *Service) appendLog(job *Job, level, message, step string, progress int) {
	if message == "" {
		return
	}
	job.Logs = append(job.Logs, LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Step:      step,
		Progress:  progress,
	})
}

func (s *Service) persist(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	return s.Repo.Update(ctx, *job)
}

func (s *Service) registerCancel(jobID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancels == nil {
		s.cancels = make(map[string]context.CancelFunc)
	}
	s.cancels[jobID] = cancel
}

func (s *Service) takeCancel(jobID string) context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.cancels[jobID]
	if !ok {
		return nil
	}
	return cancel
}

func (s *Service) clearCancel(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, jobID)
}

func normalizeConfig(cfg Config) (Config, error) {
	cfg.RepoRef = strings.TrimSpace(cfg.RepoRef)
	if cfg.RepoRef == "" {
		return Config{}, fmt.Errorf("%w: repoRef is required", ErrInvalidConfig)
	}
	if cfg.MaxAbstractions == 0 {
		cfg.MaxAbstractions = defaultMaxAbstractions
	}
	if cfg.MaxAbstractions < 0 {
		return Config{}, fmt.Errorf("%w: maxAbstractions must be positive", ErrInvalidConfig)
	}
	if cfg.MaxFileSize < 0 {
		return Config{}, fmt.Errorf("%w: maxFileSize must not be negative", ErrInvalidConfig)
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = source.DefaultMaxFileSize
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = defaultLanguage
	}
	return cfg, nil
}

func projectName(cfg Config) string {
	if name := strings.TrimSpace(cfg.ProjectName); name != "" {
		return name
	}
	ref := strings.TrimSuffix(strings.TrimRight(cfg.RepoRef, "/"), ".git")
	if idx := strings.LastIndexAny(ref, "/\\"); idx >= 0 {
		ref = ref[idx+1:]
	}
	return ref
}

func normalizeProvider(provider string) string {
	if strings.TrimSpace(provider) == "" {
		return "openai"
	}
	return provider
}

func normalizePromptVersion(version string) string {
	if strings.TrimSpace(version) == "" {
		return pipeline.PromptVersion
	}
	return strings.TrimSpace(version)
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	if errors.Is(err, context.Canceled) {
		return ErrorCodeCancelled
	}
	if errors.Is(err, source.ErrSourceUnavailable) {
		return ErrorCodeSourceUnavailable
	}
	if errors.Is(err, pipeline.ErrEmptyArtifact) {
		return ErrorCodeEmptyArtifact
	}
	if errors.Is(err, pipeline.ErrBadModelOutput) {
		return ErrorCodeLLMError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm")) {
		return ErrorCodeLLMTimeout
	}
	if strings.Contains(msg, "openai") || strings.Contains(msg, "llm") {
		return ErrorCodeLLMError
	}
	if strings.Contains(msg, "artifact") || strings.Contains(msg, "storage") || strings.Contains(msg, "set running") || strings.Contains(msg, "set completed") {
		return ErrorCodeStorage
	}
	return ErrorCodeInternal
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
