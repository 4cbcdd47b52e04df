package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"tutorial-backend/internal/pipeline"
)

// scriptedLLM answers the extraction, relationship, and chapter prompts of a
// full pipeline run deterministically.
type scriptedLLM struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string, _ int) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	switch {
	case strings.Contains(prompt, "identify the core conceptual abstractions"):
		return `[
			{"name": "Alpha", "description": "base layer", "files": ["a.go"]},
			{"name": "Beta", "description": "uses alpha", "files": ["b.go"]}
		]`, nil
	case strings.Contains(prompt, "identify the directed relationships"):
		return `[{"from": "Beta", "to": "Alpha", "label": "uses"}]`, nil
	default:
		return "Chapter prose for the tutorial.", nil
	}
}

// memStore is an in-memory object store for tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Save(_ context.Context, _ string, fileName string, r io.Reader) (string, int64, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	s.mu.Lock()
	s.objects[fileName] = data
	s.mu.Unlock()
	return fileName, int64(len(data)), "application/octet-stream", nil
}

func (s *memStore) SaveWithKey(_ context.Context, storageKey string, _ string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.objects[storageKey] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *memStore) Open(_ context.Context, storageKey string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.objects[storageKey]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// recordingQueue captures enqueued job ids without executing them, keeping
// service tests synchronous.
type recordingQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *recordingQueue) EnqueueJob(_ context.Context, jobID string) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	q.ids = append(q.ids, jobID)
	q.mu.Unlock()
	return nil
}

func testRepoDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"a.go": "package a\n",
		"b.go": "package b\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func setupService(t *testing.T, client *scriptedLLM) (*Service, *MemoryRepo, *memStore) {
	t.Helper()
	repo := NewMemoryRepo()
	store := newMemStore()
	svc := &Service{
		Repo:     repo,
		Cache:    pipeline.NewMemoryChapterCache(),
		Store:    store,
		LLM:      client,
		Queue:    &recordingQueue{},
		Provider: "openai",
		Model:    "test-model",
	}
	return svc, repo, store
}

func TestSubmitRejectsInvalidConfig(t *testing.T) {
	svc, repo, _ := setupService(t, &scriptedLLM{})

	cases := []Config{
		{RepoRef: ""},
		{RepoRef: "x", MaxAbstractions: -1},
		{RepoRef: "x", MaxFileSize: -5},
	}
	for _, cfg := range cases {
		if _, err := svc.Submit(context.Background(), "user-1", cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Submit(%+v) = %v, want ErrInvalidConfig", cfg, err)
		}
	}

	jobs, err := repo.ListByUser(context.Background(), "user-1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Fatalf("rejected submissions created %d jobs", len(jobs))
	}
}

func TestSubmitDefaultsConfig(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: "github.com/demo/repo"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != StatusQueued || job.Progress != 0 {
		t.Errorf("new job status=%s progress=%d", job.Status, job.Progress)
	}
	if job.Config.MaxAbstractions != 10 {
		t.Errorf("maxAbstractions default = %d", job.Config.MaxAbstractions)
	}
	if job.Config.Language != "english" {
		t.Errorf("language default = %q", job.Config.Language)
	}
	if job.Config.MaxFileSize != 100_000 {
		t.Errorf("maxFileSize default = %d", job.Config.MaxFileSize)
	}
	if len(job.Logs) != 1 || job.Logs[0].Message != "job queued" {
		t.Errorf("initial logs = %v", job.Logs)
	}
}

func TestSubmitEnqueuesWhenQueueConfigured(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	q := svc.Queue.(*recordingQueue)

	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: "github.com/demo/repo"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(q.ids) != 1 || q.ids[0] != job.ID {
		t.Fatalf("enqueued ids = %v, want [%s]", q.ids, job.ID)
	}
}

func TestRunCompletesJob(t *testing.T) {
	svc, repo, store := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: testRepoDir(t)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, err := repo.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s, error = %v", got.Status, got.ErrorMessage)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d", got.Progress)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Error("timestamps not set")
	}
	if got.ArtifactKey == "" {
		t.Fatal("artifact key not set")
	}
	if _, ok := store.objects[got.ArtifactKey]; !ok {
		t.Fatal("artifact not stored")
	}

	// Log progress must be non-decreasing and end at 100.
	last := -1
	for _, entry := range got.Logs {
		if entry.Progress < last {
			t.Fatalf("progress regressed in logs: %v", got.Logs)
		}
		last = entry.Progress
	}
	if last != 100 {
		t.Errorf("final log progress = %d", last)
	}

	artifact, err := svc.Artifact(context.Background(), job.ID, "user-1")
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	// Beta uses Alpha: Alpha is taught first.
	if len(artifact.Chapters) != 2 || artifact.Chapters[0].Title != "Alpha" {
		t.Fatalf("chapters = %v", artifact.Chapters)
	}
}

func TestRunSourceUnavailable(t *testing.T) {
	svc, repo, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{
		RepoRef: filepath.Join(t.TempDir(), "missing"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), job.ID)
	if got.Status != StatusFailed {
		t.Fatalf("status = %s", got.Status)
	}
	if got.ErrorCode != ErrorCodeSourceUnavailable {
		t.Errorf("error code = %s", got.ErrorCode)
	}
	if got.Progress != 0 {
		t.Errorf("progress should stay 0 when the source fails, got %d", got.Progress)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage == "" {
		t.Error("error message not recorded")
	}
}

func TestRunFailsOnUnparsableModelOutput(t *testing.T) {
	svc, repo, _ := setupService(t, &scriptedLLM{fail: pipeline.ErrBadModelOutput})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: testRepoDir(t)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), job.ID)
	if got.Status != StatusFailed {
		t.Fatalf("status = %s", got.Status)
	}
	if got.ErrorCode != ErrorCodeLLMError {
		t.Errorf("error code = %s", got.ErrorCode)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: "github.com/demo/repo"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Get(context.Background(), job.ID, "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("owner mismatch returned %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(context.Background(), job.ID, "user-1"); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
}

func TestArtifactNotReady(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: "github.com/demo/repo"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Artifact(context.Background(), job.ID, "user-1"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	svc, repo, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: testRepoDir(t)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), job.ID, "user-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusFailed {
		t.Fatalf("status = %s", cancelled.Status)
	}
	if cancelled.ErrorCode != ErrorCodeCancelled {
		t.Errorf("error code = %s", cancelled.ErrorCode)
	}

	// A worker picking the job up later must skip it.
	if err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run after cancel: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), job.ID)
	if got.Status != StatusFailed || got.ErrorCode != ErrorCodeCancelled {
		t.Fatalf("cancelled job was re-executed: %+v", got)
	}
}

func TestCancelTerminalJobIsNoOp(t *testing.T) {
	svc, _, _ := setupService(t, &scriptedLLM{})
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: testRepoDir(t)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, err := svc.Cancel(context.Background(), job.ID, "user-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("terminal job mutated by cancel: %s", got.Status)
	}
}

func TestRunSecondTimeIsNoOp(t *testing.T) {
	client := &scriptedLLM{}
	svc, repo, _ := setupService(t, client)
	job, err := svc.Submit(context.Background(), "user-1", Config{RepoRef: testRepoDir(t)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	callsAfterFirst := client.calls

	if err := svc.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if client.calls != callsAfterFirst {
		t.Error("second run re-invoked the model")
	}
	got, _ := repo.GetByID(context.Background(), job.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.Canceled, ErrorCodeCancelled},
		{pipeline.ErrEmptyArtifact, ErrorCodeEmptyArtifact},
		{pipeline.ErrBadModelOutput, ErrorCodeLLMError},
		{context.DeadlineExceeded, ErrorCodeLLMTimeout},
		{errors.New("openai error: overloaded"), ErrorCodeLLMError},
		{errors.New("save artifact: disk full"), ErrorCodeStorage},
		{errors.New("something else"), ErrorCodeInternal},
	}
	for _, tc := range cases {
		if got := classifyFailure(tc.err); got != tc.want {
			t.Errorf("classifyFailure(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
