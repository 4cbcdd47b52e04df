package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	job := Job{
		ID:            "job-1",
		UserID:        "user-1",
		Status:        StatusQueued,
		Config:        Config{RepoRef: "github.com/demo/repo", Language: "english", UseCache: true, MaxAbstractions: 10},
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		PromptVersion: "v1",
		CreatedAt:     time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(
			job.ID,
			job.UserID,
			job.Status,
			0,
			"",
			sqlmock.AnyArg(), // logs
			sqlmock.AnyArg(), // config
			job.Provider,
			job.Model,
			job.PromptVersion,
			"",
			"",
			nil,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	columns := []string{
		"id", "user_id", "status", "progress", "current_step", "logs", "config",
		"provider", "model", "prompt_version", "artifact_key", "error_code", "error_message",
		"created_at", "started_at", "completed_at", "updated_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"job-1", "user-1", StatusCompleted, 100, "assemble tutorial",
			`[{"timestamp":"2026-08-25T10:00:00Z","level":"info","message":"job queued","progress":0}]`,
			`{"repoRef":"github.com/demo/repo","language":"english","useCache":true,"maxAbstractions":10}`,
			"openai", "gpt-4o-mini", "v1", "tutorials/job-1.json", nil, nil,
			now, now, now, now,
		))

	got, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusCompleted || got.Progress != 100 {
		t.Errorf("status=%s progress=%d", got.Status, got.Progress)
	}
	if len(got.Logs) != 1 || got.Logs[0].Message != "job queued" {
		t.Errorf("logs = %v", got.Logs)
	}
	if got.Config.RepoRef != "github.com/demo/repo" || !got.Config.UseCache {
		t.Errorf("config = %+v", got.Config)
	}
	if got.ArtifactKey != "tutorials/job-1.json" {
		t.Errorf("artifact key = %s", got.ArtifactKey)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoUpdateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Update(context.Background(), Job{ID: "missing", Status: StatusRunning}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGChapterCacheMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cache := &PGChapterCache{DB: db}
	mock.ExpectQuery("SELECT content FROM chapter_cache").
		WithArgs("fp-1").
		WillReturnRows(sqlmock.NewRows([]string{"content"}))

	_, ok, err := cache.Get(context.Background(), "fp-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestPGChapterCacheHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cache := &PGChapterCache{DB: db}
	mock.ExpectQuery("SELECT content FROM chapter_cache").
		WithArgs("fp-1").
		WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow("chapter body"))

	content, ok, err := cache.Get(context.Background(), "fp-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || content != "chapter body" {
		t.Errorf("content=%q ok=%v", content, ok)
	}
}
