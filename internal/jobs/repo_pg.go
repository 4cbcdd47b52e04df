package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO jobs (
	id, user_id, status, progress, current_step, logs, config,
	provider, model, prompt_version, artifact_key, error_code, error_message, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	logsPayload, err := marshalLogs(job.Logs)
	if err != nil {
		return err
	}
	configPayload, err := json.Marshal(job.Config)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		job.ID,
		job.UserID,
		job.Status,
		job.Progress,
		job.CurrentStep,
		logsPayload,
		configPayload,
		job.Provider,
		job.Model,
		job.PromptVersion,
		job.ArtifactKey,
		job.ErrorCode,
		job.ErrorMessage,
		job.CreatedAt,
	)
	return err
}

// GetByID returns a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	const query = `
SELECT id, user_id, status, progress, current_step, logs, config,
       provider, model, prompt_version, artifact_key, error_code, error_message,
       created_at, started_at, completed_at, updated_at
FROM jobs
WHERE id = $1
LIMIT 1`
	return scanJob(r.DB.QueryRowContext(ctx, query, jobID))
}

// Update replaces every mutable field in one statement, so a concurrent
// reader never observes a partially applied transition.
func (r *PGRepo) Update(ctx context.Context, job Job) error {
	const query = `
UPDATE jobs
SET status = $1,
    progress = $2,
    current_step = $3,
    logs = $4::jsonb,
    artifact_key = $5,
    error_code = $6,
    error_message = $7,
    started_at = $8,
    completed_at = $9,
    updated_at = now()
WHERE id = $10::uuid`

	logsPayload, err := marshalLogs(job.Logs)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		job.Status,
		job.Progress,
		job.CurrentStep,
		logsPayload,
		job.ArtifactKey,
		job.ErrorCode,
		job.ErrorMessage,
		job.StartedAt,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser lists jobs for a user ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT id, user_id, status, progress, current_step, logs, config,
       provider, model, prompt_version, artifact_key, error_code, error_message,
       created_at, started_at, completed_at, updated_at
FROM jobs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var j Job
	var currentStep sql.NullString
	var logs sql.NullString
	var config sql.NullString
	var artifactKey sql.NullString
	var errorCode sql.NullString
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var completedAt sql.NullTime
	err := row.Scan(
		&j.ID,
		&j.UserID,
		&j.Status,
		&j.Progress,
		&currentStep,
		&logs,
		&config,
		&j.Provider,
		&j.Model,
		&j.PromptVersion,
		&artifactKey,
		&errorCode,
		&errorMessage,
		&j.CreatedAt,
		&startedAt,
		&completedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	if currentStep.Valid {
		j.CurrentStep = currentStep.String
	}
	if logs.Valid {
		if err := json.Unmarshal([]byte(logs.String), &j.Logs); err != nil {
			j.Logs = nil
		}
	}
	if config.Valid {
		if err := json.Unmarshal([]byte(config.String), &j.Config); err != nil {
			j.Config = Config{}
		}
	}
	if artifactKey.Valid {
		j.ArtifactKey = artifactKey.String
	}
	if errorCode.Valid {
		j.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		j.ErrorMessage = &errorMessage.String
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	return j, nil
}

func marshalLogs(logs []LogEntry) ([]byte, error) {
	if logs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(logs)
}

var _ Repo = (*PGRepo)(nil)
