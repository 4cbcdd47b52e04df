package jobs

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use. Records
// are copied on read and write, so a returned Job is always a stable
// snapshot.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Job
	byUser map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Job),
		byUser: make(map[string][]string),
	}
}

// Create stores the job.
func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[job.ID] = copyJob(job)
	r.byUser[job.UserID] = append(r.byUser[job.UserID], job.ID)
	return nil
}

// GetByID returns a job snapshot by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return copyJob(job), nil
}

// Update replaces the stored record with the given one.
func (r *MemoryRepo) Update(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[job.ID]; !ok {
		return ErrNotFound
	}
	r.byID[job.ID] = copyJob(job)
	return nil
}

// ListByUser returns jobs for a user, newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	ids := r.byUser[userID]
	out := make([]Job, 0, len(ids))
	for _, id := range ids {
		if job, ok := r.byID[id]; ok {
			out = append(out, copyJob(job))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= len(out) {
		return []Job{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func copyJob(job Job) Job {
	out := job
	if job.Logs != nil {
		out.Logs = make([]LogEntry, len(job.Logs))
		copy(out.Logs, job.Logs)
	}
	if job.Config.IncludePatterns != nil {
		out.Config.IncludePatterns = append([]string(nil), job.Config.IncludePatterns...)
	}
	if job.Config.ExcludePatterns != nil {
		out.Config.ExcludePatterns = append([]string(nil), job.Config.ExcludePatterns...)
	}
	if job.ErrorMessage != nil {
		msg := *job.ErrorMessage
		out.ErrorMessage = &msg
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
