package jobs

import "context"

// Repo defines persistence operations for jobs. Update replaces the whole
// record so concurrent status polls always read a consistent snapshot,
// never a half-applied mutation.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	Update(ctx context.Context, job Job) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Job, error)
}
