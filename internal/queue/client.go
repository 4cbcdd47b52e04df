package queue

import (
	"context"
	"time"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// JobEnqueuer adapts a Client to the jobs service's Enqueuer dependency.
type JobEnqueuer struct {
	Client Client
}

// EnqueueJob wraps the job id in a versioned message and sends it.
func (e *JobEnqueuer) EnqueueJob(ctx context.Context, jobID string) error {
	return e.Client.Send(ctx, Message{
		JobID:      jobID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	})
}
