package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is the smallest useful unit. Extend as needed later (batching, retry, etc).
type Job struct {
	FileID      uuid.UUID
	JobID       uuid.UUID // pre-created QUEUED scan job; Nil lets the worker start one
	Force       bool      // enqueue even if deduplicated
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
