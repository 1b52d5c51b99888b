package queue

import (
	"context"
)

// JobQueue carries extraction job dispatches to the external worker.
// Delivery is at-least-once at best, the registrar treats publish as
// fire-and-forget and the callback handler is idempotent to match.
type JobQueue interface {
	// Publish appends a job payload to the dispatch queue.
	Publish(ctx context.Context, payload *JobPayload) error
	// Subscribe returns a channel of dispatched payloads. The channel is
	// closed when ctx is done.
	Subscribe(ctx context.Context) (<-chan *JobPayload, error)
}

// JobPayload is the wire shape handed to the extraction worker.
type JobPayload struct {
	JobID     string `json:"job_id"`
	FileID    string `json:"file_id"`
	ProjectID string `json:"project_id"`
	Source    string `json:"source_locator"`
	Kind      string `json:"job_kind"`
}
