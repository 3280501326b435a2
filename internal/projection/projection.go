// Package projection is the outbound side of recurrence projection: the
// best-effort secondary write issued strictly after the ledger's primary
// commit. A dispatcher never fails the parent operation; projection errors
// are logged and swallowed.
package projection

import (
	"context"
	"time"

	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/logger"
	"github.com/omnitrack/ledger/internal/recurrence"
)

// JobStatus represents the current status of a projection job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed. Failed jobs are not
	// retried; the primary commit stands either way.
	JobStatusFailed JobStatus = "failed"
)

// Job is one unit of projection work: emit the calendar occurrences of a
// recurring transaction.
type Job struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Transaction is a snapshot of the recurring transaction at commit
	// time. Projection works from the snapshot, not live state, so a
	// concurrent edit cannot change what was committed.
	Transaction *domain.Transaction `json:"transaction"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`
}

// Publisher enqueues projection jobs.
type Publisher interface {
	// Publish enqueues a projection job for asynchronous processing.
	Publish(ctx context.Context, job *Job) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer drains projection jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; handler is called for each one.
	Start(ctx context.Context, handler Handler) error

	// Stop stops consuming and waits for in-flight jobs to finish.
	Stop(ctx context.Context) error
}

// Handler processes one projection job.
type Handler func(ctx context.Context, job *Job) error

// JobStore tracks projection job state for observability.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *Job) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// ListJobs retrieves jobs, optionally filtered by status.
	ListJobs(ctx context.Context, status JobStatus) ([]*Job, error)
}

// Dispatcher hands a committed recurring transaction to the projection
// machinery. Dispatch never returns an error: failure isolation is the
// point of this boundary.
type Dispatcher interface {
	Dispatch(ctx context.Context, tx *domain.Transaction)
}

// SyncDispatcher projects inline on the calling goroutine. It is the
// default for tests and small deployments where an in-process queue adds
// nothing.
type SyncDispatcher struct {
	projector *recurrence.Projector
}

// NewSyncDispatcher creates a dispatcher that projects synchronously.
func NewSyncDispatcher(p *recurrence.Projector) *SyncDispatcher {
	return &SyncDispatcher{projector: p}
}

// Dispatch implements Dispatcher.
func (d *SyncDispatcher) Dispatch(ctx context.Context, tx *domain.Transaction) {
	if err := d.projector.Project(ctx, tx); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("transaction_id", tx.ID).
			Msg("Recurrence projection failed; ledger commit stands")
	}
}

// QueueDispatcher publishes projection jobs to a queue consumed by
// background workers.
type QueueDispatcher struct {
	publisher Publisher
}

// NewQueueDispatcher creates a dispatcher that enqueues projection jobs.
func NewQueueDispatcher(pub Publisher) *QueueDispatcher {
	return &QueueDispatcher{publisher: pub}
}

// Dispatch implements Dispatcher.
func (d *QueueDispatcher) Dispatch(ctx context.Context, tx *domain.Transaction) {
	job := &Job{Transaction: tx}
	if err := d.publisher.Publish(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("transaction_id", tx.ID).
			Msg("Failed to enqueue projection job; ledger commit stands")
	}
}

// Ensure dispatchers implement the interface.
var (
	_ Dispatcher = (*SyncDispatcher)(nil)
	_ Dispatcher = (*QueueDispatcher)(nil)
)
