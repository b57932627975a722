// Package store persists enrichment jobs and the completion outbox.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-intel/internal/model"
)

// ErrJobNotFound is returned when a job ID does not exist.
var ErrJobNotFound = eris.New("store: job not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Kind   model.JobKind   `json:"kind,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for enrichment jobs.
//
// The job log is append-mostly: a job is created running and mutated at most
// once more, on the terminal transition. CompleteJob and FailJob are no-ops
// against an already-terminal job, which is what makes racing polls safe.
type Store interface {
	CreateJob(ctx context.Context, kind model.JobKind, payload model.JobPayload) (*model.EnrichmentJob, error)
	GetJob(ctx context.Context, jobID string) (*model.EnrichmentJob, error)
	CompleteJob(ctx context.Context, jobID string, result model.JobResult) error
	FailJob(ctx context.Context, jobID string, reason string) error
	ListJobs(ctx context.Context, filter JobFilter) ([]model.EnrichmentJob, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
