package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-intel/internal/db"
	"github.com/sells-group/lead-intel/internal/model"
)

// Outbox records job-completion events in the enrichment_events table for
// asynchronous consumers (campaign triggers, webhooks). Writing a row instead
// of firing a request directly means a crashed consumer can never silently
// lose a completion.
type Outbox struct {
	pool db.Pool
}

// NewOutbox creates an Outbox on the given pool.
func NewOutbox(pool db.Pool) *Outbox {
	return &Outbox{pool: pool}
}

// PublishJobCompleted records the event row for a completed job. A job
// completes exactly once, so the insert keys on job_id: when two pollers race
// past the terminal check, the loser's insert is a no-op instead of a
// duplicate event.
func (o *Outbox) PublishJobCompleted(ctx context.Context, job *model.EnrichmentJob) error {
	resultJSON, err := json.Marshal(job.Result)
	if err != nil {
		return eris.Wrap(err, "outbox: marshal result")
	}

	_, err = o.pool.Exec(ctx,
		`INSERT INTO enrichment_events (job_id, kind, scope, result) VALUES ($1, $2, $3, $4) ON CONFLICT (job_id) DO NOTHING`,
		job.ID, string(job.Kind), job.Payload.Scope, resultJSON,
	)
	if err != nil {
		return eris.Wrapf(err, "outbox: publish job %s", job.ID)
	}
	return nil
}
