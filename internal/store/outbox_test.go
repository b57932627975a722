package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-intel/internal/model"
)

func TestOutbox_PublishJobCompleted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO enrichment_events .* ON CONFLICT \(job_id\) DO NOTHING`).
		WithArgs("job-1", "contact-scrape", "org-7", []byte(`{"processed":2,"updated":1,"not_found":1}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ob := NewOutbox(mock)
	err = ob.PublishJobCompleted(context.Background(), &model.EnrichmentJob{
		ID:      "job-1",
		Kind:    model.KindContactScrape,
		Payload: model.JobPayload{Scope: "org-7"},
		Result:  &model.JobResult{Processed: 2, Updated: 1, NotFound: 1},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Two pollers can race past the terminal check and both publish; the second
// insert conflicts on job_id and must not error.
func TestOutbox_PublishJobCompleted_DuplicateIsNoop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO enrichment_events .* ON CONFLICT \(job_id\) DO NOTHING`).
		WithArgs("job-1", "tech-stack", "", []byte(`{"processed":1,"updated":1,"not_found":0}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ob := NewOutbox(mock)
	err = ob.PublishJobCompleted(context.Background(), &model.EnrichmentJob{
		ID:     "job-1",
		Kind:   model.KindTechStack,
		Result: &model.JobResult{Processed: 1, Updated: 1},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
