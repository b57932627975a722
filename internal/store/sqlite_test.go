package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-intel/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	payload := model.JobPayload{
		Handle:  model.RunHandle{RunID: "run-1", DatasetID: "ds-1"},
		Targets: []model.Target{{URL: "https://acme.com"}, {Name: "Acme"}},
		Scope:   "org-7",
	}
	created, err := st.CreateJob(ctx, model.KindDirectoryLookup, payload)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := st.GetJob(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, model.KindDirectoryLookup, got.Kind)
	assert.Equal(t, model.JobStatusRunning, got.Status)
	assert.Equal(t, payload, got.Payload)
	assert.Nil(t, got.Result)
	assert.Empty(t, got.Error)
	assert.Nil(t, got.CompletedAt)
}

func TestSQLiteStore_GetJob_NotFound(t *testing.T) {
	st := newTestSQLite(t)

	_, err := st.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSQLiteStore_CompleteJob_TerminalOnce(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, model.KindContactScrape, model.JobPayload{
		Handle: model.RunHandle{RunID: "run-1"},
	})
	require.NoError(t, err)

	first := model.JobResult{Processed: 5, Updated: 3, NotFound: 2}
	require.NoError(t, st.CompleteJob(ctx, job.ID, first))

	// A second completion with different numbers must not win.
	require.NoError(t, st.CompleteJob(ctx, job.ID, model.JobResult{Processed: 99}))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, first, *got.Result)
	require.NotNil(t, got.CompletedAt)
}

func TestSQLiteStore_FailThenCompleteIsNoop(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, model.KindTechStack, model.JobPayload{
		Handle: model.RunHandle{RunID: "run-2"},
	})
	require.NoError(t, err)

	require.NoError(t, st.FailJob(ctx, job.ID, "provider run failed"))
	require.NoError(t, st.CompleteJob(ctx, job.ID, model.JobResult{Processed: 1}))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, "provider run failed", got.Error)
	assert.Nil(t, got.Result)
}

func TestSQLiteStore_CompleteJob_Missing(t *testing.T) {
	st := newTestSQLite(t)

	err := st.CompleteJob(context.Background(), "missing", model.JobResult{})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSQLiteStore_ListJobs_Filters(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	a, err := st.CreateJob(ctx, model.KindContactScrape, model.JobPayload{Handle: model.RunHandle{RunID: "r1"}})
	require.NoError(t, err)
	_, err = st.CreateJob(ctx, model.KindTechStack, model.JobPayload{Handle: model.RunHandle{RunID: "r2"}})
	require.NoError(t, err)
	require.NoError(t, st.CompleteJob(ctx, a.ID, model.JobResult{Processed: 1, Updated: 1}))

	all, err := st.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := st.ListJobs(ctx, JobFilter{Status: model.JobStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, a.ID, completed[0].ID)

	tech, err := st.ListJobs(ctx, JobFilter{Kind: model.KindTechStack})
	require.NoError(t, err)
	require.Len(t, tech, 1)

	limited, err := st.ListJobs(ctx, JobFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
