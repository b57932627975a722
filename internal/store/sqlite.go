package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-intel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local and
// single-operator deployments where running Postgres is overkill; the prospect
// store and outbox remain Postgres-only.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS enrichment_jobs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	payload      TEXT NOT NULL,
	result       TEXT,
	error        TEXT,
	scheduled_at DATETIME NOT NULL,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_enrichment_jobs_status ON enrichment_jobs(status);
CREATE INDEX IF NOT EXISTS idx_enrichment_jobs_kind ON enrichment_jobs(kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, kind model.JobKind, payload model.JobPayload) (*model.EnrichmentJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal payload")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enrichment_jobs (id, kind, status, payload, scheduled_at, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(kind), string(model.JobStatusRunning), string(payloadJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}

	return &model.EnrichmentJob{
		ID:          id,
		Kind:        kind,
		Status:      model.JobStatusRunning,
		Payload:     payload,
		ScheduledAt: now,
		StartedAt:   now,
	}, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.EnrichmentJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, payload, result, error, scheduled_at, started_at, completed_at FROM enrichment_jobs WHERE id = ?`,
		jobID,
	)
	j, err := scanSQLiteJob(row.Scan)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}
	return j, nil
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, result model.JobResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE enrichment_jobs SET status = ?, result = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusCompleted), string(resultJSON), time.Now().UTC(), jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return s.checkGuard(ctx, res, jobID, "complete")
}

func (s *SQLiteStore) FailJob(ctx context.Context, jobID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE enrichment_jobs SET status = ?, error = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(model.JobStatusFailed), reason, time.Now().UTC(), jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail job %s", jobID)
	}
	return s.checkGuard(ctx, res, jobID, "fail")
}

func (s *SQLiteStore) checkGuard(ctx context.Context, res sql.Result, jobID, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}
	existing, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	zap.L().Debug("store: terminal transition skipped",
		zap.String("job_id", jobID),
		zap.String("op", op),
		zap.String("status", string(existing.Status)),
	)
	return nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.EnrichmentJob, error) {
	query := `SELECT id, kind, status, payload, result, error, scheduled_at, started_at, completed_at FROM enrichment_jobs WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	query += ` ORDER BY scheduled_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.EnrichmentJob
	for rows.Next() {
		j, err := scanSQLiteJob(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func scanSQLiteJob(scan func(...any) error) (*model.EnrichmentJob, error) {
	var j model.EnrichmentJob
	var payloadJSON string
	var resultJSON, errMsg sql.NullString
	var completedAt sql.NullTime

	if err := scan(&j.ID, &j.Kind, &j.Status, &payloadJSON, &resultJSON, &errMsg, &j.ScheduledAt, &j.StartedAt, &completedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payloadJSON), &j.Payload); err != nil {
		return nil, eris.Wrap(err, "unmarshal payload")
	}
	if resultJSON.Valid {
		j.Result = &model.JobResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), j.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
	}
	if errMsg.Valid {
		j.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*PostgresStore)(nil)
