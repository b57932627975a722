package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-intel/internal/db"
	"github.com/sells-group/lead-intel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection. Polling
// clients hit get_job and the terminal transitions far more often than
// anything else.
var preparedStatements = map[string]string{
	"insert_job":   `INSERT INTO enrichment_jobs (id, kind, status, payload, scheduled_at, started_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_job":      `SELECT id, kind, status, payload, result, error, scheduled_at, started_at, completed_at FROM enrichment_jobs WHERE id = $1`,
	"complete_job": `UPDATE enrichment_jobs SET status = $1, result = $2, completed_at = $3 WHERE id = $4 AND status = $5`,
	"fail_job":     `UPDATE enrichment_jobs SET status = $1, error = $2, completed_at = $3 WHERE id = $4 AND status = $5`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests and by callers
// that share one pool across stores.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for use by subsystems that need
// direct query access (prospect store, outbox).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS enrichment_jobs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	payload      JSONB NOT NULL,
	result       JSONB,
	error        TEXT,
	scheduled_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_enrichment_jobs_status ON enrichment_jobs(status);
CREATE INDEX IF NOT EXISTS idx_enrichment_jobs_kind ON enrichment_jobs(kind);
CREATE INDEX IF NOT EXISTS idx_enrichment_jobs_scheduled ON enrichment_jobs(scheduled_at DESC);

CREATE TABLE IF NOT EXISTS prospects (
	id                   BIGSERIAL PRIMARY KEY,
	provider_id          TEXT,
	name                 TEXT NOT NULL DEFAULT '',
	website              TEXT NOT NULL DEFAULT '',
	hostname             TEXT NOT NULL DEFAULT '',
	email                TEXT NOT NULL DEFAULT '',
	phone                TEXT NOT NULL DEFAULT '',
	address              TEXT NOT NULL DEFAULT '',
	facebook             TEXT NOT NULL DEFAULT '',
	instagram            TEXT NOT NULL DEFAULT '',
	linkedin             TEXT NOT NULL DEFAULT '',
	twitter              TEXT NOT NULL DEFAULT '',
	cms                  TEXT NOT NULL DEFAULT '',
	decision_maker_name  TEXT NOT NULL DEFAULT '',
	decision_maker_email TEXT NOT NULL DEFAULT '',
	decision_maker_phone TEXT NOT NULL DEFAULT '',
	enrichment_sources   TEXT[] NOT NULL DEFAULT '{}',
	enriched_at          TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_prospects_provider_id ON prospects(provider_id) WHERE provider_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_prospects_hostname ON prospects(hostname);
CREATE INDEX IF NOT EXISTS idx_prospects_name_lower ON prospects(lower(name));

CREATE TABLE IF NOT EXISTS enrichment_events (
	id           BIGSERIAL PRIMARY KEY,
	job_id       TEXT NOT NULL REFERENCES enrichment_jobs(id),
	kind         TEXT NOT NULL,
	scope        TEXT NOT NULL DEFAULT '',
	result       JSONB NOT NULL,
	published_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	consumed_at  TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_enrichment_events_job_id ON enrichment_events(job_id);
CREATE INDEX IF NOT EXISTS idx_enrichment_events_unconsumed ON enrichment_events(published_at) WHERE consumed_at IS NULL;
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, kind model.JobKind, payload model.JobPayload) (*model.EnrichmentJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal payload")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO enrichment_jobs (id, kind, status, payload, scheduled_at, started_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(kind), string(model.JobStatusRunning), payloadJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
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

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.EnrichmentJob, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT id, kind, status, payload, result, error, scheduled_at, started_at, completed_at FROM enrichment_jobs WHERE id = $1`,
		jobID,
	))
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return j, nil
}

// CompleteJob transitions running -> completed. The status guard in the WHERE
// clause enforces terminal-once: a second completion matches zero rows and is
// reported as a no-op, not an error.
func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, result model.JobResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE enrichment_jobs SET status = $1, result = $2, completed_at = $3 WHERE id = $4 AND status = $5`,
		string(model.JobStatusCompleted), resultJSON, time.Now().UTC(), jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return s.terminalNoop(ctx, jobID, "complete")
	}
	return nil
}

// FailJob transitions running -> failed with the same terminal-once guard.
func (s *PostgresStore) FailJob(ctx context.Context, jobID string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE enrichment_jobs SET status = $1, error = $2, completed_at = $3 WHERE id = $4 AND status = $5`,
		string(model.JobStatusFailed), reason, time.Now().UTC(), jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return s.terminalNoop(ctx, jobID, "fail")
	}
	return nil
}

// terminalNoop distinguishes "already terminal" (safe, swallowed) from
// "no such job" after a guarded update matched zero rows.
func (s *PostgresStore) terminalNoop(ctx context.Context, jobID, op string) error {
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

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.EnrichmentJob, error) {
	query := `SELECT id, kind, status, payload, result, error, scheduled_at, started_at, completed_at FROM enrichment_jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	query += ` ORDER BY scheduled_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.EnrichmentJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*model.EnrichmentJob, error) {
	var j model.EnrichmentJob
	var payloadJSON []byte
	var resultJSON *[]byte
	var errMsg *string

	if err := row.Scan(&j.ID, &j.Kind, &j.Status, &payloadJSON, &resultJSON, &errMsg, &j.ScheduledAt, &j.StartedAt, &j.CompletedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payloadJSON, &j.Payload); err != nil {
		return nil, eris.Wrap(err, "unmarshal payload")
	}
	if resultJSON != nil {
		j.Result = &model.JobResult{}
		if err := json.Unmarshal(*resultJSON, j.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
	}
	if errMsg != nil {
		j.Error = *errMsg
	}
	return &j, nil
}
