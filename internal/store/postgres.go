package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/Kisii856/task-automation-platform/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool abstracts pgxpool.Pool so the store can be tested against pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id          TEXT PRIMARY KEY,
    task        TEXT NOT NULL,
    steps       JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS workflow_runs (
    id           TEXT PRIMARY KEY,
    workflow_id  TEXT NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
    status       TEXT NOT NULL,
    results      JSONB NOT NULL,
    error_code   TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS workflow_runs_workflow_idx ON workflow_runs (workflow_id, started_at);
`

const (
	sqlInsertWorkflow = `INSERT INTO workflows (id, task, steps, created_at) VALUES ($1, $2, $3, $4)`
	sqlSelectWorkflow = `SELECT id, task, steps, created_at FROM workflows WHERE id = $1`
	sqlListWorkflows  = `SELECT id, task, steps, created_at FROM workflows ORDER BY created_at ASC, id ASC`
	sqlLockWorkflow   = `SELECT id FROM workflows WHERE id = $1 FOR UPDATE`
	sqlInsertRun      = `
        INSERT INTO workflow_runs (id, workflow_id, status, results, error_code, error, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	sqlListRuns = `
        SELECT id, workflow_id, status, results, error_code, error, started_at, finished_at
        FROM workflow_runs
        WHERE workflow_id = $1
        ORDER BY started_at ASC`
)

// PostgresStore stores records in PostgreSQL.
type PostgresStore struct {
	pool  DBPool
	log   *zap.Logger
	close func()
}

var _ Store = (*PostgresStore)(nil)

// Open connects to url, verifies the connection and creates the schema.
func Open(ctx context.Context, url string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := NewPostgres(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.close = pool.Close
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing pool and verifies the connection.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return newPostgres(pool, logger), nil
}

func newPostgres(pool DBPool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, log: logger.Named("store")}
}

// EnsureSchema creates the tables when they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateWorkflow(ctx context.Context, task string, steps []schemas.WorkflowStep) (*schemas.WorkflowRecord, error) {
	if err := checkSteps(steps); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode steps: %w", err)
	}
	rec := &schemas.WorkflowRecord{
		ID:        uuid.NewString(),
		Task:      task,
		Steps:     steps,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.pool.Exec(ctx, sqlInsertWorkflow, rec.ID, rec.Task, encoded, rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert workflow: %w", err)
	}
	s.log.Debug("Workflow stored.", zap.String("workflow_id", rec.ID), zap.Int("steps", len(steps)))
	return rec, nil
}

func (s *PostgresStore) GetWorkflow(ctx context.Context, id string) (*schemas.WorkflowRecord, error) {
	rec, err := scanWorkflow(s.pool.QueryRow(ctx, sqlSelectWorkflow, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]schemas.WorkflowRecord, error) {
	rows, err := s.pool.Query(ctx, sqlListWorkflows)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer rows.Close()

	out := make([]schemas.WorkflowRecord, 0)
	for rows.Next() {
		rec, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

// RecordRun locks the parent workflow row and inserts the run in one transaction.
func (s *PostgresStore) RecordRun(ctx context.Context, run *schemas.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	results := run.Results
	if results == nil {
		results = []string{}
	}
	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	var id string
	if err := tx.QueryRow(ctx, sqlLockWorkflow, run.WorkflowID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, run.WorkflowID)
		}
		return fmt.Errorf("failed to lock workflow: %w", err)
	}

	if _, err := tx.Exec(ctx, sqlInsertRun,
		run.ID, run.WorkflowID, string(run.Status), encoded,
		run.ErrorCode, run.Error, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, workflowID string) ([]schemas.RunRecord, error) {
	if _, err := s.GetWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sqlListRuns, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	out := make([]schemas.RunRecord, 0)
	for rows.Next() {
		var (
			run     schemas.RunRecord
			status  string
			results []byte
		)
		if err := rows.Scan(&run.ID, &run.WorkflowID, &status, &results, &run.ErrorCode, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		run.Status = schemas.RunStatus(status)
		if err := json.Unmarshal(results, &run.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results of run %s: %w", run.ID, err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

// Close releases the pool when the store opened it.
func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

func scanWorkflow(row pgx.Row) (*schemas.WorkflowRecord, error) {
	var (
		rec   schemas.WorkflowRecord
		steps []byte
	)
	if err := row.Scan(&rec.ID, &rec.Task, &steps, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(steps, &rec.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps of workflow %s: %w", rec.ID, err)
	}
	return &rec, nil
}
