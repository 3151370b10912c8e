package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Kisii856/task-automation-platform/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

// ArgumentMatcherFunc is a helper to create inline mock matchers.
type ArgumentMatcherFunc func(interface{}) bool

func (f ArgumentMatcherFunc) Match(v interface{}) bool {
	return f(v)
}

var anyArg = ArgumentMatcherFunc(func(interface{}) bool { return true })

// jsonArg matches an encoded JSON argument against want.
func jsonArg(want string) ArgumentMatcherFunc {
	return func(v interface{}) bool {
		b, ok := v.([]byte)
		return ok && string(b) == want
	}
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface, *observer.ObservedLogs) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	core, logs := observer.New(zapcore.ErrorLevel)
	return newPostgres(mockPool, zap.New(core)), mockPool, logs
}

var sampleSteps = []schemas.WorkflowStep{
	{Action: schemas.ActionVisit, Description: "Navigate to site", URL: schemas.String("https://example.com")},
	{Action: schemas.ActionWait, Description: "Pause"},
}

const sampleStepsJSON = `[{"action":"visit","description":"Navigate to site","url":"https://example.com"},{"action":"wait","description":"Pause"}]`

func TestPostgres_EnsureSchema(t *testing.T) {
	s, mockPool, _ := newMockStore(t)
	mockPool.ExpectExec(flexibleSQLMatcher(schemaSQL)).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgres_CreateWorkflow(t *testing.T) {
	ctx := context.Background()

	t.Run("stores steps as json", func(t *testing.T) {
		s, mockPool, _ := newMockStore(t)
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertWorkflow)).
			WithArgs(anyArg, "open example", jsonArg(sampleStepsJSON), anyArg).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		rec, err := s.CreateWorkflow(ctx, "open example", sampleSteps)
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, "open example", rec.Task)
		assert.False(t, rec.CreatedAt.IsZero())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("rejects empty step lists without touching the database", func(t *testing.T) {
		s, mockPool, _ := newMockStore(t)
		_, err := s.CreateWorkflow(ctx, "nothing", nil)
		assert.ErrorIs(t, err, ErrNoSteps)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("propagates insert errors", func(t *testing.T) {
		s, mockPool, _ := newMockStore(t)
		dbErr := errors.New("connection reset")
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertWorkflow)).
			WithArgs(anyArg, "open example", anyArg, anyArg).
			WillReturnError(dbErr)

		_, err := s.CreateWorkflow(ctx, "open example", sampleSteps)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgres_GetWorkflow(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("decodes the stored steps", func(t *testing.T) {
		s, mockPool, _ := newMockStore(t)
		rows := pgxmock.NewRows([]string{"id", "task", "steps", "created_at"}).
			AddRow("wf-1", "open example", []byte(sampleStepsJSON), created)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectWorkflow)).WithArgs("wf-1").WillReturnRows(rows)

		rec, err := s.GetWorkflow(ctx, "wf-1")
		require.NoError(t, err)
		assert.Equal(t, "wf-1", rec.ID)
		assert.Equal(t, created, rec.CreatedAt)
		assert.Equal(t, sampleSteps, rec.Steps)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("maps no rows to ErrNotFound", func(t *testing.T) {
		s, mockPool, _ := newMockStore(t)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectWorkflow)).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

		_, err := s.GetWorkflow(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgres_ListWorkflows(t *testing.T) {
	s, mockPool, _ := newMockStore(t)
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "task", "steps", "created_at"}).
		AddRow("wf-1", "first", []byte(sampleStepsJSON), now).
		AddRow("wf-2", "second", []byte(`[{"action":"scroll","description":"Scroll page"}]`), now.Add(time.Second))
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlListWorkflows)).WillReturnRows(rows)

	recs, err := s.ListWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "first", recs[0].Task)
	assert.Equal(t, schemas.ActionScroll, recs[1].Steps[0].Action)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgres_RecordRun(t *testing.T) {
	ctx := context.Background()
	started := time.Now().UTC()
	run := func() *schemas.RunRecord {
		return &schemas.RunRecord{
			WorkflowID: "wf-1",
			Status:     schemas.RunCompleted,
			Results:    []string{"Visited https://example.com"},
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
		}
	}

	t.Run("commits without rollback errors", func(t *testing.T) {
		s, mockPool, logs := newMockStore(t)
		mockPool.ExpectBegin()
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlLockWorkflow)).WithArgs("wf-1").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("wf-1"))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertRun)).
			WithArgs(anyArg, "wf-1", "completed", jsonArg(`["Visited https://example.com"]`), "", "", anyArg, anyArg).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		// Expect Commit AND the subsequent Rollback (which returns ErrTxClosed)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		r := run()
		require.NoError(t, s.RecordRun(ctx, r))
		assert.NotEmpty(t, r.ID, "an id is assigned")
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Equal(t, 0, logs.Len(), "ErrTxClosed on rollback is not logged")
	})

	t.Run("unknown workflow rolls back", func(t *testing.T) {
		s, mockPool, _ := newMockStore(t)
		mockPool.ExpectBegin()
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlLockWorkflow)).WithArgs("wf-1").WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectRollback()

		err := s.RecordRun(ctx, run())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		s, mockPool, _ := newMockStore(t)
		dbErr := errors.New("disk full")
		mockPool.ExpectBegin()
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlLockWorkflow)).WithArgs("wf-1").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("wf-1"))
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertRun)).
			WithArgs(anyArg, "wf-1", "completed", anyArg, "", "", anyArg, anyArg).
			WillReturnError(dbErr)
		mockPool.ExpectRollback()

		err := s.RecordRun(ctx, run())
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("rollback failures are logged", func(t *testing.T) {
		s, mockPool, logs := newMockStore(t)
		mockPool.ExpectBegin()
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlLockWorkflow)).WithArgs("wf-1").WillReturnError(errors.New("lock timeout"))
		mockPool.ExpectRollback().WillReturnError(errors.New("connection lost"))

		assert.Error(t, s.RecordRun(ctx, run()))
		assert.Equal(t, 1, logs.FilterMessage("Failed to rollback transaction").Len())
	})
}

func TestPostgres_ListRuns(t *testing.T) {
	s, mockPool, _ := newMockStore(t)
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectWorkflow)).WithArgs("wf-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "task", "steps", "created_at"}).
			AddRow("wf-1", "task", []byte(sampleStepsJSON), started))
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlListRuns)).WithArgs("wf-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "workflow_id", "status", "results", "error_code", "error", "started_at", "finished_at"}).
			AddRow("run-1", "wf-1", "failed", []byte(`[]`), "ELEMENT_NOT_FOUND", "target not found: #x", started, started.Add(time.Second)))

	runs, err := s.ListRuns(context.Background(), "wf-1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, schemas.RunFailed, runs[0].Status)
	assert.Equal(t, "ELEMENT_NOT_FOUND", runs[0].ErrorCode)
	assert.Equal(t, time.Second, runs[0].Duration())
	assert.Empty(t, runs[0].Results)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
