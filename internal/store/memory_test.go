package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kisii856/task-automation-platform/api/schemas"
)

func TestMemoryStore_Workflows(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.CreateWorkflow(ctx, "empty", nil)
	assert.ErrorIs(t, err, ErrNoSteps)
	_, err = s.CreateWorkflow(ctx, "invalid", []schemas.WorkflowStep{{Action: schemas.ActionClick}})
	var stepErr *schemas.StepValidationError
	assert.ErrorAs(t, err, &stepErr)

	first, err := s.CreateWorkflow(ctx, "first", sampleSteps)
	require.NoError(t, err)
	second, err := s.CreateWorkflow(ctx, "second", sampleSteps)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := s.GetWorkflow(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	*got.Steps[0].URL = "https://mutated.example"
	again, err := s.GetWorkflow(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", again.Steps[0].URLValue(), "stored steps are isolated from callers")

	list, err := s.ListWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Task)
	assert.Equal(t, "second", list[1].Task)

	_, err = s.GetWorkflow(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Close())
}

func TestMemoryStore_Runs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	wf, err := s.CreateWorkflow(ctx, "task", sampleSteps)
	require.NoError(t, err)

	run := &schemas.RunRecord{WorkflowID: wf.ID, Status: schemas.RunCompleted, Results: []string{"Waited 1000ms"}}
	require.NoError(t, s.RecordRun(ctx, run))
	assert.NotEmpty(t, run.ID)

	runs, err := s.ListRuns(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, *run, runs[0])

	assert.ErrorIs(t, s.RecordRun(ctx, &schemas.RunRecord{WorkflowID: "missing"}), ErrNotFound)
	_, err = s.ListRuns(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wf, err := s.CreateWorkflow(ctx, "task", sampleSteps)
			if assert.NoError(t, err) {
				assert.NoError(t, s.RecordRun(ctx, &schemas.RunRecord{WorkflowID: wf.ID, Status: schemas.RunCompleted}))
			}
		}()
	}
	wg.Wait()
	list, err := s.ListWorkflows(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
