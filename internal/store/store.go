// Package store persists workflow records and their run history.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kisii856/task-automation-platform/api/schemas"
)

// ErrNotFound is returned when a workflow id is unknown.
var ErrNotFound = errors.New("store: workflow not found")

// ErrNoSteps rejects workflows without steps.
var ErrNoSteps = schemas.ErrNoSteps

// Store is the persistence boundary used by the runner and the CLI.
type Store interface {
	CreateWorkflow(ctx context.Context, task string, steps []schemas.WorkflowStep) (*schemas.WorkflowRecord, error)
	GetWorkflow(ctx context.Context, id string) (*schemas.WorkflowRecord, error)
	// ListWorkflows returns records in creation order.
	ListWorkflows(ctx context.Context) ([]schemas.WorkflowRecord, error)
	// RecordRun stores run, assigning an id when it has none.
	RecordRun(ctx context.Context, run *schemas.RunRecord) error
	// ListRuns returns the runs of a workflow, oldest first.
	ListRuns(ctx context.Context, workflowID string) ([]schemas.RunRecord, error)
	Close() error
}

// checkSteps applies the rules shared by every Store implementation.
func checkSteps(steps []schemas.WorkflowStep) error {
	if len(steps) == 0 {
		return ErrNoSteps
	}
	if err := schemas.ValidateSteps(steps); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
