// Package runner ties decomposition, execution and persistence together.
// Each run gets its own engine and therefore its own browser session; runs
// share nothing but the process-wide session pool behind the engine factory.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/browser"
	"github.com/Kisii856/task-automation-platform/internal/decomposer"
	"github.com/Kisii856/task-automation-platform/internal/engine"
	"github.com/Kisii856/task-automation-platform/internal/store"
)

const persistTimeout = 10 * time.Second

// Executor is the part of engine.Engine a run needs.
type Executor interface {
	ExecuteRun(ctx context.Context, runID string, steps []schemas.WorkflowStep) ([]string, error)
	Cleanup(ctx context.Context) error
}

var _ Executor = (*engine.Engine)(nil)

// EngineFactory returns a fresh executor for one run.
type EngineFactory func() Executor

// Outcome is the result of one run. Err is the run's error, if any; Record is
// populated whenever execution was attempted.
type Outcome struct {
	Task       string                 `json:"task,omitempty"`
	WorkflowID string                 `json:"workflow_id,omitempty"`
	Steps      []schemas.WorkflowStep `json:"steps,omitempty"`
	Record     schemas.RunRecord      `json:"run"`
	Err        error                  `json:"-"`
}

// Runner executes tasks and step lists.
type Runner struct {
	decomposer  decomposer.Decomposer
	newEngine   EngineFactory
	store       store.Store
	concurrency int
	logger      *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore persists workflows and runs. Without one, nothing is recorded.
func WithStore(s store.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithConcurrency bounds RunAll.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a runner.
func New(d decomposer.Decomposer, newEngine EngineFactory, opts ...Option) *Runner {
	r := &Runner{
		decomposer:  d,
		newEngine:   newEngine,
		concurrency: 1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("runner")
	return r
}

// Run decomposes task, records the workflow when a store is configured, and
// executes it.
func (r *Runner) Run(ctx context.Context, task string) (*Outcome, error) {
	steps, err := r.decomposer.Decompose(ctx, task)
	if err != nil {
		return &Outcome{Task: task, Err: err}, fmt.Errorf("decomposing task: %w", err)
	}
	if len(steps) == 0 {
		return &Outcome{Task: task, Err: schemas.ErrNoSteps}, schemas.ErrNoSteps
	}

	var workflowID string
	if r.store != nil {
		rec, err := r.store.CreateWorkflow(ctx, task, steps)
		if err != nil {
			return &Outcome{Task: task, Steps: steps, Err: err}, fmt.Errorf("saving workflow: %w", err)
		}
		workflowID = rec.ID
	}

	out, err := r.RunSteps(ctx, workflowID, steps)
	out.Task = task
	return out, err
}

// RunSteps executes steps. A non-empty workflowID with a store configured
// records the run against that workflow, whether it succeeded or not.
func (r *Runner) RunSteps(ctx context.Context, workflowID string, steps []schemas.WorkflowStep) (*Outcome, error) {
	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID))
	if workflowID != "" {
		logger = logger.With(zap.String("workflow_id", workflowID))
	}

	eng := r.newEngine()
	defer func() {
		if err := eng.Cleanup(browser.Detach(ctx)); err != nil {
			logger.Warn("Engine cleanup failed.", zap.Error(err))
		}
	}()

	rec := schemas.RunRecord{ID: runID, WorkflowID: workflowID, StartedAt: time.Now().UTC()}
	results, execErr := eng.ExecuteRun(ctx, runID, steps)
	rec.FinishedAt = time.Now().UTC()
	if execErr != nil {
		rec.Status = schemas.RunFailed
		rec.Results = []string{}
		rec.ErrorCode = string(engine.CodeOf(execErr))
		rec.Error = execErr.Error()
	} else {
		rec.Status = schemas.RunCompleted
		rec.Results = results
	}

	out := &Outcome{WorkflowID: workflowID, Steps: steps, Record: rec, Err: execErr}

	if r.store != nil && workflowID != "" {
		persistCtx, cancel := context.WithTimeout(browser.Detach(ctx), persistTimeout)
		defer cancel()
		if err := r.store.RecordRun(persistCtx, &out.Record); err != nil {
			logger.Error("Failed to record run.", zap.Error(err))
			if execErr == nil {
				out.Err = fmt.Errorf("recording run: %w", err)
			}
		}
	}

	logger.Info("Run finished.",
		zap.String("status", string(rec.Status)),
		zap.Int("results", len(rec.Results)),
		zap.Duration("elapsed", rec.Duration()))
	return out, out.Err
}

// RunAll runs every task concurrently, at most the configured number at a
// time. Outcomes are in input order. A failing run does not stop the others;
// cancelling ctx does.
func (r *Runner) RunAll(ctx context.Context, tasks []string) []Outcome {
	outcomes := make([]Outcome, len(tasks))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Task: task, Err: err}
				return nil
			}
			out, _ := r.Run(ctx, task)
			outcomes[i] = *out
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Summary counts outcomes by result.
func Summary(outcomes []Outcome) (succeeded, failed int) {
	for _, o := range outcomes {
		if o.Err == nil {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// IsNoSteps reports whether err means decomposition produced nothing to run.
func IsNoSteps(err error) bool {
	return errors.Is(err, schemas.ErrNoSteps)
}
