// Package engine executes validated workflow steps against a remote browser
// session. A run is strictly sequential and all-or-nothing: the first failing
// step aborts it and no partial results are returned.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/browser"
	"github.com/Kisii856/task-automation-platform/internal/humanoid"
)

// teardownTimeout bounds page and session teardown, which runs detached from the caller.
const teardownTimeout = 15 * time.Second

// Engine owns at most one browser session, created on first use and reused
// across runs until Cleanup. An Engine runs one sequence at a time.
type Engine struct {
	driver   browser.Driver
	opts     Options
	pacer    *humanoid.Pacer
	logger   *zap.Logger
	handlers map[schemas.Action]stepHandler

	// mu serializes runs and cleanup, and guards session.
	mu      sync.Mutex
	session browser.Session

	stateMu sync.RWMutex
	state   State
}

// New creates an engine over driver.
func New(driver browser.Driver, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	pacer := o.Pacer
	if pacer == nil {
		pacer = humanoid.NewPacer(humanoid.UniformPolicy(humanoid.DefaultTimings()), nil)
	}
	e := &Engine{
		driver: driver,
		opts:   o,
		pacer:  pacer,
		logger: o.Logger.Named("engine"),
		state:  StateIdle,
	}
	e.registerHandlers()
	return e
}

// State returns the state of the most recent run.
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// Execute runs steps under a fresh run id.
func (e *Engine) Execute(ctx context.Context, steps []schemas.WorkflowStep) ([]string, error) {
	return e.ExecuteRun(ctx, uuid.NewString(), steps)
}

// ExecuteRun runs steps and returns one result line per executed step.
// Every step and condition is validated before any remote call. An empty
// sequence succeeds without creating a session. When ctx is cancelled the
// run fails with a CancelledError cause and the session is released.
func (e *Engine) ExecuteRun(ctx context.Context, runID string, steps []schemas.WorkflowStep) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(steps) == 0 {
		e.setState(StateCompleted)
		return []string{}, nil
	}

	conditions, err := e.prepare(steps)
	if err != nil {
		e.setState(StateFailed)
		return nil, err
	}

	e.setState(StateRunning)
	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("Run started.", zap.Int("steps", len(steps)))
	start := time.Now()

	results, err := e.run(ctx, runID, steps, conditions, logger)
	if err != nil {
		e.setState(StateFailed)
		var execErr *ExecutionError
		if errors.As(err, &execErr) && execErr.Code == ErrCodeCancelled {
			if cerr := e.cleanupLocked(browser.Detach(ctx)); cerr != nil {
				logger.Warn("Cleanup after cancellation failed.", zap.Error(cerr))
			}
		}
		logger.Error("Run failed.", zap.Error(err), zap.String("code", string(CodeOf(err))), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	e.setState(StateCompleted)
	logger.Info("Run completed.", zap.Int("results", len(results)), zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

// prepare validates every step and parses its condition.
func (e *Engine) prepare(steps []schemas.WorkflowStep) ([]*Condition, error) {
	conditions := make([]*Condition, len(steps))
	for i, step := range steps {
		if err := step.Validate(); err != nil {
			return nil, &ValidationError{StepIndex: i, Err: err}
		}
		if !step.HasCondition() {
			continue
		}
		cond, err := ParseCondition(step.ConditionValue(), e.opts.AllowScriptConditions)
		if err != nil {
			return nil, &ValidationError{StepIndex: i, Err: err}
		}
		conditions[i] = &cond
	}
	return conditions, nil
}

func (e *Engine) run(ctx context.Context, runID string, steps []schemas.WorkflowStep, conditions []*Condition, logger *zap.Logger) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, e.fail(ctx, runID, 0, steps[0].Action, err)
	}

	page, err := e.openPage(ctx)
	if err != nil {
		return nil, e.fail(ctx, runID, 0, steps[0].Action, fmt.Errorf("opening page: %w", err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(browser.Detach(ctx), teardownTimeout)
		defer cancel()
		if err := page.Close(closeCtx); err != nil {
			logger.Warn("Failed to close page.", zap.Error(err))
		}
	}()

	rc := &runContext{
		page:     page,
		humanoid: humanoid.New(e.opts.Humanoid, page, e.pacer, logger),
		vars:     NewVariableStore(),
	}
	results := make([]string, 0, len(steps))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, e.fail(ctx, runID, i, step.Action, err)
		}

		if cond := conditions[i]; cond != nil {
			ok, err := cond.Evaluate(ctx, page, rc.vars, e.opts.InterpolateVariables)
			if err != nil {
				return nil, e.fail(ctx, runID, i, step.Action, &ConditionError{Condition: cond.String(), Err: err})
			}
			if !ok {
				logger.Debug("Step skipped.", zap.Int("step", i), zap.String("condition", cond.String()))
				e.notify(StepEvent{RunID: runID, Index: i, Action: step.Action, Status: StepSkipped})
				continue
			}
		}

		if e.opts.InterpolateVariables {
			step = interpolate(step, rc.vars)
		}
		e.notify(StepEvent{RunID: runID, Index: i, Action: step.Action, Status: StepRunning})

		result, err := e.dispatch(ctx, rc, step)
		if err != nil {
			return nil, e.fail(ctx, runID, i, step.Action, err)
		}
		results = append(results, result)
		logger.Debug("Step completed.", zap.Int("step", i), zap.String("action", step.Action.String()), zap.String("result", result))
		e.notify(StepEvent{RunID: runID, Index: i, Action: step.Action, Status: StepCompleted, Result: result})

		if err := e.pacer.Pause(ctx, humanoid.OpInterStep); err != nil {
			return nil, e.fail(ctx, runID, i, step.Action, err)
		}
	}
	return results, nil
}

// fail wraps cause for the step at index. A done ctx turns any cause into a cancellation.
func (e *Engine) fail(ctx context.Context, runID string, index int, action schemas.Action, cause error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		var cancelled *CancelledError
		if !errors.As(cause, &cancelled) {
			cause = &CancelledError{Cause: ctxErr}
		}
	}
	err := &ExecutionError{StepIndex: index, Action: action, Code: classify(cause), Cause: cause}
	e.notify(StepEvent{RunID: runID, Index: index, Action: action, Status: StepFailed, Err: err})
	return err
}

func (e *Engine) notify(ev StepEvent) {
	if e.opts.Observer != nil {
		e.opts.Observer(ev)
	}
}

// openPage launches the session on first use and opens a fresh page on it.
func (e *Engine) openPage(ctx context.Context) (browser.Page, error) {
	if e.session == nil {
		session, err := e.driver.LaunchSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("launching session: %w", err)
		}
		e.session = session
		e.logger.Info("Session created.", zap.String("session_id", session.ID()))
	}
	return e.session.NewPage(ctx)
}

// Cleanup releases the session. It is safe to call any number of times, and
// on an engine that never created a session.
func (e *Engine) Cleanup(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cleanupLocked(ctx)
}

func (e *Engine) cleanupLocked(ctx context.Context) error {
	if e.session == nil {
		return nil
	}
	session := e.session

	closeCtx, cancel := context.WithTimeout(browser.Detach(ctx), teardownTimeout)
	defer cancel()
	if err := session.Close(closeCtx); err != nil {
		// Keep the handle so a later Cleanup can retry.
		return fmt.Errorf("engine: closing session %s: %w", session.ID(), err)
	}
	e.session = nil
	e.logger.Info("Session released.", zap.String("session_id", session.ID()))
	return nil
}
