package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/browser"
	"github.com/Kisii856/task-automation-platform/internal/humanoid"
)

// runContext is the state one run hands to each step handler.
type runContext struct {
	page     browser.Page
	humanoid *humanoid.Humanoid
	vars     *VariableStore
}

// stepHandler performs one step and returns its result line.
type stepHandler func(ctx context.Context, rc *runContext, step schemas.WorkflowStep) (string, error)

func (e *Engine) registerHandlers() {
	e.handlers = map[schemas.Action]stepHandler{
		schemas.ActionVisit:   e.handleVisit,
		schemas.ActionClick:   e.handleClick,
		schemas.ActionInput:   e.handleInput,
		schemas.ActionScroll:  e.handleScroll,
		schemas.ActionWait:    e.handleWait,
		schemas.ActionExtract: e.handleExtract,
	}
}

func (e *Engine) dispatch(ctx context.Context, rc *runContext, step schemas.WorkflowStep) (string, error) {
	handler, ok := e.handlers[step.Action]
	if !ok {
		return "", &schemas.UnknownActionError{Action: step.Action}
	}
	return handler(ctx, rc, step)
}

func (e *Engine) handleVisit(ctx context.Context, rc *runContext, step schemas.WorkflowStep) (string, error) {
	url := step.URLValue()
	if err := rc.page.Goto(ctx, url); err != nil {
		return "", &NavigationError{URL: url, Err: err}
	}
	if err := rc.page.WaitForIdle(ctx); err != nil {
		return "", &NavigationError{URL: url, Err: err}
	}
	return fmt.Sprintf("Visited %s", url), nil
}

func (e *Engine) handleClick(ctx context.Context, rc *runContext, step schemas.WorkflowStep) (string, error) {
	selector := step.SelectorValue()
	if err := rc.humanoid.Click(ctx, selector); err != nil {
		return "", targetError(selector, err)
	}
	if err := rc.page.WaitForIdle(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Clicked %s", selector), nil
}

func (e *Engine) handleInput(ctx context.Context, rc *runContext, step schemas.WorkflowStep) (string, error) {
	selector, value := step.SelectorValue(), step.ValueValue()
	if err := rc.humanoid.Type(ctx, selector, value); err != nil {
		return "", targetError(selector, err)
	}
	return fmt.Sprintf("Typed \"%s\" into %s", value, selector), nil
}

func (e *Engine) handleScroll(ctx context.Context, rc *runContext, _ schemas.WorkflowStep) (string, error) {
	if err := rc.humanoid.Scroll(ctx); err != nil {
		return "", err
	}
	return "Scrolled page", nil
}

func (e *Engine) handleWait(ctx context.Context, rc *runContext, step schemas.WorkflowStep) (string, error) {
	ms := step.WaitMillisOr(e.opts.DefaultWaitMillis)
	if err := rc.page.WaitMillis(ctx, ms); err != nil {
		return "", err
	}
	return fmt.Sprintf("Waited %dms", ms), nil
}

func (e *Engine) handleExtract(ctx context.Context, rc *runContext, step schemas.WorkflowStep) (string, error) {
	selector, name := step.SelectorValue(), step.ValueValue()
	content, err := rc.page.ReadText(ctx, selector)
	if err != nil {
		return "", targetError(selector, err)
	}
	rc.vars.Set(name, content)
	return fmt.Sprintf("Extracted %s into %s", content, name), nil
}

// targetError turns a missing-element failure into a TargetNotFoundError.
func targetError(selector string, err error) error {
	if errors.Is(err, browser.ErrTargetNotFound) {
		return &TargetNotFoundError{Selector: selector}
	}
	return err
}

// interpolate expands ${name} placeholders in the step's url, selector and value.
func interpolate(step schemas.WorkflowStep, vars *VariableStore) schemas.WorkflowStep {
	expand := func(p *string) *string {
		if p == nil {
			return nil
		}
		s := vars.Interpolate(*p)
		return &s
	}
	step.URL = expand(step.URL)
	step.Selector = expand(step.Selector)
	step.Value = expand(step.Value)
	return step
}
