package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/browser"
)

// ErrorCode classifies a failure for callers and persisted run records.
type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeElementNotFound ErrorCode = "ELEMENT_NOT_FOUND"
	ErrCodeNavigation      ErrorCode = "NAVIGATION_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeCancelled       ErrorCode = "CANCELLED"
	ErrCodeDispatch        ErrorCode = "DISPATCH_ERROR"
	ErrCodeCondition       ErrorCode = "CONDITION_ERROR"
	// ErrCodeInternal is the fallback for errors raised outside a step.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrUnsupportedCondition is returned for condition strings outside the
// supported grammar when script conditions are disabled.
var ErrUnsupportedCondition = errors.New("unsupported condition")

// ValidationError reports a step rejected before any remote interaction.
type ValidationError struct {
	StepIndex int
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid step %d: %v", e.StepIndex, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TargetNotFoundError reports a click or extract whose selector matched nothing.
type TargetNotFoundError struct {
	Selector string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("target not found: %s", e.Selector)
}

func (e *TargetNotFoundError) Unwrap() error { return browser.ErrTargetNotFound }

// CancelledError reports a run stopped by its context.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("execution cancelled: %v", e.Cause)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// NavigationError wraps a failed page navigation.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ConditionError wraps a condition that could not be evaluated.
type ConditionError struct {
	Condition string
	Err       error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %q: %v", e.Condition, e.Err)
}

func (e *ConditionError) Unwrap() error { return e.Err }

// ExecutionError aborts a run. It carries the index and action of the step
// that failed and the classified cause.
type ExecutionError struct {
	StepIndex int
	Action    schemas.Action
	Code      ErrorCode
	Cause     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("workflow execution failed: step %d (%s): %v", e.StepIndex, e.Action, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// CodeOf classifies any error. Errors not raised by a step map to ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Code
	}
	var valErr *ValidationError
	var stepErr *schemas.StepValidationError
	if errors.As(err, &valErr) || errors.As(err, &stepErr) {
		return ErrCodeValidation
	}
	var cancelErr *CancelledError
	if errors.As(err, &cancelErr) || errors.Is(err, context.Canceled) {
		return ErrCodeCancelled
	}
	return ErrCodeInternal
}

// classify maps a step failure onto an error code.
func classify(err error) ErrorCode {
	var cancelErr *CancelledError
	var condErr *ConditionError
	var navErr *NavigationError
	switch {
	case errors.As(err, &cancelErr), errors.Is(err, context.Canceled):
		return ErrCodeCancelled
	case errors.Is(err, browser.ErrTargetNotFound):
		return ErrCodeElementNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.As(err, &condErr):
		return ErrCodeCondition
	case errors.As(err, &navErr):
		return ErrCodeNavigation
	}

	// Protocol errors arrive as plain strings.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "net::ERR"):
		return ErrCodeNavigation
	case strings.Contains(msg, "timeout"):
		return ErrCodeTimeout
	case strings.Contains(msg, "no element found"), strings.Contains(msg, "could not find node"):
		return ErrCodeElementNotFound
	}
	return ErrCodeDispatch
}
