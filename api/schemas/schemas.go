package schemas

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// -- Step Model --

// Action identifies the kind of browser operation a WorkflowStep performs.
type Action string

const (
	ActionVisit   Action = "visit"
	ActionClick   Action = "click"
	ActionInput   Action = "input"
	ActionScroll  Action = "scroll"
	ActionWait    Action = "wait"
	ActionExtract Action = "extract"
)

// ErrNoSteps means decomposition produced nothing to run.
var ErrNoSteps = errors.New("failed to generate workflow steps")

// DefaultWaitMillis is used by wait steps whose value is missing or not a positive integer.
const DefaultWaitMillis = 1000

// MaxWaitMillis caps a single wait step at one hour.
const MaxWaitMillis = 60 * 60 * 1000

// String satisfies fmt.Stringer.
func (a Action) String() string { return string(a) }

// Known reports whether a is part of the supported action vocabulary.
func (a Action) Known() bool {
	switch a {
	case ActionVisit, ActionClick, ActionInput, ActionScroll, ActionWait, ActionExtract:
		return true
	}
	return false
}

// Actions returns the supported action vocabulary in canonical order.
func Actions() []Action {
	return []Action{ActionVisit, ActionClick, ActionInput, ActionScroll, ActionWait, ActionExtract}
}

// WorkflowStep is one automation instruction.
// Optional fields are pointers so that an absent field and an empty string
// survive a round trip through the wire format unchanged.
type WorkflowStep struct {
	Action      Action  `json:"action" yaml:"action"`
	Description string  `json:"description" yaml:"description"`
	Selector    *string `json:"selector,omitempty" yaml:"selector,omitempty"`
	URL         *string `json:"url,omitempty" yaml:"url,omitempty"`
	// Value is the text to type (input), the delay in milliseconds (wait),
	// or the variable name to store into (extract).
	Value     *string `json:"value,omitempty" yaml:"value,omitempty"`
	Condition *string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// String returns a pointer to s. It keeps step literals readable.
func String(s string) *string { return &s }

// Deref returns the pointed-to string, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SelectorValue returns the selector or "".
func (s WorkflowStep) SelectorValue() string { return Deref(s.Selector) }

// URLValue returns the url or "".
func (s WorkflowStep) URLValue() string { return Deref(s.URL) }

// ValueValue returns the value or "".
func (s WorkflowStep) ValueValue() string { return Deref(s.Value) }

// ConditionValue returns the condition or "".
func (s WorkflowStep) ConditionValue() string { return Deref(s.Condition) }

// HasCondition reports whether the step carries a non-blank guard expression.
func (s WorkflowStep) HasCondition() bool {
	return strings.TrimSpace(s.ConditionValue()) != ""
}

// Validate checks the action-specific required fields. It has no side effects.
func (s WorkflowStep) Validate() error {
	switch s.Action {
	case ActionVisit:
		if isBlank(s.URL) {
			return &MissingFieldError{Action: s.Action, Field: "url"}
		}
	case ActionClick, ActionInput:
		if isBlank(s.Selector) {
			return &MissingFieldError{Action: s.Action, Field: "selector"}
		}
	case ActionExtract:
		if isBlank(s.Selector) {
			return &MissingFieldError{Action: s.Action, Field: "selector"}
		}
		if isBlank(s.Value) {
			return &MissingFieldError{Action: s.Action, Field: "value"}
		}
	case ActionScroll, ActionWait:
		// No required fields. A wait without a usable value falls back to DefaultWaitMillis.
	default:
		return &UnknownActionError{Action: s.Action}
	}
	return nil
}

// WaitMillis resolves the delay of a wait step. Like parseInt, it reads the
// leading integer of the value and ignores trailing text ("500ms" is 500).
// Missing, unparsable, zero and negative values resolve to DefaultWaitMillis.
// Values above MaxWaitMillis resolve to MaxWaitMillis.
func (s WorkflowStep) WaitMillis() int {
	return s.WaitMillisOr(DefaultWaitMillis)
}

// WaitMillisOr is WaitMillis with a caller-chosen fallback.
func (s WorkflowStep) WaitMillisOr(fallback int) int {
	raw := strings.TrimSpace(s.ValueValue())
	end := 0
	for end < len(raw) && (unicode.IsDigit(rune(raw[end])) || (end == 0 && (raw[0] == '-' || raw[0] == '+'))) {
		end++
	}
	n, err := strconv.Atoi(raw[:end])
	if errors.Is(err, strconv.ErrRange) && n > 0 {
		return MaxWaitMillis
	}
	if err != nil || n <= 0 {
		n = fallback
	}
	return min(n, MaxWaitMillis)
}

// ValidateSteps validates every step and reports the first failure with its index.
func ValidateSteps(steps []WorkflowStep) error {
	for i, step := range steps {
		if err := step.Validate(); err != nil {
			return &StepValidationError{Index: i, Err: err}
		}
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// -- Validation Errors --

// MissingFieldError reports a step whose action-specific required field is empty.
type MissingFieldError struct {
	Action Action
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s step requires a non-empty '%s'", e.Action, e.Field)
}

// UnknownActionError reports a step whose action is outside the vocabulary.
type UnknownActionError struct {
	Action Action
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", string(e.Action))
}

// StepValidationError attaches the position of an invalid step in a sequence.
type StepValidationError struct {
	Index int
	Err   error
}

func (e *StepValidationError) Error() string {
	return fmt.Sprintf("step %d: %v", e.Index, e.Err)
}

func (e *StepValidationError) Unwrap() error { return e.Err }
