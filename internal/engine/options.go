package engine

import (
	"go.uber.org/zap"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/humanoid"
)

// State is the run state machine: Idle, then Running, then Completed or Failed.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// StepStatus is reported to an Observer for every step.
type StepStatus string

const (
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepSkipped   StepStatus = "skipped"
	StepFailed    StepStatus = "failed"
)

// StepEvent describes one step transition.
type StepEvent struct {
	RunID  string
	Index  int
	Action schemas.Action
	Status StepStatus
	Result string
	Err    error
}

// Observer receives step events synchronously on the run's goroutine.
type Observer func(StepEvent)

// Options tunes an Engine.
type Options struct {
	Logger   *zap.Logger
	Pacer    *humanoid.Pacer
	Humanoid humanoid.Config
	Observer Observer
	// AllowScriptConditions lets conditions outside the closed grammar run as page scripts.
	AllowScriptConditions bool
	// InterpolateVariables expands ${name} in url, selector and value.
	InterpolateVariables bool
	// DefaultWaitMillis applies to wait steps without a usable value.
	DefaultWaitMillis int
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Logger:               zap.NewNop(),
		Humanoid:             humanoid.DefaultConfig(),
		InterpolateVariables: true,
		DefaultWaitMillis:    schemas.DefaultWaitMillis,
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithPacer sets the pacing source for humanized input and inter-step delays.
func WithPacer(p *humanoid.Pacer) Option {
	return func(o *Options) { o.Pacer = p }
}

// WithHumanoidConfig sets the shape of humanized interactions.
func WithHumanoidConfig(c humanoid.Config) Option {
	return func(o *Options) { o.Humanoid = c }
}

// WithObserver registers a step observer.
func WithObserver(obs Observer) Option {
	return func(o *Options) { o.Observer = obs }
}

// WithScriptConditions enables or disables script conditions.
func WithScriptConditions(allow bool) Option {
	return func(o *Options) { o.AllowScriptConditions = allow }
}

// WithInterpolation enables or disables ${name} expansion.
func WithInterpolation(enabled bool) Option {
	return func(o *Options) { o.InterpolateVariables = enabled }
}

// WithDefaultWait sets the wait used when a wait step has no usable value.
func WithDefaultWait(ms int) Option {
	return func(o *Options) {
		if ms > 0 {
			o.DefaultWaitMillis = ms
		}
	}
}
