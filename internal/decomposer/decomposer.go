// Package decomposer turns task descriptions into workflow steps.
//
// Two sources are supported: a deterministic rule set over free text, and
// structured step lists produced elsewhere (for example by a language model),
// which are treated as untrusted input and validated before use.
package decomposer

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/Kisii856/task-automation-platform/api/schemas"
)

// Decomposer produces a step sequence for a task.
type Decomposer interface {
	Decompose(ctx context.Context, task string) ([]schemas.WorkflowStep, error)
}

// RuleBased adapts Rules to the Decomposer interface.
type RuleBased struct {
	rules  Rules
	logger *zap.Logger
}

// NewRuleBased creates a rule-based decomposer.
func NewRuleBased(rules Rules, logger *zap.Logger) *RuleBased {
	return &RuleBased{rules: rules.withDefaults(), logger: logger.Named("decomposer")}
}

// Decompose never fails; the context is accepted for interface symmetry.
func (d *RuleBased) Decompose(ctx context.Context, task string) ([]schemas.WorkflowStep, error) {
	steps := d.rules.Decompose(task)
	d.logger.Debug("Decomposed task.", zap.Int("steps", len(steps)), zap.Int("task_length", len(task)))
	return steps, nil
}

// Structured reads a step list from a file. The task text is kept only for the record.
type Structured struct {
	path   string
	logger *zap.Logger
}

// NewStructured creates a decomposer that parses the structured step file at path.
func NewStructured(path string, logger *zap.Logger) *Structured {
	return &Structured{path: path, logger: logger.Named("decomposer")}
}

// Decompose parses the configured file with ParseStructured.
func (d *Structured) Decompose(ctx context.Context, task string) ([]schemas.WorkflowStep, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, err
	}
	steps, err := ParseStructured(data)
	if err != nil {
		d.logger.Warn("Rejected structured step list.", zap.String("path", d.path), zap.Error(err))
		return nil, err
	}
	return steps, nil
}
