// File: internal/config/humanoid_config.go
// HumanoidConfig holds the tunable parameters of humanized input: the delay
// ranges between keystrokes, before clicks and between scroll increments, and
// the granularity of cursor paths and scroll increments.
package config

import (
	"errors"
	"time"

	"github.com/Kisii856/task-automation-platform/internal/humanoid"
)

type HumanoidConfig struct {
	KeystrokeMin time.Duration `mapstructure:"keystroke_min" yaml:"keystroke_min"`
	KeystrokeMax time.Duration `mapstructure:"keystroke_max" yaml:"keystroke_max"`

	// Settle is the pause between arriving over an element and pressing it.
	SettleMin time.Duration `mapstructure:"settle_min" yaml:"settle_min"`
	SettleMax time.Duration `mapstructure:"settle_max" yaml:"settle_max"`

	MoveStepsMin int `mapstructure:"move_steps_min" yaml:"move_steps_min"`
	MoveStepsMax int `mapstructure:"move_steps_max" yaml:"move_steps_max"`

	ScrollStepMin  int           `mapstructure:"scroll_step_min" yaml:"scroll_step_min"`
	ScrollStepMax  int           `mapstructure:"scroll_step_max" yaml:"scroll_step_max"`
	ScrollPauseMin time.Duration `mapstructure:"scroll_pause_min" yaml:"scroll_pause_min"`
	ScrollPauseMax time.Duration `mapstructure:"scroll_pause_max" yaml:"scroll_pause_max"`

	// ClickInset is the fraction of an element's box eligible as a click point.
	ClickInset float64 `mapstructure:"click_inset" yaml:"click_inset"`
}

func (h HumanoidConfig) validate() []error {
	var errs []error
	for _, r := range []struct {
		key      string
		min, max time.Duration
	}{
		{"humanoid.keystroke", h.KeystrokeMin, h.KeystrokeMax},
		{"humanoid.settle", h.SettleMin, h.SettleMax},
		{"humanoid.scroll_pause", h.ScrollPauseMin, h.ScrollPauseMax},
	} {
		if err := checkRange(r.key, r.min, r.max); err != nil {
			errs = append(errs, err)
		}
	}
	if h.MoveStepsMin <= 0 || h.MoveStepsMin > h.MoveStepsMax {
		errs = append(errs, errors.New("humanoid.move_steps_min must be positive and not exceed humanoid.move_steps_max"))
	}
	if h.ScrollStepMin <= 0 || h.ScrollStepMin > h.ScrollStepMax {
		errs = append(errs, errors.New("humanoid.scroll_step_min must be positive and not exceed humanoid.scroll_step_max"))
	}
	if h.ClickInset <= 0 || h.ClickInset > 1 {
		errs = append(errs, errors.New("humanoid.click_inset must be in (0, 1]"))
	}
	return errs
}

// Timings builds the pacing ranges from the humanoid and engine sections.
func (c *Config) Timings() humanoid.Timings {
	h := c.HumanoidCfg
	return humanoid.Timings{
		Keystroke:   humanoid.Range{Min: h.KeystrokeMin, Max: h.KeystrokeMax},
		Settle:      humanoid.Range{Min: h.SettleMin, Max: h.SettleMax},
		ScrollPause: humanoid.Range{Min: h.ScrollPauseMin, Max: h.ScrollPauseMax},
		InterStep:   humanoid.Range{Min: c.EngineCfg.InterStepMin, Max: c.EngineCfg.InterStepMax},
	}
}

// Interaction returns the shape parameters for humanized input.
func (h HumanoidConfig) Interaction() humanoid.Config {
	return humanoid.Config{
		MoveStepsMin:  h.MoveStepsMin,
		MoveStepsMax:  h.MoveStepsMax,
		ScrollStepMin: h.ScrollStepMin,
		ScrollStepMax: h.ScrollStepMax,
		ClickInset:    h.ClickInset,
	}
}
