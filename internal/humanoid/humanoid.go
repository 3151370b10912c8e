// Package humanoid wraps primitive page operations with human-like pacing:
// randomized click points, multi-step cursor paths, per-keystroke delays and
// stepwise scrolling.
package humanoid

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/browser"
)

// Executor is the subset of browser.Page the humanoid drives.
type Executor interface {
	LocateBoundingBox(ctx context.Context, selector string) (*schemas.BoundingBox, error)
	MoveCursor(ctx context.Context, x, y float64, steps int) error
	Click(ctx context.Context, selector string) error
	Focus(ctx context.Context, selector string) error
	TypeChar(ctx context.Context, r rune) error
	ScrollTo(ctx context.Context, y float64) error
	DocumentScrollHeight(ctx context.Context) (float64, error)
	ViewportHeight(ctx context.Context) (float64, error)
}

// Config bounds the randomized shape of interactions. Delays come from the Pacer.
type Config struct {
	MoveStepsMin  int
	MoveStepsMax  int
	ScrollStepMin int
	ScrollStepMax int
	// ClickInset is the fraction of the box, centred, that click points are drawn from.
	ClickInset float64
}

// DefaultConfig returns the standard interaction shape.
func DefaultConfig() Config {
	return Config{
		MoveStepsMin:  30,
		MoveStepsMax:  99,
		ScrollStepMin: 100,
		ScrollStepMax: 300,
		ClickInset:    0.9,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MoveStepsMin < 1 {
		c.MoveStepsMin = d.MoveStepsMin
	}
	if c.MoveStepsMax < c.MoveStepsMin {
		c.MoveStepsMax = c.MoveStepsMin
	}
	if c.ScrollStepMin < 1 {
		c.ScrollStepMin = d.ScrollStepMin
	}
	if c.ScrollStepMax < c.ScrollStepMin {
		c.ScrollStepMax = c.ScrollStepMin
	}
	if c.ClickInset <= 0 || c.ClickInset > 1 {
		c.ClickInset = d.ClickInset
	}
	return c
}

// Humanoid performs paced interactions against one executor.
type Humanoid struct {
	// mu serializes interactions so cursor paths and keystrokes never interleave.
	mu       sync.Mutex
	cfg      Config
	executor Executor
	pacer    *Pacer
	logger   *zap.Logger
}

// New creates a Humanoid. A nil pacer never pauses.
func New(cfg Config, executor Executor, pacer *Pacer, logger *zap.Logger) *Humanoid {
	if pacer == nil {
		pacer = NewPacer(ZeroPolicy, nil)
	}
	return &Humanoid{
		cfg:      cfg.normalized(),
		executor: executor,
		pacer:    pacer,
		logger:   logger.Named("humanoid"),
	}
}

// Click moves the cursor along a multi-step path to a random point inside the
// target, settles, then clicks. A missing target is reported as
// browser.ErrTargetNotFound and nothing is clicked.
func (h *Humanoid) Click(ctx context.Context, selector string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	box, err := h.executor.LocateBoundingBox(ctx, selector)
	if err != nil {
		return fmt.Errorf("humanoid: locating %q: %w", selector, err)
	}
	if box == nil || !box.Valid() {
		return fmt.Errorf("humanoid: click %q: %w", selector, browser.ErrTargetNotFound)
	}

	x, y := h.clickPoint(*box)
	steps := h.pacer.Intn(h.cfg.MoveStepsMin, h.cfg.MoveStepsMax)
	if err := h.executor.MoveCursor(ctx, x, y, steps); err != nil {
		return fmt.Errorf("humanoid: moving cursor: %w", err)
	}
	if err := h.pacer.Pause(ctx, OpSettle); err != nil {
		return err
	}
	if err := h.executor.Click(ctx, selector); err != nil {
		return fmt.Errorf("humanoid: click %q: %w", selector, err)
	}
	h.logger.Debug("Clicked.", zap.String("selector", selector), zap.Float64("x", x), zap.Float64("y", y), zap.Int("steps", steps))
	return nil
}

// clickPoint draws a point around the centre of box with a Gaussian spread,
// clamped to the inset region.
func (h *Humanoid) clickPoint(box schemas.BoundingBox) (float64, float64) {
	cx, cy := box.Center()
	halfW := box.Width * h.cfg.ClickInset / 2
	halfH := box.Height * h.cfg.ClickInset / 2

	x := cx + h.pacer.NormFloat64()*halfW/2.5
	y := cy + h.pacer.NormFloat64()*halfH/2.5
	return clamp(x, cx-halfW, cx+halfW), clamp(y, cy-halfH, cy+halfH)
}

// Type focuses the target and emits text one rune at a time.
func (h *Humanoid) Type(ctx context.Context, selector, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.executor.Focus(ctx, selector); err != nil {
		return fmt.Errorf("humanoid: focusing %q: %w", selector, err)
	}
	for _, r := range text {
		if err := h.executor.TypeChar(ctx, r); err != nil {
			return fmt.Errorf("humanoid: typing into %q: %w", selector, err)
		}
		if err := h.pacer.Pause(ctx, OpKeystroke); err != nil {
			return err
		}
	}
	return nil
}

// Scroll moves the viewport down in random increments until the bottom of
// the document. The height is read once, so the loop always terminates.
func (h *Humanoid) Scroll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	height, err := h.executor.DocumentScrollHeight(ctx)
	if err != nil {
		return fmt.Errorf("humanoid: reading scroll height: %w", err)
	}
	viewport, err := h.executor.ViewportHeight(ctx)
	if err != nil {
		return fmt.Errorf("humanoid: reading viewport height: %w", err)
	}

	target := math.Max(0, height-viewport)
	increments := 0
	for pos := 0.0; pos < target; {
		pos = math.Min(target, pos+float64(h.pacer.Intn(h.cfg.ScrollStepMin, h.cfg.ScrollStepMax)))
		if err := h.executor.ScrollTo(ctx, pos); err != nil {
			return fmt.Errorf("humanoid: scrolling: %w", err)
		}
		increments++
		if err := h.pacer.Pause(ctx, OpScrollPause); err != nil {
			return err
		}
	}
	h.logger.Debug("Scrolled.", zap.Float64("target", target), zap.Int("increments", increments))
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
