package humanoid

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Kisii856/task-automation-platform/api/schemas"
	"github.com/Kisii856/task-automation-platform/internal/browser"
)

// newTestHumanoid wires a seeded pacer whose sleeps are recorded instead of taken.
func newTestHumanoid(t *testing.T, exec Executor) (*Humanoid, *sleepLog) {
	t.Helper()
	log := &sleepLog{}
	pacer := NewPacer(UniformPolicy(DefaultTimings()), rand.New(rand.NewSource(42)))
	pacer.sleep = log.sleep
	return New(DefaultConfig(), exec, pacer, zaptest.NewLogger(t)), log
}

func TestClick(t *testing.T) {
	box := &schemas.BoundingBox{X: 100, Y: 200, Width: 50, Height: 20}
	rec := &recorder{box: box}
	h, sleeps := newTestHumanoid(t, rec)

	require.NoError(t, h.Click(context.Background(), "#go"))
	assert.Equal(t, []string{"locate", "move", "click"}, rec.calls)

	require.Len(t, rec.moves, 1)
	m := rec.moves[0]
	assert.True(t, box.Contains(m.X, m.Y), "click point %v must lie inside the box", m)
	assert.GreaterOrEqual(t, m.Steps, 30)
	assert.LessOrEqual(t, m.Steps, 99)

	require.Len(t, sleeps.delays, 1, "one settle pause before the click")
	assert.GreaterOrEqual(t, sleeps.delays[0], 100*time.Millisecond)
	assert.LessOrEqual(t, sleeps.delays[0], 500*time.Millisecond)
}

func TestClick_PointsVary(t *testing.T) {
	box := &schemas.BoundingBox{X: 0, Y: 0, Width: 200, Height: 100}
	rec := &recorder{box: box}
	h, _ := newTestHumanoid(t, rec)

	for i := 0; i < 25; i++ {
		require.NoError(t, h.Click(context.Background(), "#b"))
	}
	distinct := map[move]bool{}
	cx, cy := box.Center()
	offCenter := 0
	for _, m := range rec.moves {
		assert.True(t, box.Contains(m.X, m.Y))
		distinct[move{X: m.X, Y: m.Y}] = true
		if m.X != cx || m.Y != cy {
			offCenter++
		}
	}
	assert.Greater(t, len(distinct), 1)
	assert.Greater(t, offCenter, 0, "click points are not always the center")
}

func TestClick_MissingTarget(t *testing.T) {
	rec := &recorder{}
	h, _ := newTestHumanoid(t, rec)

	err := h.Click(context.Background(), "#missing")
	assert.ErrorIs(t, err, browser.ErrTargetNotFound)
	assert.Equal(t, []string{"locate"}, rec.calls, "nothing is clicked without a box")

	rec = &recorder{box: &schemas.BoundingBox{Width: 0, Height: 10}}
	h, _ = newTestHumanoid(t, rec)
	assert.ErrorIs(t, h.Click(context.Background(), "#hidden"), browser.ErrTargetNotFound)
}

func TestClick_LocateError(t *testing.T) {
	boom := errors.New("protocol error")
	rec := &recorder{failOn: "locate", err: boom}
	h, _ := newTestHumanoid(t, rec)
	assert.ErrorIs(t, h.Click(context.Background(), "#x"), boom)
}

func TestType(t *testing.T) {
	rec := &recorder{}
	h, sleeps := newTestHumanoid(t, rec)

	require.NoError(t, h.Type(context.Background(), "#q", "héllo"))
	assert.Equal(t, "focus", rec.calls[0])
	assert.Equal(t, []rune("héllo"), rec.typed)

	require.Len(t, sleeps.delays, 5, "one keystroke pause per rune")
	for _, d := range sleeps.delays {
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 200*time.Millisecond)
	}
}

func TestType_Empty(t *testing.T) {
	rec := &recorder{}
	h, sleeps := newTestHumanoid(t, rec)
	require.NoError(t, h.Type(context.Background(), "#q", ""))
	assert.Equal(t, []string{"focus"}, rec.calls)
	assert.Empty(t, sleeps.delays)
}

func TestType_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	count := 0
	rec := &recorder{}
	rec.MockTypeChar = func(ctx context.Context, r rune) error {
		count++
		if count == 2 {
			cancel()
		}
		return nil
	}
	h := New(DefaultConfig(), rec, NewPacer(ZeroPolicy, nil), zaptest.NewLogger(t))

	err := h.Type(ctx, "#q", "abcdef")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.typed, 2)
}

func TestScroll(t *testing.T) {
	rec := &recorder{height: 1000, viewport: 400}
	h, sleeps := newTestHumanoid(t, rec)

	require.NoError(t, h.Scroll(context.Background()))
	require.NotEmpty(t, rec.scrolls)
	assert.Equal(t, 600.0, rec.scrolls[len(rec.scrolls)-1])

	prev := 0.0
	for i, pos := range rec.scrolls {
		step := pos - prev
		assert.Greater(t, step, 0.0, "scroll position is strictly increasing")
		assert.LessOrEqual(t, step, 300.0)
		if i < len(rec.scrolls)-1 {
			assert.GreaterOrEqual(t, step, 100.0)
		}
		prev = pos
	}
	assert.Len(t, sleeps.delays, len(rec.scrolls))
}

func TestScroll_ShortPage(t *testing.T) {
	rec := &recorder{height: 300, viewport: 800}
	h, _ := newTestHumanoid(t, rec)
	require.NoError(t, h.Scroll(context.Background()))
	assert.Empty(t, rec.scrolls)
}

func TestConfigNormalized(t *testing.T) {
	c := Config{MoveStepsMin: 10, MoveStepsMax: 5, ClickInset: 3}.normalized()
	assert.Equal(t, 10, c.MoveStepsMax)
	assert.Equal(t, DefaultConfig().ScrollStepMin, c.ScrollStepMin)
	assert.Equal(t, DefaultConfig().ClickInset, c.ClickInset)
}
