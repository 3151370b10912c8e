package humanoid

import (
	"context"
	"sync"
	"time"

	"github.com/Kisii856/task-automation-platform/api/schemas"
)

type move struct {
	X, Y  float64
	Steps int
}

// recorder implements Executor and keeps every call in order.
type recorder struct {
	mu       sync.Mutex
	calls    []string
	moves    []move
	typed    []rune
	scrolls  []float64
	box      *schemas.BoundingBox
	height   float64
	viewport float64
	failOn   string
	err      error

	// MockTypeChar replaces the default TypeChar behaviour when set.
	MockTypeChar func(ctx context.Context, r rune) error
}

func (r *recorder) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	if r.failOn == name {
		return r.err
	}
	return nil
}

func (r *recorder) LocateBoundingBox(ctx context.Context, selector string) (*schemas.BoundingBox, error) {
	if err := r.record("locate"); err != nil {
		return nil, err
	}
	return r.box, nil
}

func (r *recorder) MoveCursor(ctx context.Context, x, y float64, steps int) error {
	r.mu.Lock()
	r.moves = append(r.moves, move{X: x, Y: y, Steps: steps})
	r.mu.Unlock()
	return r.record("move")
}

func (r *recorder) Click(ctx context.Context, selector string) error { return r.record("click") }
func (r *recorder) Focus(ctx context.Context, selector string) error { return r.record("focus") }

func (r *recorder) TypeChar(ctx context.Context, c rune) error {
	if r.MockTypeChar != nil {
		if err := r.MockTypeChar(ctx, c); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.typed = append(r.typed, c)
	r.mu.Unlock()
	return r.record("type")
}

func (r *recorder) ScrollTo(ctx context.Context, y float64) error {
	r.mu.Lock()
	r.scrolls = append(r.scrolls, y)
	r.mu.Unlock()
	return r.record("scroll")
}

func (r *recorder) DocumentScrollHeight(ctx context.Context) (float64, error) {
	return r.height, r.record("height")
}

func (r *recorder) ViewportHeight(ctx context.Context) (float64, error) {
	return r.viewport, r.record("viewport")
}

// sleepLog replaces a pacer's sleep so tests observe delays without waiting.
type sleepLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}
