package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Operation names a kind of pause the pacer can be asked for.
type Operation string

const (
	OpKeystroke   Operation = "keystroke"
	OpSettle      Operation = "settle"
	OpScrollPause Operation = "scroll_pause"
	OpInterStep   Operation = "inter_step"
)

// Range is an inclusive delay range.
type Range struct {
	Min, Max time.Duration
}

// Policy maps an operation to the range its delay is drawn from.
type Policy func(Operation) Range

// ZeroPolicy never pauses. Tests use it to run without wall-clock delays.
func ZeroPolicy(Operation) Range { return Range{} }

// Timings configures UniformPolicy.
type Timings struct {
	Keystroke   Range
	Settle      Range
	ScrollPause Range
	InterStep   Range
}

// DefaultTimings returns the timings of an unhurried user.
func DefaultTimings() Timings {
	return Timings{
		Keystroke:   Range{Min: 50 * time.Millisecond, Max: 200 * time.Millisecond},
		Settle:      Range{Min: 100 * time.Millisecond, Max: 500 * time.Millisecond},
		ScrollPause: Range{Min: 100 * time.Millisecond, Max: 300 * time.Millisecond},
		InterStep:   Range{Min: 500 * time.Millisecond, Max: 2000 * time.Millisecond},
	}
}

// UniformPolicy draws every delay uniformly from the configured range.
func UniformPolicy(t Timings) Policy {
	return func(op Operation) Range {
		switch op {
		case OpKeystroke:
			return t.Keystroke
		case OpSettle:
			return t.Settle
		case OpScrollPause:
			return t.ScrollPause
		case OpInterStep:
			return t.InterStep
		}
		return Range{}
	}
}

// Pacer turns a Policy into concrete delays. It is safe for concurrent use.
type Pacer struct {
	policy Policy

	mu  sync.Mutex
	rng *rand.Rand

	sleep func(context.Context, time.Duration) error
}

// NewPacer creates a pacer. A nil policy behaves as ZeroPolicy; a nil rng is
// seeded from the clock.
func NewPacer(policy Policy, rng *rand.Rand) *Pacer {
	if policy == nil {
		policy = ZeroPolicy
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pacer{policy: policy, rng: rng, sleep: sleepContext}
}

// Delay draws the next delay for op.
func (p *Pacer) Delay(op Operation) time.Duration {
	r := p.policy(op)
	if r.Max <= r.Min {
		if r.Min < 0 {
			return 0
		}
		return r.Min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return r.Min + time.Duration(p.rng.Int63n(int64(r.Max-r.Min)+1))
}

// Intn returns a value in [min, max].
func (p *Pacer) Intn(min, max int) int {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + p.rng.Intn(max-min+1)
}

// Float64 returns a value in [0, 1).
func (p *Pacer) Float64() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

// NormFloat64 returns a standard normal sample.
func (p *Pacer) NormFloat64() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.NormFloat64()
}

// Pause sleeps for the next delay of op. A zero delay returns immediately,
// but a cancelled ctx is still reported.
func (p *Pacer) Pause(ctx context.Context, op Operation) error {
	d := p.Delay(op)
	if d <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
