package humanoid

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPacer_Delay(t *testing.T) {
	p := NewPacer(UniformPolicy(DefaultTimings()), rand.New(rand.NewSource(1)))
	for i := 0; i < 200; i++ {
		d := p.Delay(OpKeystroke)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 200*time.Millisecond)
	}

	fixed := NewPacer(func(Operation) Range { return Range{Min: time.Second, Max: time.Second} }, nil)
	assert.Equal(t, time.Second, fixed.Delay(OpInterStep))

	assert.Zero(t, NewPacer(nil, nil).Delay(OpSettle))
	assert.Zero(t, p.Delay(Operation("unknown")))
}

func TestPacer_Intn(t *testing.T) {
	p := NewPacer(nil, rand.New(rand.NewSource(7)))
	for i := 0; i < 100; i++ {
		n := p.Intn(3, 5)
		assert.GreaterOrEqual(t, n, 3)
		assert.LessOrEqual(t, n, 5)
	}
	assert.Equal(t, 4, p.Intn(4, 2))
}

func TestPacer_Pause(t *testing.T) {
	log := &sleepLog{}
	p := NewPacer(ZeroPolicy, nil)
	p.sleep = log.sleep

	assert.NoError(t, p.Pause(context.Background(), OpInterStep))
	assert.Empty(t, log.delays, "zero delays never sleep")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Pause(ctx, OpInterStep), context.Canceled)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
