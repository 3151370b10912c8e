package browser

import (
	"context"
	"time"
)

// CombineContext returns a context that carries the values of primary and is
// canceled when either primary or op is done. chromedp keeps its target in the
// context values, so primary is usually the page context and op the caller's.
func CombineContext(primary, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// valueOnlyContext keeps the parent's values but drops its deadline and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context that is never canceled by ctx. Teardown paths use
// it so cleanup still runs after the caller's context is gone.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
