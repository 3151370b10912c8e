package browser

import "time"

// SetCloseWait shortens the teardown bound for tests.
func SetCloseWait(p *Pool, d time.Duration) { p.closeWait = d }

// HoldLifecycle takes the lifecycle lock as an in-flight launch would and
// returns its release.
func HoldLifecycle(p *Pool) func() {
	if !p.lifecycle.TryAcquire(1) {
		panic("lifecycle lock already held")
	}
	return func() { p.lifecycle.Release(1) }
}
