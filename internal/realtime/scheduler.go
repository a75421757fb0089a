package realtime

import "time"

// Scheduler abstracts delayed execution so connection delays and reconnect
// backoff can be driven by a fake in tests instead of wall-clock sleeps.
type Scheduler interface {
	// After runs fn once d has elapsed and returns a cancel func.
	After(d time.Duration, fn func()) (cancel func())
}

type realScheduler struct{}

// NewScheduler returns the wall-clock scheduler used in production.
func NewScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ImmediateScheduler runs callbacks synchronously with zero delay. Tests use
// it to make the asynchronous connect/reply paths deterministic.
type ImmediateScheduler struct{}

func (ImmediateScheduler) After(d time.Duration, fn func()) func() {
	fn()
	return func() {}
}
