package benchmark

import "time"

// Timer is a stopwatch for one enclosed operation.
type Timer struct {
	start    time.Time
	Duration time.Duration
}

// Start records the start timestamp.
func (t *Timer) Start() { t.start = time.Now() }

// Stop sets and returns the time elapsed since Start.
func (t *Timer) Stop() time.Duration {
	t.Duration = time.Since(t.start)
	return t.Duration
}

// Time runs fn and returns how long it took, whether or not it failed.
func Time(fn func() error) (time.Duration, error) {
	var t Timer
	t.Start()
	err := fn()
	return t.Stop(), err
}
