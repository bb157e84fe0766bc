package scheduler

import (
	"time"
)

// Clock supplies the current time so date arithmetic is deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return clockFunc(time.Now)
}

// FixedClock returns a Clock frozen at t.
func FixedClock(t time.Time) Clock {
	return clockFunc(func() time.Time { return t })
}
