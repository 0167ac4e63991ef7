package core

import "time"

// Clock is the wall-clock source for expiry and rate-limit windows.
// Tests swap in util.FakeClock.
type Clock interface {
	Now() time.Time
}
