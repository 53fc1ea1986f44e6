package linksync

import "time"

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock schedules callbacks with time.AfterFunc.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
