// Package scheduler runs cancellable one-shot delayed tasks. The betting
// loops chain these: each tick submits the next one.
package scheduler

import "time"

// Task is a pending delayed call.
type Task interface {
	// Stop cancels the call. It reports false if the call already ran or
	// was already stopped.
	Stop() bool
}

// Scheduler submits f to run once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

// Real schedules on the runtime timer heap.
type Real struct{}

// AfterFunc wraps time.AfterFunc. f runs on its own goroutine.
func (Real) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}
