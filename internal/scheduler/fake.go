package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Scheduler for tests. Tasks run synchronously
// on the goroutine calling Advance.
type Fake struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*fakeTask
}

type fakeTask struct {
	owner   *Fake
	due     time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewFake returns a Fake at virtual time zero.
func NewFake() *Fake {
	return &Fake{}
}

// AfterFunc registers f to run once the virtual clock reaches now+d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Task {
	f.mu.Lock()
	defer f.mu.Unlock()

	if d < 0 {
		d = 0
	}
	f.seq++
	t := &fakeTask{owner: f, due: f.now + d, seq: f.seq, fn: fn}
	f.tasks = append(f.tasks, t)
	return t
}

func (t *fakeTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.owner.removeLocked(t)
	return true
}

// Advance moves the clock forward by d, running every task that comes due
// in due-time order. Tasks scheduled by a running task are honored if they
// fall inside the window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDueLocked(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.due
		next.fired = true
		f.removeLocked(next)
		f.mu.Unlock()

		next.fn()
	}
}

// Pending reports how many tasks are scheduled and not yet run or stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// NextDue returns the delay until the earliest pending task.
func (f *Fake) NextDue() (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tasks) == 0 {
		return 0, false
	}
	f.sortLocked()
	return f.tasks[0].due - f.now, true
}

// Now returns the virtual time elapsed since creation.
func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) nextDueLocked(target time.Duration) *fakeTask {
	if len(f.tasks) == 0 {
		return nil
	}
	f.sortLocked()
	if f.tasks[0].due > target {
		return nil
	}
	return f.tasks[0]
}

func (f *Fake) sortLocked() {
	sort.Slice(f.tasks, func(i, j int) bool {
		if f.tasks[i].due != f.tasks[j].due {
			return f.tasks[i].due < f.tasks[j].due
		}
		return f.tasks[i].seq < f.tasks[j].seq
	})
}

func (f *Fake) removeLocked(t *fakeTask) {
	for i, x := range f.tasks {
		if x == t {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return
		}
	}
}
