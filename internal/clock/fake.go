package clock

import (
	"sync"
	"time"
)

// Fake is a virtual Clock and Scheduler. Time only moves through Advance or
// Set, and scheduled tasks fire synchronously inside Advance.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*fakeTask
}

type fakeTask struct {
	interval time.Duration
	next     time.Time
	fn       func()
	stopped  bool
}

// NewFake returns a Fake starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the virtual time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set jumps to t without firing any task.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Every registers fn to fire each interval of virtual time.
func (f *Fake) Every(interval time.Duration, fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTask{interval: interval, next: f.now.Add(interval), fn: fn}
	f.tasks = append(f.tasks, t)

	return func() {
		f.mu.Lock()
		t.stopped = true
		f.mu.Unlock()
	}
}

// Advance moves the clock forward by d, firing due tasks in time order.
// Tasks run without the lock held, so they may use the Fake themselves.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)

	for {
		t := f.nextDue(target)
		if t == nil {
			break
		}
		f.now = t.next
		t.next = t.next.Add(t.interval)
		fn := t.fn

		f.mu.Unlock()
		fn()
		f.mu.Lock()
	}

	f.now = target
	f.prune()
	f.mu.Unlock()
}

// Active reports how many scheduled tasks have not been stopped.
func (f *Fake) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, t := range f.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (f *Fake) nextDue(target time.Time) *fakeTask {
	var due *fakeTask
	for _, t := range f.tasks {
		if t.stopped || t.next.After(target) {
			continue
		}
		if due == nil || t.next.Before(due.next) {
			due = t
		}
	}
	return due
}

func (f *Fake) prune() {
	live := f.tasks[:0]
	for _, t := range f.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	f.tasks = live
}
