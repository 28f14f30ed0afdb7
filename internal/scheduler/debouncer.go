// Package scheduler runs keyed, trailing-edge debounced tasks.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Debouncer keeps at most one pending task per key. Scheduling a key again
// before its task fires replaces the task and restarts the quiet period.
type Debouncer struct {
	clock Clock

	mu     sync.Mutex
	tasks  map[string]*task
	seq    uint64
	closed bool
}

type task struct {
	seq   uint64
	timer Timer
}

func NewDebouncer(clock Clock) *Debouncer {
	if clock == nil {
		clock = SystemClock()
	}
	return &Debouncer{clock: clock, tasks: make(map[string]*task)}
}

// Schedule runs fn once delay has passed without another Schedule for key.
// fn runs on the clock's goroutine. After Close it is a no-op.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if prev, ok := d.tasks[key]; ok {
		prev.timer.Stop()
		delete(d.tasks, key)
	}
	d.seq++
	seq := d.seq
	t := &task{seq: seq}
	t.timer = d.clock.AfterFunc(delay, func() { d.fire(key, seq, fn) })
	d.tasks[key] = t
}

// fire drops callbacks whose task was replaced or cancelled after the timer
// had already started running.
func (d *Debouncer) fire(key string, seq uint64, fn func()) {
	d.mu.Lock()
	t, ok := d.tasks[key]
	if !ok || t.seq != seq {
		d.mu.Unlock()
		return
	}
	delete(d.tasks, key)
	d.mu.Unlock()
	fn()
}

// Cancel drops the pending task for key and reports whether there was one.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tasks[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(d.tasks, key)
	return true
}

// CancelAll drops every pending task and returns how many there were.
func (d *Debouncer) CancelAll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.tasks)
	for key, t := range d.tasks {
		t.timer.Stop()
		delete(d.tasks, key)
	}
	return n
}

func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tasks[key]
	return ok
}

// PendingKeys returns the keys with a pending task, sorted.
func (d *Debouncer) PendingKeys() []string {
	d.mu.Lock()
	keys := make([]string, 0, len(d.tasks))
	for k := range d.tasks {
		keys = append(keys, k)
	}
	d.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Close cancels pending tasks and rejects new ones. Tasks already running
// are not interrupted.
func (d *Debouncer) Close() {
	d.CancelAll()
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}
