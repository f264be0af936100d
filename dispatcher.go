package statechart

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// Dispatcher is the execution context that owns a machine. Schedule runs fn
// later on that context; AfterFunc does the same once d has elapsed and
// returns a function that cancels the call, reporting whether it was still
// pending.
type Dispatcher interface {
	Schedule(fn func())
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// LoopDispatcher runs scheduled functions one at a time on its own goroutine
type LoopDispatcher struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewLoopDispatcher starts the dispatcher goroutine
func NewLoopDispatcher() *LoopDispatcher {
	d := &LoopDispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *LoopDispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}
		for {
			d.mu.Lock()
			if len(d.tasks) == 0 || d.closed {
				d.mu.Unlock()
				break
			}
			fn := d.tasks[0]
			d.tasks = d.tasks[1:]
			d.mu.Unlock()
			fn()
		}
	}
}

// Schedule queues fn. Functions scheduled after Close are dropped.
func (d *LoopDispatcher) Schedule(fn func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.tasks = append(d.tasks, fn)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// AfterFunc schedules fn once d has elapsed
func (d *LoopDispatcher) AfterFunc(delay time.Duration, fn func()) func() bool {
	timer := time.AfterFunc(delay, func() { d.Schedule(fn) })
	return timer.Stop
}

// Close stops the dispatcher goroutine and waits for the running function
func (d *LoopDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.tasks = nil
	d.mu.Unlock()
	close(d.done)
	d.wg.Wait()
}

// ManualDispatcher runs nothing until told to. Timers follow a virtual
// clock moved by Advance.
type ManualDispatcher struct {
	mu     sync.Mutex
	tasks  []func()
	timers []*manualTimer
	now    time.Duration
	seq    int
}

type manualTimer struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

// NewManualDispatcher creates a dispatcher with its clock at zero
func NewManualDispatcher() *ManualDispatcher {
	return &ManualDispatcher{}
}

// Schedule queues fn until the next Drain
func (d *ManualDispatcher) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, fn)
}

// AfterFunc registers fn to run once the virtual clock reaches now+delay
func (d *ManualDispatcher) AfterFunc(delay time.Duration, fn func()) func() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	t := &manualTimer{at: d.now + delay, seq: d.seq, fn: fn}
	d.timers = append(d.timers, t)
	return func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		if t.stopped {
			return false
		}
		t.stopped = true
		d.timers = removeID(d.timers, t)
		return true
	}
}

// Drain runs queued functions, including those they schedule, until the
// queue is empty. It returns the number of functions run.
func (d *ManualDispatcher) Drain() int {
	n := 0
	for {
		d.mu.Lock()
		if len(d.tasks) == 0 {
			d.mu.Unlock()
			return n
		}
		fn := d.tasks[0]
		d.tasks = d.tasks[1:]
		d.mu.Unlock()
		fn()
		n++
	}
}

// Advance moves the virtual clock forward, firing due timers in order and
// draining after each one
func (d *ManualDispatcher) Advance(dt time.Duration) {
	d.Drain()
	d.mu.Lock()
	deadline := d.now + dt
	d.mu.Unlock()
	for {
		d.mu.Lock()
		t := d.nextDue(deadline)
		if t == nil {
			d.now = deadline
			d.mu.Unlock()
			d.Drain()
			return
		}
		t.stopped = true
		d.timers = removeID(d.timers, t)
		d.now = t.at
		d.mu.Unlock()
		t.fn()
		d.Drain()
	}
}

func (d *ManualDispatcher) nextDue(deadline time.Duration) *manualTimer {
	due := slices.DeleteFunc(slices.Clone(d.timers), func(t *manualTimer) bool { return t.at > deadline })
	if len(due) == 0 {
		return nil
	}
	return slices.MinFunc(due, func(a, b *manualTimer) int {
		if a.at != b.at {
			return cmp.Compare(a.at, b.at)
		}
		return cmp.Compare(a.seq, b.seq)
	})
}

// Now returns the virtual clock
func (d *ManualDispatcher) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

// Pending returns the number of queued functions
func (d *ManualDispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}
