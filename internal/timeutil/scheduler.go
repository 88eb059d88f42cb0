package timeutil

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Scheduler is a single event queue. Every function posted to it runs on
// the goroutine calling Run (or RunDue), one at a time, in deadline order
// and then in posting order. Components that only mutate their state from
// scheduled functions need no further locking.
type Scheduler struct {
	clock Clock

	mu     sync.Mutex
	tasks  taskHeap
	seq    uint64
	closed bool
	wake   chan struct{}
}

// Task is a scheduled function that can be cancelled until it starts.
type Task struct {
	s     *Scheduler
	at    time.Time
	seq   uint64
	fn    func()
	index int // position in the heap, -1 once removed
}

// NewScheduler creates a Scheduler using clock for deadlines. A nil clock
// uses RealClock.
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{clock: clock, wake: make(chan struct{}, 1)}
}

// Clock returns the clock deadlines are computed with.
func (s *Scheduler) Clock() Clock { return s.clock }

// Post queues fn to run as soon as possible. It is safe to call from any
// goroutine; this is how background workers hand results back.
func (s *Scheduler) Post(fn func()) *Task {
	return s.After(0, fn)
}

// After queues fn to run once d has elapsed. Safe for concurrent use.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return &Task{index: -1}
	}
	s.seq++
	t := &Task{s: s, at: s.clock.Now().Add(d), seq: s.seq, fn: fn}
	heap.Push(&s.tasks, t)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return t
}

// Cancel removes the task from the queue. It reports whether the task was
// still pending. Cancelling a nil task is a no-op.
func (t *Task) Cancel() bool {
	if t == nil || t.s == nil {
		return false
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&s.tasks, t.index)
	return true
}

// Pending reports whether the task is still queued.
func (t *Task) Pending() bool {
	if t == nil || t.s == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.index >= 0
}

// Len returns the number of queued tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// next pops the earliest task due at or before now.
func (s *Scheduler) next(now time.Time) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 || s.tasks[0].at.After(now) {
		return nil
	}
	return heap.Pop(&s.tasks).(*Task)
}

// RunDue runs every task that is due at the clock's current time, including
// tasks that become due while running, and returns how many ran. Tests
// drive the engine with a MockClock and RunDue instead of Run.
func (s *Scheduler) RunDue() int {
	n := 0
	for {
		t := s.next(s.clock.Now())
		if t == nil {
			return n
		}
		t.fn()
		n++
	}
}

// nextDeadline returns the earliest queued deadline.
func (s *Scheduler) nextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return time.Time{}, false
	}
	return s.tasks[0].at, true
}

// Run executes tasks until ctx is done, then closes the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.Close()
	for {
		s.RunDue()

		var timerC <-chan time.Time
		var timer Timer
		if at, ok := s.nextDeadline(); ok {
			timer = s.clock.NewTimer(at.Sub(s.clock.Now()))
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-s.wake:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Close drops every pending task. Later Post and After calls are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		t.index = -1
	}
	s.tasks = nil
	s.closed = true
}

// taskHeap orders tasks by deadline, then by posting order.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
