// Package scheduler defines the deferred task queue that stores use to
// coalesce notifications.
//
// A store schedules at most one flush per batching window; the scheduler
// decides when that window closes. The default Queue scheduler runs
// tasks on a single background goroutine in FIFO order, so every
// mutation issued before the task runs is folded into one flush. Tests
// inject Manual to control the boundary explicitly, or Immediate to
// collapse it entirely.
package scheduler

import "sync"

// Scheduler defers a task past the current batching window.
// Implementations must run tasks in the order they were scheduled.
type Scheduler interface {
	Schedule(task func())
}

type immediate struct{}

func (immediate) Schedule(task func()) {
	task()
}

// Immediate returns a scheduler that runs tasks synchronously at
// Schedule time. With it there is no batching window: every accepted
// mutation flushes before Set returns.
func Immediate() Scheduler {
	return immediate{}
}

// Manual is a scheduler that queues tasks until Drain is called.
// It stands in for the host's deferred-task boundary in tests, making
// flush timing explicit and deterministic.
type Manual struct {
	mu    sync.Mutex
	tasks []func()
}

// NewManual creates an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// Schedule queues the task for the next Drain.
func (m *Manual) Schedule(task func()) {
	m.mu.Lock()
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()
}

// Len returns the number of queued tasks.
func (m *Manual) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Drain runs queued tasks in FIFO order until the queue is empty,
// including tasks scheduled while draining. It returns the number of
// tasks run.
func (m *Manual) Drain() int {
	ran := 0
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return ran
		}
		task := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.mu.Unlock()

		task()
		ran++
	}
}

// queueBuffer bounds the shared queue. Schedule blocks when the buffer
// is full, which backpressures writers instead of dropping flushes.
const queueBuffer = 256

var (
	queueOnce sync.Once
	queueCh   chan func()
)

type sharedQueue struct{}

func (sharedQueue) Schedule(task func()) {
	queueOnce.Do(func() {
		queueCh = make(chan func(), queueBuffer)
		go func() {
			for task := range queueCh {
				task()
			}
		}()
	})
	queueCh <- task
}

// Queue returns the process-wide serialized scheduler. Tasks run on a
// single lazily-started goroutine, strictly after the scheduling call
// returns and strictly in FIFO order. This is the default scheduler for
// new stores.
func Queue() Scheduler {
	return sharedQueue{}
}
