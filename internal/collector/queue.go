// Package collector implements the concurrent collection orchestrator: a
// bounded pool of worker slots, each exclusively bound to one remote
// automation endpoint, pulling tasks from a shared FIFO queue, executing
// multi-step trajectories, committing artifacts atomically and aggregating
// results into the dataset index.
package collector

import (
	"sync"

	"github.com/uitrail/uitrail/internal/domain"
	"github.com/uitrail/uitrail/internal/infra/metrics"
)

// Queue is the shared FIFO task supply. Next blocks while the queue is empty
// but tasks are still in flight, because a failing slot may re-enqueue its
// task; it returns domain.ErrEndOfWork only once no task can ever arrive
// again (drained and idle, or shut down). A task is handed to at most one
// caller at a time.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  []domain.Task
	inflight int
	closed   bool
}

// NewQueue creates a queue seeded with the given tasks.
func NewQueue(tasks []domain.Task) *Queue {
	q := &Queue{pending: append([]domain.Task(nil), tasks...)}
	q.cond = sync.NewCond(&q.mu)
	metrics.QueueDepth.Set(float64(len(q.pending)))
	return q
}

// Next pops the next pending task in FIFO order. It blocks while the queue
// is empty but another worker still holds a task that might come back.
func (q *Queue) Next() (domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.closed {
			return domain.Task{}, domain.ErrEndOfWork
		}
		if len(q.pending) > 0 {
			task := q.pending[0]
			q.pending = q.pending[1:]
			q.inflight++
			metrics.QueueDepth.Set(float64(len(q.pending)))
			return task, nil
		}
		if q.inflight == 0 {
			return domain.Task{}, domain.ErrEndOfWork
		}
		q.cond.Wait()
	}
}

// Complete marks a previously popped task as finished (committed or
// permanently dropped). Once pending and inflight both reach zero, all
// blocked Next callers receive ErrEndOfWork.
func (q *Queue) Complete() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight--
	if q.inflight == 0 && len(q.pending) == 0 {
		q.cond.Broadcast()
	}
}

// Requeue returns a popped task to the back of the queue, preserving
// fairness for tasks displaced by a slot failure. The attempt counter is
// incremented so the next attempt gets a fresh trajectory id.
func (q *Queue) Requeue(task domain.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task.Attempt++
	q.inflight--
	q.pending = append(q.pending, task)
	metrics.QueueDepth.Set(float64(len(q.pending)))
	metrics.TasksRequeued.Inc()
	q.cond.Broadcast()
}

// Shutdown stops the queue from yielding new work. Blocked and future Next
// calls return ErrEndOfWork; in-flight tasks are unaffected.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Drain closes the queue and returns whatever tasks were still pending.
// Called after all workers have exited so stranded tasks can be accounted
// for instead of vanishing.
func (q *Queue) Drain() []domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	stranded := q.pending
	q.pending = nil
	metrics.QueueDepth.Set(0)
	q.cond.Broadcast()
	return stranded
}

// Depth returns the number of pending tasks.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
