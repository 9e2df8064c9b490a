package collector

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/uitrail/uitrail/internal/domain"
)

func makeTasks(n int) []domain.Task {
	tasks := make([]domain.Task, n)
	for i := range tasks {
		tasks[i] = domain.Task{ID: fmt.Sprintf("t%d", i), Instruction: "do something"}
	}
	return tasks
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(makeTasks(3))

	for i := 0; i < 3; i++ {
		task, err := q.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if want := fmt.Sprintf("t%d", i); task.ID != want {
			t.Errorf("task %d = %q, want %q", i, task.ID, want)
		}
		q.Complete()
	}

	if _, err := q.Next(); !errors.Is(err, domain.ErrEndOfWork) {
		t.Errorf("err = %v, want ErrEndOfWork", err)
	}
}

func TestQueueBlocksWhileInflight(t *testing.T) {
	q := NewQueue(makeTasks(1))

	task, err := q.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	// A second consumer must wait: the in-flight task may come back.
	got := make(chan error, 1)
	go func() {
		_, err := q.Next()
		got <- err
	}()

	select {
	case err := <-got:
		t.Fatalf("Next returned early with %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	q.Requeue(task)

	requeued, err := q.Next()
	if err != nil {
		t.Fatalf("Next after requeue: %v", err)
	}
	if requeued.ID != "t0" || requeued.Attempt != 1 {
		t.Errorf("requeued = %+v, want t0 with attempt 1", requeued)
	}
	q.Complete()

	if err := <-got; !errors.Is(err, domain.ErrEndOfWork) {
		t.Errorf("blocked consumer got %v, want ErrEndOfWork", err)
	}
}

func TestQueueRequeueGoesToBack(t *testing.T) {
	q := NewQueue(makeTasks(3))

	first, _ := q.Next()
	q.Requeue(first)

	var order []string
	for {
		task, err := q.Next()
		if err != nil {
			break
		}
		order = append(order, task.ID)
		q.Complete()
	}

	want := []string{"t1", "t2", "t0"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestQueueShutdownUnblocksConsumers(t *testing.T) {
	q := NewQueue(nil)
	q.pending = makeTasks(1) // non-empty but we never pop
	q.inflight = 1           // simulate a task that never returns

	done := make(chan struct{})
	go func() {
		q.Next()
		q.Next()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Shutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumers not unblocked by Shutdown")
	}
}

func TestQueueDrainReturnsStranded(t *testing.T) {
	q := NewQueue(makeTasks(3))

	task, err := q.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	q.Requeue(task) // dying slot hands its task back

	stranded := q.Drain()
	if len(stranded) != 3 {
		t.Fatalf("stranded = %d tasks, want 3", len(stranded))
	}
	if stranded[2].ID != "t0" || stranded[2].Attempt != 1 {
		t.Errorf("stranded[2] = %+v, want the requeued t0", stranded[2])
	}

	if _, err := q.Next(); !errors.Is(err, domain.ErrEndOfWork) {
		t.Errorf("err after Drain = %v, want ErrEndOfWork", err)
	}
	if q.Depth() != 0 {
		t.Errorf("depth after Drain = %d, want 0", q.Depth())
	}
}

func TestQueueConcurrentConsumers(t *testing.T) {
	const tasks = 50
	q := NewQueue(makeTasks(tasks))

	var mu sync.Mutex
	seen := map[string]int{}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := q.Next()
				if err != nil {
					return
				}
				mu.Lock()
				seen[task.ID]++
				mu.Unlock()
				q.Complete()
			}
		}()
	}
	wg.Wait()

	if len(seen) != tasks {
		t.Fatalf("saw %d distinct tasks, want %d", len(seen), tasks)
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("task %s handed out %d times", id, n)
		}
	}
}
