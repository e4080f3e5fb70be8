package mirror

import (
	"sync"
)

// Queue is the unbounded FIFO of pending upload paths shared between the
// dispatch front and the workers. Enqueue never blocks the caller and never
// rejects a path; Dequeue blocks until a path arrives or the queue closes.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

func NewQueue() *Queue {
	q := Queue{}
	q.cond = sync.NewCond(&q.mu)
	return &q
}

func (q *Queue) Enqueue(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.items = append(q.items, path)
	q.cond.Signal()
}

// Dequeue returns the next path in insertion order. The second return is
// false once the queue has been closed; queued items are abandoned at that
// point since shutdown never drains.
func (q *Queue) Dequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.closed {
		return "", false
	}

	path := q.items[0]
	q.items = q.items[1:]

	return path, true
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}
