package engine

import "sync"

// fifo is a concurrency-safe first-in-first-out task queue. The engine
// keeps one per task class; priority between classes is decided by the
// worker loop, not here.
type fifo struct {
	mu    sync.Mutex
	items []task
}

func (q *fifo) push(t task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
}

// tryPop removes and returns the oldest task, or nil if the queue is
// empty. It never blocks.
func (q *fifo) tryPop() task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	t := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return t
}

func (q *fifo) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
