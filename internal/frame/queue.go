package frame

import "sync"

// FrameCallback receives the frame timestamp in milliseconds.
type FrameCallback func(timestamp float64)

// Scheduler is the "call me on the next frame" capability a driver uses
// to keep its callback chain going.
type Scheduler interface {
	RequestFrame(cb FrameCallback)
}

// Queue is a single-threaded animation-frame queue. RequestFrame may be
// called from any goroutine; Tick must always be called from the same
// one, and every callback runs there.
type Queue struct {
	mu      sync.Mutex
	pending []FrameCallback
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// RequestFrame queues cb for the next tick.
func (q *Queue) RequestFrame(cb FrameCallback) {
	q.mu.Lock()
	q.pending = append(q.pending, cb)
	q.mu.Unlock()
}

// Tick runs the callbacks queued before it started and returns how many
// ran. Callbacks requested while ticking wait for the next tick.
func (q *Queue) Tick(timestamp float64) int {
	q.mu.Lock()
	cbs := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, cb := range cbs {
		cb(timestamp)
	}
	return len(cbs)
}

// Pending returns the number of callbacks waiting for the next tick.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
