package frame

import "testing"

func TestQueueRunsOnlyCallbacksQueuedBeforeTick(t *testing.T) {
	q := NewQueue()
	var seen []float64
	var chain FrameCallback
	chain = func(ts float64) {
		seen = append(seen, ts)
		q.RequestFrame(chain)
	}
	q.RequestFrame(chain)

	if n := q.Tick(1); n != 1 {
		t.Errorf("first tick ran %d callbacks, want 1", n)
	}
	if n := q.Tick(2); n != 1 {
		t.Errorf("second tick ran %d callbacks, want 1", n)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("seen = %v, want [1 2]", seen)
	}
	if q.Pending() != 1 {
		t.Errorf("pending = %d, want 1", q.Pending())
	}
}

func TestQueueOrder(t *testing.T) {
	q := NewQueue()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		q.RequestFrame(func(float64) { order = append(order, i) })
	}
	q.Tick(0)
	if len(order) != 3 || order[0] != 0 || order[2] != 2 {
		t.Errorf("order = %v, want [0 1 2]", order)
	}
	if q.Tick(1) != 0 {
		t.Error("empty tick ran callbacks")
	}
}
