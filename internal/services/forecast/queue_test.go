package forecast

import "testing"

func TestQueuePadsShortSeed(t *testing.T) {
	q := newHistoryQueue([]float64{5, 7}, 4)
	if q.Len() != 4 {
		t.Fatalf("len = %d, want 4", q.Len())
	}
	if q.Lag(1) != 7 || q.Lag(2) != 5 || q.Lag(3) != 5 || q.Lag(4) != 5 {
		t.Fatalf("padded queue = %v", q.buf)
	}
}

func TestQueuePushKeepsLength(t *testing.T) {
	q := newHistoryQueue([]float64{1, 2, 3}, 3)
	for i := 0; i < 10; i++ {
		q.Push(float64(10 + i))
		if q.Len() != 3 {
			t.Fatalf("len drifted to %d after push %d", q.Len(), i)
		}
	}
	if q.Lag(1) != 19 || q.Lag(2) != 18 || q.Lag(3) != 17 {
		t.Fatalf("tail after pushes = %v", q.buf)
	}
}

func TestQueueLagClamped(t *testing.T) {
	q := newHistoryQueue([]float64{1, 2, 3}, 3)
	if q.Lag(0) != 3 {
		t.Fatalf("lag 0 = %v, want newest", q.Lag(0))
	}
	if q.Lag(99) != 1 {
		t.Fatalf("lag 99 = %v, want oldest", q.Lag(99))
	}
}

func TestQueueTail(t *testing.T) {
	q := newHistoryQueue([]float64{1, 2, 3, 4}, 4)
	tail := q.Tail(2)
	if len(tail) != 2 || tail[0] != 3 || tail[1] != 4 {
		t.Fatalf("tail(2) = %v", tail)
	}
	if len(q.Tail(10)) != 4 {
		t.Fatalf("tail larger than queue should clamp")
	}
}
