package forecast

// historyQueue is an ordered, fixed-capacity window over the most recent
// values of a series. Each recursive step pops the oldest element and pushes
// exactly one new one, so the length never changes after construction.
type historyQueue struct {
	buf []float64
}

// newHistoryQueue seeds a queue of the given capacity from the tail of seed.
// When seed is shorter than capacity the front is padded with the earliest
// seed value so Lag stays defined for every configured offset.
func newHistoryQueue(seed []float64, capacity int) *historyQueue {
	if capacity < 1 {
		capacity = 1
	}
	buf := make([]float64, capacity)
	if len(seed) >= capacity {
		copy(buf, seed[len(seed)-capacity:])
	} else {
		for i := 0; i < capacity-len(seed); i++ {
			buf[i] = seed[0]
		}
		copy(buf[capacity-len(seed):], seed)
	}
	return &historyQueue{buf: buf}
}

// Push drops the oldest element and appends v.
func (q *historyQueue) Push(v float64) {
	copy(q.buf, q.buf[1:])
	q.buf[len(q.buf)-1] = v
}

// Lag returns the value k steps back; k=1 is the newest element.
func (q *historyQueue) Lag(k int) float64 {
	if k < 1 {
		k = 1
	}
	if k > len(q.buf) {
		k = len(q.buf)
	}
	return q.buf[len(q.buf)-k]
}

// Tail returns a view of the newest n elements.
func (q *historyQueue) Tail(n int) []float64 {
	if n > len(q.buf) {
		n = len(q.buf)
	}
	return q.buf[len(q.buf)-n:]
}

func (q *historyQueue) Len() int { return len(q.buf) }
