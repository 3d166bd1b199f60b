package window

// Rolling is a bounded FIFO that evicts the oldest element once it holds
// more than its capacity. It is not synchronized; callers that share one
// across goroutines guard it themselves.
type Rolling[T any] struct {
	buf  []T
	head int
	n    int
}

// NewRolling returns an empty window. Capacities below one are raised to one.
func NewRolling[T any](capacity int) *Rolling[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Rolling[T]{buf: make([]T, capacity)}
}

// Push appends v, dropping the oldest element when full.
func (r *Rolling[T]) Push(v T) {
	idx := (r.head + r.n) % len(r.buf)
	r.buf[idx] = v
	if r.n < len(r.buf) {
		r.n++
		return
	}
	r.head = (r.head + 1) % len(r.buf)
}

// Values copies the contents oldest first.
func (r *Rolling[T]) Values() []T {
	out := make([]T, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

func (r *Rolling[T]) Len() int { return r.n }

func (r *Rolling[T]) Cap() int { return len(r.buf) }

// Reset empties the window and releases held values.
func (r *Rolling[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = 0
	r.n = 0
}
