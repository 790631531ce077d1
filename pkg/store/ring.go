package store

// ring is a fixed-capacity FIFO buffer. Appending at capacity drops the
// oldest entry. Not safe for concurrent use; the Store serializes access.
type ring[T any] struct {
	buf []T
	cap int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring[T]{cap: capacity}
}

func (r *ring[T]) append(v T) {
	if len(r.buf) >= r.cap {
		// shift out the oldest entry
		copy(r.buf, r.buf[1:])
		r.buf[len(r.buf)-1] = v
		return
	}
	r.buf = append(r.buf, v)
}

func (r *ring[T]) items() []T {
	return append([]T(nil), r.buf...)
}

func (r *ring[T]) len() int { return len(r.buf) }
