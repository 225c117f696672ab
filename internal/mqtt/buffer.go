package mqtt

// outbound is a serialized message held for replay after reconnection.
type outbound struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ring is a fixed-capacity FIFO that keeps the newest items once full.
// Not safe for concurrent use; the caller synchronizes.
type ring[T any] struct {
	items []T
	start int
	n     int
	lost  int // dropped since the last take
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{items: make([]T, capacity)}
}

// put appends v, evicting the oldest item when full. It reports true on the
// first eviction since the last take.
func (r *ring[T]) put(v T) bool {
	c := len(r.items)
	if r.n < c {
		r.items[(r.start+r.n)%c] = v
		r.n++
		return false
	}
	r.items[r.start] = v
	r.start = (r.start + 1) % c
	r.lost++
	return r.lost == 1
}

// take empties the ring, oldest first, and returns how many items were
// evicted since the previous take.
func (r *ring[T]) take() ([]T, int) {
	lost := r.lost
	if r.n == 0 {
		r.lost = 0
		return nil, lost
	}
	out := make([]T, 0, r.n)
	for i := range r.n {
		out = append(out, r.items[(r.start+i)%len(r.items)])
	}
	clear(r.items)
	r.start, r.n, r.lost = 0, 0, 0
	return out, lost
}

func (r *ring[T]) len() int {
	return r.n
}

func (r *ring[T]) cap() int {
	return len(r.items)
}
