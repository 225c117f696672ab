package timer

import (
	"sync"
	"time"
)

// Common intervals on a millisecond clock.
const (
	Second uint32 = 1000
	Minute        = 60 * Second
	Hour          = 60 * Minute
)

// MillisClock counts milliseconds since it was created in a 32-bit counter.
// The counter wraps after roughly 49.7 days.
type MillisClock struct {
	start time.Time
}

// NewMillisClock creates a clock starting at zero.
func NewMillisClock() *MillisClock {
	return &MillisClock{start: time.Now()}
}

// Now returns the current tick.
func (c *MillisClock) Now() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

type narrowed[T Width] struct {
	src Clock[uint32]
}

func (n narrowed[T]) Now() T {
	return T(n.src.Now())
}

// Narrow truncates a 32-bit clock to a smaller width.
func Narrow[T Width](src Clock[uint32]) Clock[T] {
	return narrowed[T]{src: src}
}

// Millis converts a duration to clock ticks. Durations beyond the counter
// range are clamped.
func Millis(d time.Duration) uint32 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(ms)
}

// FakeClock is a manually driven clock for tests.
type FakeClock[T Width] struct {
	mu   sync.Mutex
	now  T
	step T
}

// NewFakeClock creates a clock at start. A non-zero step advances the clock
// after every Now call.
func NewFakeClock[T Width](start, step T) *FakeClock[T] {
	return &FakeClock[T]{now: start, step: step}
}

// Now returns the current tick, then applies the auto-step.
func (c *FakeClock[T]) Now() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now += c.step
	return t
}

// Set moves the clock to t.
func (c *FakeClock[T]) Set(t T) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d ticks, wrapping on overflow.
func (c *FakeClock[T]) Advance(d T) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}
