// Package timer provides wrap-safe elapsed-time checks against a monotonic
// tick counter. Counters are unsigned and allowed to overflow: elapsed time is
// always computed as now-since in the counter's own width, which stays correct
// across a wrap from the maximum value back to zero.
package timer

// Width is the set of counter widths a clock may have.
type Width interface {
	~uint8 | ~uint16 | ~uint32
}

// Elapsed returns the number of ticks between since and now.
func Elapsed[T Width](now, since T) T {
	return now - since
}

// Expired reports whether at least interval ticks have passed since since.
func Expired[T Width](now, since, interval T) bool {
	return now-since >= interval
}

// Clock is a monotonic tick source.
type Clock[T Width] interface {
	Now() T
}

// Timer fires once at least its interval has elapsed since it last fired.
// Not safe for concurrent use.
type Timer[T Width] struct {
	clock    Clock[T]
	interval T
	last     T
	catchUp  bool
}

// Option configures a Timer.
type Option[T Width] func(*Timer[T])

// WithCatchUp makes the timer advance its reference point by whole intervals
// instead of snapping to the current tick, so a late check does not stretch
// the schedule.
func WithCatchUp[T Width]() Option[T] {
	return func(t *Timer[T]) { t.catchUp = true }
}

// New creates a timer whose reference point is tick zero, so the first fire
// happens once the clock reaches interval.
func New[T Width](clock Clock[T], interval T, opts ...Option[T]) *Timer[T] {
	t := &Timer[T]{clock: clock, interval: interval}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewImmediate creates a timer that fires on its first check.
func NewImmediate[T Width](clock Clock[T], interval T, opts ...Option[T]) *Timer[T] {
	t := New(clock, interval, opts...)
	t.last = clock.Now() - interval
	return t
}

// Ready reports whether the interval has elapsed and, if so, re-arms the timer.
func (t *Timer[T]) Ready() bool {
	now := t.clock.Now()
	if !Expired(now, t.last, t.interval) {
		return false
	}
	if t.catchUp && t.interval > 0 {
		for Expired(now, t.last, t.interval) {
			t.last += t.interval
		}
	} else {
		t.last = now
	}
	return true
}

// Reset restarts the interval from the current tick.
func (t *Timer[T]) Reset() {
	t.last = t.clock.Now()
}

// Since returns the ticks elapsed since the timer last fired or was reset.
func (t *Timer[T]) Since() T {
	return Elapsed(t.clock.Now(), t.last)
}

// Interval returns the configured interval.
func (t *Timer[T]) Interval() T {
	return t.interval
}
