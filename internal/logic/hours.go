package logic

import "github.com/sweeney/fridge-controller/internal/timer"

// DefrostPeriodHours is the counter value after a defrost cycle completes.
const DefrostPeriodHours uint8 = 24

// HourSaver persists the hour counter.
type HourSaver interface {
	SaveHours(hours uint8) error
}

// HourCounter counts down the hours until a defrost is forced. Every change
// is persisted immediately. A value of zero stays put until Reset.
type HourCounter struct {
	hours uint8
	hour  *timer.Timer[uint32]
	saver HourSaver
}

// NewHourCounter creates a counter starting from a persisted value, which is
// clamped to DefrostPeriodHours. The first decrement happens one interval
// after start.
func NewHourCounter(clock timer.Clock[uint32], interval uint32, start uint8, saver HourSaver) *HourCounter {
	c := &HourCounter{
		hours: min(start, DefrostPeriodHours),
		hour:  timer.New(clock, interval),
		saver: saver,
	}
	c.hour.Reset()
	return c
}

// Tick decrements the counter once per elapsed interval. It reports whether
// the counter changed and any persistence error; the in-memory value is kept
// even when saving fails.
func (c *HourCounter) Tick() (bool, error) {
	if !c.hour.Ready() {
		return false, nil
	}
	if c.hours == 0 {
		return false, nil
	}
	c.hours--
	return true, c.saver.SaveHours(c.hours)
}

// Reset restarts the countdown after a defrost cycle and persists it.
func (c *HourCounter) Reset() error {
	c.hours = DefrostPeriodHours
	return c.saver.SaveHours(c.hours)
}

// Hours returns the hours left until a defrost is forced.
func (c *HourCounter) Hours() uint8 {
	return c.hours
}
