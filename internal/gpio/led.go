package gpio

import "github.com/sweeney/fridge-controller/internal/timer"

// LED is an indicator on an Output that can be set or blinked.
// Write errors are ignored; an indicator must never stop the controller.
type LED struct {
	out   Output
	state bool
	since uint16
}

// NewLED creates an LED, initially off.
func NewLED(out Output) *LED {
	l := &LED{out: out}
	_ = out.Set(false)
	return l
}

// Set switches the LED.
func (l *LED) Set(on bool) {
	if l.state == on {
		return
	}
	l.state = on
	_ = l.out.Set(on)
}

// Toggle inverts the LED.
func (l *LED) Toggle() {
	l.Set(!l.state)
}

// Blink toggles the LED whenever half a period has elapsed on a 16-bit
// millisecond clock. It reports whether the LED toggled.
func (l *LED) Blink(now uint16, period uint16) bool {
	if !timer.Expired(now, l.since, period/2) {
		return false
	}
	l.since = now
	l.Toggle()
	return true
}

// On reports whether the LED is lit.
func (l *LED) On() bool {
	return l.state
}
