package sensor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/fridge-controller/internal/timer"
)

// Phase is the acquisition sub-state.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseRequested Phase = "REQUESTED"
	PhaseReady     Phase = "READY"
	PhaseFailed    Phase = "FAILED"
)

// Startup defaults, in milliseconds on a 16-bit clock.
const (
	DefaultStartupTimeout uint16 = 50000
	DefaultStartupRetry   uint16 = 1000
)

// Acquisition owns one chamber's sensor and its last known good reading.
// Nothing else may poll the sensor.
type Acquisition struct {
	name   string
	sensor Sensor
	log    *zap.SugaredLogger

	temp      int8
	phase     Phase
	requested bool
	reads    uint64
	failures uint64

	// pause is how long Startup sleeps between readiness checks.
	pause time.Duration
}

// Option configures an Acquisition.
type Option func(*Acquisition)

// WithStartupPause sets the sleep between readiness checks during Startup.
func WithStartupPause(d time.Duration) Option {
	return func(a *Acquisition) { a.pause = d }
}

// NewAcquisition creates an idle acquisition with a temperature of 0.
func NewAcquisition(name string, s Sensor, log *zap.SugaredLogger, opts ...Option) *Acquisition {
	a := &Acquisition{
		name:   name,
		sensor: s,
		log:    log,
		phase:  PhaseIdle,
		pause:  10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Startup blocks until the first reading arrives, re-requesting every retry
// ticks, for at most timeout ticks. onWait, if non-nil, is called on every
// check with the current tick (LED blinking). On timeout the temperature
// stays 0 and ErrStartupTimeout is returned; the acquisition remains usable.
func (a *Acquisition) Startup(ctx context.Context, clock timer.Clock[uint16], timeout, retry uint16, onWait func(now uint16)) error {
	deadline := timer.New(clock, timeout)
	deadline.Reset()
	again := timer.New(clock, retry)
	again.Reset()

	a.request()
	for !a.sensor.Ready() {
		if onWait != nil {
			onWait(clock.Now())
		}
		if deadline.Ready() {
			a.phase = PhaseFailed
			a.request()
			return fmt.Errorf("%s: %w", a.name, ErrStartupTimeout)
		}
		if again.Ready() {
			a.request()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.pause):
		}
	}

	err := a.read()
	a.request()
	return err
}

// Poll performs one non-blocking acquisition step. If the sensor has a
// conversion ready it is read and the next one requested; a failed read keeps
// the previous temperature. A request that failed earlier is retried. It
// reports whether a reading was consumed.
func (a *Acquisition) Poll() bool {
	if !a.sensor.Ready() {
		if !a.requested {
			a.request()
		}
		return false
	}
	if err := a.read(); err != nil {
		a.log.Warnw("sensor read failed, keeping last temperature",
			"chamber", a.name, "temp", a.temp, "err", err)
	}
	a.request()
	return true
}

func (a *Acquisition) read() error {
	t, err := a.sensor.ReadTemp()
	if err != nil {
		a.phase = PhaseFailed
		a.failures++
		return fmt.Errorf("%s: %w", a.name, err)
	}
	a.temp = t
	a.phase = PhaseReady
	a.reads++
	return nil
}

func (a *Acquisition) request() {
	if err := a.sensor.RequestTemp(); err != nil {
		a.log.Warnw("sensor request failed", "chamber", a.name, "err", err)
		a.phase = PhaseFailed
		a.requested = false
		return
	}
	a.phase = PhaseRequested
	a.requested = true
}

// Temp returns the last known good temperature.
func (a *Acquisition) Temp() int8 {
	return a.temp
}

// Phase returns the acquisition sub-state.
func (a *Acquisition) Phase() Phase {
	return a.phase
}

// Reads returns the number of successful readings.
func (a *Acquisition) Reads() uint64 {
	return a.reads
}

// Failures returns the number of failed readings.
func (a *Acquisition) Failures() uint64 {
	return a.failures
}

// Name returns the chamber name.
func (a *Acquisition) Name() string {
	return a.name
}
