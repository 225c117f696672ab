package logic

// DefrostPhase is the defrost state machine state.
type DefrostPhase string

const (
	DefrostIdle   DefrostPhase = "IDLE"
	DefrostActive DefrostPhase = "ACTIVE"
)

// DefaultDefrostMaxRun is how long the heater may run before it is forced off.
const DefaultDefrostMaxRun uint32 = 2 * 60 * 60 * 1000

// DefrostInput is one evaluation's view of the world.
type DefrostInput struct {
	FridgeTemp       int8
	OnTemp           int8
	OffTemp          int8
	HoursLeft        uint8
	CompressorActive bool
}

// DefrostResult describes what an evaluation did.
type DefrostResult struct {
	// Need is the defrost demand before relay timing is applied.
	Need bool
	// Started is set when the heater was switched on this evaluation.
	Started bool
	// Stopped is set when the heater was switched off; the caller restarts
	// the periodic counter.
	Stopped bool
	// TimedOut is set when the maximum run time cleared the demand.
	TimedOut bool
}

// DefrostController decides when the defrost heater runs. It never switches
// the heater on while the compressor is active.
type DefrostController struct {
	maxRun    uint32
	need      bool
	startedAt uint32
}

// NewDefrostController creates a controller with the given maximum heater
// run time in ticks.
func NewDefrostController(maxRun uint32) *DefrostController {
	return &DefrostController{maxRun: maxRun}
}

// Update evaluates the triggers in order (temperature, counter, run-time
// cutoff) and then drives the heater.
func (d *DefrostController) Update(now uint32, in DefrostInput, heater Switch) DefrostResult {
	if in.FridgeTemp < in.OnTemp {
		d.need = true
	} else if in.FridgeTemp >= in.OffTemp {
		d.need = false
	}

	if in.HoursLeft == 0 {
		d.need = true
	}

	var res DefrostResult
	if heater.Active() && now-d.startedAt > d.maxRun {
		d.need = false
		res.TimedOut = true
	}

	if d.need && !in.CompressorActive && !heater.Active() {
		if heater.Set(true) {
			d.startedAt = now
			res.Started = true
		}
	}

	if !d.need && heater.Active() {
		if heater.Set(false) {
			res.Stopped = true
		}
	}

	res.Need = d.need
	return res
}

// Need returns the current defrost demand.
func (d *DefrostController) Need() bool {
	return d.need
}

// StartedAt returns the tick at which the heater was last switched on.
func (d *DefrostController) StartedAt() uint32 {
	return d.startedAt
}

// Phase returns the state machine phase given the heater state.
func (d *DefrostController) Phase(heater Switch) DefrostPhase {
	if heater.Active() {
		return DefrostActive
	}
	return DefrostIdle
}
