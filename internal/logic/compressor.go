package logic

// Compressor duty limits.
const (
	DefaultMaxRun       uint32 = 4 * 60 * 60 * 1000
	DefaultForcedRest   uint32 = 20 * 60 * 1000
	DefaultNaturalBreak uint32 = 10 * 60 * 1000
)

// CompressorDuty limits continuous compressor run time. After running for
// maxRun without a break it demands a rest of forcedRest. An off period of at
// least naturalBreak counts as a rest and restarts the run clock.
type CompressorDuty struct {
	maxRun       uint32
	forcedRest   uint32
	naturalBreak uint32

	running   bool
	counting  bool
	runStart  uint32
	stopStart uint32
	resting   bool
	restStart uint32
}

// NewCompressorDuty creates a duty limiter. A zero maxRun disables it.
func NewCompressorDuty(maxRun, forcedRest, naturalBreak uint32) *CompressorDuty {
	return &CompressorDuty{
		maxRun:       maxRun,
		forcedRest:   forcedRest,
		naturalBreak: naturalBreak,
	}
}

// Allow observes the compressor's actual state and reports whether it may
// keep running or be started.
func (d *CompressorDuty) Allow(now uint32, running bool) bool {
	if d.maxRun == 0 {
		return true
	}

	switch {
	case running && !d.running:
		// Short stops do not restart the run clock.
		if !d.counting || now-d.stopStart >= d.naturalBreak {
			d.runStart = now
			d.counting = true
		}
	case !running && d.running:
		d.stopStart = now
	}
	d.running = running

	if d.resting {
		if now-d.restStart < d.forcedRest {
			return false
		}
		d.resting = false
		d.counting = false
	}

	if running && d.counting && now-d.runStart > d.maxRun {
		d.resting = true
		d.restStart = now
		d.counting = false
		return false
	}
	return true
}

// Resting reports whether a forced rest is in progress.
func (d *CompressorDuty) Resting() bool {
	return d.resting
}
