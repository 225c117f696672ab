// Package relay protects relays from rapid switching.
package relay

import (
	"go.uber.org/zap"

	"github.com/sweeney/fridge-controller/internal/gpio"
	"github.com/sweeney/fridge-controller/internal/timer"
)

// Common minimum toggle intervals in milliseconds.
const (
	CompressorInterval = 10 * timer.Minute
	HeaterInterval     = 5 * timer.Second
)

// Guard wraps an output with a minimum time between actual state changes.
// Requests arriving too early are dropped, not queued; the caller is expected
// to repeat them on its next evaluation. Not safe for concurrent use.
type Guard struct {
	name     string
	out      gpio.Output
	clock    timer.Clock[uint32]
	interval uint32
	log      *zap.SugaredLogger

	on         bool
	changed    bool
	lastChange uint32
	pending    bool
	suppressed uint64
	applied    uint64
}

// NewGuard creates a guard for out, initially off. The first change is
// always honored.
func NewGuard(name string, out gpio.Output, clock timer.Clock[uint32], interval uint32, log *zap.SugaredLogger) *Guard {
	return &Guard{
		name:     name,
		out:      out,
		clock:    clock,
		interval: interval,
		log:      log,
	}
}

// Set requests a state and reports whether the relay actually changed.
func (g *Guard) Set(on bool) bool {
	if on == g.on {
		g.pending = false
		return false
	}

	now := g.clock.Now()
	if g.changed && !timer.Expired(now, g.lastChange, g.interval) {
		if !g.pending {
			g.log.Debugw("relay change suppressed", "relay", g.name, "want", on,
				"wait_ms", g.interval-timer.Elapsed(now, g.lastChange))
		}
		g.pending = true
		g.suppressed++
		return false
	}

	if err := g.out.Set(on); err != nil {
		g.log.Errorw("relay write failed", "relay", g.name, "want", on, "err", err)
		g.pending = true
		return false
	}

	g.on = on
	g.changed = true
	g.lastChange = now
	g.pending = false
	g.applied++
	return true
}

// Active reports the relay's actual state.
func (g *Guard) Active() bool {
	return g.on
}

// Pending reports whether the last request was suppressed and has not been
// satisfied or withdrawn since.
func (g *Guard) Pending() bool {
	return g.pending
}

// Suppressed returns the number of dropped requests.
func (g *Guard) Suppressed() uint64 {
	return g.suppressed
}

// Applied returns the number of actual state changes.
func (g *Guard) Applied() uint64 {
	return g.applied
}

// Name returns the relay name.
func (g *Guard) Name() string {
	return g.name
}
