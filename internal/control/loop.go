// Package control ties sensors, demand evaluation, defrost and relay guards
// together into one periodic, single-threaded control step.
package control

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/fridge-controller/internal/gpio"
	"github.com/sweeney/fridge-controller/internal/logic"
	"github.com/sweeney/fridge-controller/internal/relay"
	"github.com/sweeney/fridge-controller/internal/sensor"
	"github.com/sweeney/fridge-controller/internal/timer"
)

// DefaultSensorInterval is how often the sensors are polled.
const DefaultSensorInterval = 5 * timer.Second

// SettingsSaver persists applied settings.
type SettingsSaver interface {
	SaveSettings(ctx context.Context, s logic.Settings) error
}

// State is the volatile runtime state rebuilt at startup. It is owned by the
// Loop and never persisted.
type State struct {
	FridgeTemp         int8
	FreezerTemp        int8
	FridgeSensor       sensor.Phase
	FreezerSensor      sensor.Phase
	FridgeFailures     uint64
	FreezerFailures    uint64
	NeedFridgeCooling  bool
	NeedFreezerCooling bool
	NeedDefrost        bool
	DefrostActive      bool
	DefrostPhase       logic.DefrostPhase
	DefrostStartedAt   uint32
	CompressorActive   bool
	CompressorResting  bool
	HoursLeft          uint8
	Settings           logic.Settings
}

// Deps are the collaborators a Loop drives.
type Deps struct {
	Clock      timer.Clock[uint32]
	Fridge     *sensor.Acquisition
	Freezer    *sensor.Acquisition
	Compressor *relay.Guard
	Heater     *relay.Guard
	FridgeLED  *gpio.LED
	FreezerLED *gpio.LED
	Defrost    *logic.DefrostController
	Hours      *logic.HourCounter
	Duty       *logic.CompressorDuty
	Saver      SettingsSaver
	Mailbox    *Mailbox
	Log        *zap.SugaredLogger
}

// Loop is the control loop. Every mutable piece of control state has the
// Loop as its only owner. Not safe for concurrent use.
type Loop struct {
	Deps
	settings  logic.Settings
	state     State
	sensorDue *timer.Timer[uint32]
	counts    logic.EventCounts
}

// NewLoop creates a loop with the given settings and sensor poll interval.
// LEDs are optional.
func NewLoop(d Deps, settings logic.Settings, sensorInterval uint32) *Loop {
	l := &Loop{
		Deps:      d,
		settings:  settings,
		sensorDue: timer.New(d.Clock, sensorInterval),
	}
	l.sensorDue.Reset()
	l.refresh()
	return l
}

// Tick runs one control step and returns the relay changes it applied.
func (l *Loop) Tick(wall time.Time) []logic.Event {
	l.applyPendingSettings()

	if l.sensorDue.Ready() {
		l.Fridge.Poll()
		l.Freezer.Poll()
	}

	if changed, err := l.Hours.Tick(); err != nil {
		l.Log.Errorw("failed to persist hour counter", "hours", l.Hours.Hours(), "err", err)
	} else if changed {
		l.Log.Infow("hours until forced defrost", "hours", l.Hours.Hours())
	}

	fridge, freezer := l.Fridge.Temp(), l.Freezer.Temp()
	l.state.NeedFridgeCooling = logic.NeedsCooling(fridge, l.settings.FridgeTarget, l.settings.FridgeHysteresis, l.state.NeedFridgeCooling)
	l.state.NeedFreezerCooling = logic.NeedsCooling(freezer, l.settings.FreezerTarget, l.settings.FreezerHysteresis, l.state.NeedFreezerCooling)

	var events []logic.Event
	now := l.Clock.Now()

	res := l.Defrost.Update(now, logic.DefrostInput{
		FridgeTemp:       fridge,
		OnTemp:           l.settings.DefrostOnTemp,
		OffTemp:          l.settings.DefrostOffTemp,
		HoursLeft:        l.Hours.Hours(),
		CompressorActive: l.Compressor.Active(),
	}, l.Heater)
	if res.TimedOut {
		l.Log.Warnw("defrost reached maximum run time", "fridge", fridge)
	}
	if res.Started {
		l.Log.Infow("defrost started", "fridge", fridge, "hours_left", l.Hours.Hours())
		events = append(events, l.event(wall, logic.EventDefrostOn))
	}
	if res.Stopped {
		if err := l.Hours.Reset(); err != nil {
			l.Log.Errorw("failed to persist hour counter reset", "err", err)
		}
		l.Log.Infow("defrost stopped", "fridge", fridge)
		events = append(events, l.event(wall, logic.EventDefrostOff))
	}

	want := (l.state.NeedFridgeCooling || l.state.NeedFreezerCooling) && !l.Heater.Active()
	if !l.Duty.Allow(now, l.Compressor.Active()) {
		want = false
	}
	if l.Compressor.Set(want) {
		typ := logic.EventCompressorOff
		if want {
			typ = logic.EventCompressorOn
		}
		l.Log.Infow("compressor switched", "on", want, "fridge", fridge, "freezer", freezer)
		events = append(events, l.event(wall, typ))
	}

	if l.FridgeLED != nil {
		l.FridgeLED.Set(l.state.NeedFridgeCooling)
	}
	if l.FreezerLED != nil {
		l.FreezerLED.Set(l.state.NeedFreezerCooling)
	}

	for _, e := range events {
		l.counts.Add(e)
	}
	l.refresh()
	return events
}

// applyPendingSettings takes a queued settings change, if any, at the start
// of a step. Invalid settings are dropped.
func (l *Loop) applyPendingSettings() {
	if l.Mailbox == nil {
		return
	}
	s, ok := l.Mailbox.Take()
	if !ok {
		return
	}
	if err := s.Validate(); err != nil {
		l.Log.Warnw("rejected settings change", "settings", s, "err", err)
		return
	}
	if s == l.settings {
		return
	}
	l.settings = s
	l.Log.Infow("settings applied", "settings", s)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Saver.SaveSettings(ctx, s); err != nil {
		l.Log.Errorw("failed to persist settings", "err", err)
	}
}

func (l *Loop) event(wall time.Time, typ logic.EventType) logic.Event {
	return logic.Event{
		Timestamp:   wall,
		Type:        typ,
		Compressor:  logic.StateOf(l.Compressor.Active()),
		Defrost:     logic.StateOf(l.Heater.Active()),
		FridgeTemp:  l.Fridge.Temp(),
		FreezerTemp: l.Freezer.Temp(),
	}
}

func (l *Loop) refresh() {
	l.state.FridgeTemp = l.Fridge.Temp()
	l.state.FreezerTemp = l.Freezer.Temp()
	l.state.FridgeSensor = l.Fridge.Phase()
	l.state.FreezerSensor = l.Freezer.Phase()
	l.state.FridgeFailures = l.Fridge.Failures()
	l.state.FreezerFailures = l.Freezer.Failures()
	l.state.NeedDefrost = l.Defrost.Need()
	l.state.DefrostActive = l.Heater.Active()
	l.state.DefrostPhase = l.Defrost.Phase(l.Heater)
	l.state.DefrostStartedAt = l.Defrost.StartedAt()
	l.state.CompressorActive = l.Compressor.Active()
	l.state.CompressorResting = l.Duty.Resting()
	l.state.HoursLeft = l.Hours.Hours()
	l.state.Settings = l.settings
}

// State returns a copy of the runtime state.
func (l *Loop) State() State {
	return l.state
}

// Settings returns the settings in effect.
func (l *Loop) Settings() logic.Settings {
	return l.settings
}

// EventCounts returns relay change counts since startup.
func (l *Loop) EventCounts() logic.EventCounts {
	return l.counts
}
