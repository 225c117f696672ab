package logic

import (
	"errors"
	"strings"
	"testing"

	"github.com/sweeney/fridge-controller/internal/timer"
)

// fakeSwitch is a relay that accepts every change unless Refuse is set.
type fakeSwitch struct {
	on      bool
	Refuse  bool
	Changes int
}

func (s *fakeSwitch) Set(on bool) bool {
	if s.on == on || s.Refuse {
		return false
	}
	s.on = on
	s.Changes++
	return true
}

func (s *fakeSwitch) Active() bool { return s.on }

func TestNeedsCoolingBelowTargetClears(t *testing.T) {
	for current := int8(-40); current <= 5; current++ {
		for _, prev := range []bool{false, true} {
			if NeedsCooling(current, 5, 1, prev) {
				t.Errorf("current=%d prev=%v: expected false at or below target", current, prev)
			}
		}
	}
}

func TestNeedsCoolingAboveBandSets(t *testing.T) {
	for current := int8(7); current <= 40; current++ {
		for _, prev := range []bool{false, true} {
			if !NeedsCooling(current, 5, 1, prev) {
				t.Errorf("current=%d prev=%v: expected true above target+hysteresis", current, prev)
			}
		}
	}
}

func TestNeedsCoolingDeadBandHolds(t *testing.T) {
	tests := []struct {
		current, target, hyst int8
	}{
		{6, 5, 1},
		{-23, -24, 3},
		{-21, -24, 3},
		{10, 0, 10},
	}
	for _, tc := range tests {
		for _, prev := range []bool{false, true} {
			if got := NeedsCooling(tc.current, tc.target, tc.hyst, prev); got != prev {
				t.Errorf("current=%d target=%d hyst=%d prev=%v: got %v, want held", tc.current, tc.target, tc.hyst, prev, got)
			}
		}
	}
}

func TestNeedsCoolingPathologicalValues(t *testing.T) {
	// target+hysteresis beyond int8 must not wrap around.
	if NeedsCooling(127, 127, 10, false) {
		t.Error("127 at target 127 should not need cooling")
	}
	if !NeedsCooling(-118, -128, 9, false) {
		t.Error("-118 above -128+9 should need cooling")
	}
	// Zero hysteresis degenerates to a plain threshold.
	if !NeedsCooling(6, 5, 0, false) {
		t.Error("zero hysteresis: 6 > 5 should need cooling")
	}
	if NeedsCooling(5, 5, 0, true) {
		t.Error("zero hysteresis: 5 at target should clear")
	}
	// Negative hysteresis is treated as zero.
	if NeedsCooling(5, 5, -3, true) {
		t.Error("negative hysteresis: at target should clear")
	}
}

func TestNeedsCoolingFreezerScenario(t *testing.T) {
	need := NeedsCooling(-8, -24, 1, false)
	if !need {
		t.Fatal("freezer at -8 with target -24 should need cooling")
	}
	for temp := int8(-9); temp > -25; temp-- {
		need = NeedsCooling(temp, -24, 1, need)
		if !need && temp > -24 {
			t.Fatalf("demand cleared early at %d", temp)
		}
	}
	need = NeedsCooling(-25, -24, 1, need)
	if need {
		t.Error("freezer at -25 should not need cooling")
	}
}

func TestSettingsDefaultsValid(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSettingsValidateReportsAll(t *testing.T) {
	s := DefaultSettings()
	s.FridgeHysteresis = 0
	s.FreezerTarget = 0
	s.DefrostOnTemp = 5
	s.DefrostOffTemp = 5

	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"fridge_hysteresis", "freezer_target", "must be below"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestSettingsBinaryLayout(t *testing.T) {
	s := Settings{
		FridgeTarget:      4,
		FridgeHysteresis:  2,
		FreezerTarget:     -18,
		FreezerHysteresis: 3,
		DefrostOnTemp:     -20,
		DefrostOffTemp:    7,
	}
	data, err := s.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	want := []byte{4, 2, 0xee, 3, 0xec, 7}
	if string(data) != string(want) {
		t.Errorf("layout: got % x, want % x", data, want)
	}

	var got Settings
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != s {
		t.Errorf("decoded %+v, want %+v", got, s)
	}

	if err := got.UnmarshalBinary(data[:4]); err == nil {
		t.Error("expected error for short record")
	}
}

func TestDefrostTemperatureTrigger(t *testing.T) {
	d := NewDefrostController(DefaultDefrostMaxRun)
	heater := &fakeSwitch{}
	s := DefaultSettings()

	res := d.Update(1000, DefrostInput{FridgeTemp: -16, OnTemp: s.DefrostOnTemp, OffTemp: s.DefrostOffTemp, HoursLeft: 20}, heater)
	if !res.Need || !res.Started {
		t.Fatalf("expected defrost to start, got %+v", res)
	}
	if d.StartedAt() != 1000 {
		t.Errorf("StartedAt: got %d, want 1000", d.StartedAt())
	}
	if d.Phase(heater) != DefrostActive {
		t.Errorf("phase: got %s, want ACTIVE", d.Phase(heater))
	}

	// Warming through the band keeps the heater on.
	res = d.Update(2000, DefrostInput{FridgeTemp: 2, OnTemp: s.DefrostOnTemp, OffTemp: s.DefrostOffTemp, HoursLeft: 20}, heater)
	if !res.Need || res.Stopped {
		t.Fatalf("expected defrost to continue in band, got %+v", res)
	}

	res = d.Update(3000, DefrostInput{FridgeTemp: 5, OnTemp: s.DefrostOnTemp, OffTemp: s.DefrostOffTemp, HoursLeft: 20}, heater)
	if res.Need || !res.Stopped {
		t.Fatalf("expected defrost to stop at off temp, got %+v", res)
	}
	if heater.Active() {
		t.Error("heater should be off")
	}
}

func TestDefrostWaitsForCompressor(t *testing.T) {
	d := NewDefrostController(DefaultDefrostMaxRun)
	heater := &fakeSwitch{}
	in := DefrostInput{FridgeTemp: -16, OnTemp: -15, OffTemp: 5, HoursLeft: 20, CompressorActive: true}

	res := d.Update(100, in, heater)
	if !res.Need {
		t.Error("demand should be set")
	}
	if res.Started || heater.Active() {
		t.Fatal("heater must not start while compressor is active")
	}

	in.CompressorActive = false
	res = d.Update(200, in, heater)
	if !res.Started || !heater.Active() {
		t.Fatal("heater should start once compressor is off")
	}
	if d.StartedAt() != 200 {
		t.Errorf("StartedAt: got %d, want 200", d.StartedAt())
	}
}

func TestDefrostCounterTrigger(t *testing.T) {
	d := NewDefrostController(DefaultDefrostMaxRun)
	heater := &fakeSwitch{}

	// Fridge is warm: temperature alone would clear the demand.
	res := d.Update(0, DefrostInput{FridgeTemp: 8, OnTemp: -15, OffTemp: 5, HoursLeft: 0}, heater)
	if !res.Need || !res.Started {
		t.Fatalf("counter at zero should force defrost, got %+v", res)
	}
}

func TestDefrostMaxRunCutoff(t *testing.T) {
	d := NewDefrostController(DefaultDefrostMaxRun)
	heater := &fakeSwitch{}
	in := DefrostInput{FridgeTemp: -18, OnTemp: -15, OffTemp: 5, HoursLeft: 3}

	start := ^uint32(0) - 1000 // run across the clock wrap
	d.Update(start, in, heater)
	if !heater.Active() {
		t.Fatal("heater should be on")
	}

	res := d.Update(start+DefaultDefrostMaxRun, in, heater)
	if res.TimedOut || !heater.Active() {
		t.Fatalf("exactly max run should not cut off, got %+v", res)
	}

	res = d.Update(start+DefaultDefrostMaxRun+1, in, heater)
	if !res.TimedOut || !res.Stopped || res.Need {
		t.Fatalf("expected cutoff, got %+v", res)
	}
	if heater.Active() {
		t.Error("heater should be off after cutoff")
	}
}

func TestDefrostSuppressedStartDoesNotRecordTime(t *testing.T) {
	d := NewDefrostController(DefaultDefrostMaxRun)
	heater := &fakeSwitch{Refuse: true}

	res := d.Update(500, DefrostInput{FridgeTemp: -16, OnTemp: -15, OffTemp: 5, HoursLeft: 10}, heater)
	if res.Started {
		t.Error("refused switch must not report started")
	}
	if d.StartedAt() != 0 {
		t.Errorf("StartedAt should be untouched, got %d", d.StartedAt())
	}
	if !d.Need() {
		t.Error("demand should persist for the next evaluation")
	}
}

func TestDefrostNeverWithCompressor(t *testing.T) {
	d := NewDefrostController(DefaultDefrostMaxRun)
	heater := &fakeSwitch{}
	temps := []int8{-16, -20, 0, 6, -17, -16, 3}
	for i, temp := range temps {
		for _, compressor := range []bool{true, false} {
			wasActive := heater.Active()
			d.Update(uint32(i*1000), DefrostInput{FridgeTemp: temp, OnTemp: -15, OffTemp: 5, HoursLeft: 5, CompressorActive: compressor}, heater)
			if compressor && heater.Active() && !wasActive {
				t.Fatalf("step %d: heater switched on while compressor active", i)
			}
		}
	}
}

type recordingSaver struct {
	saved []uint8
	err   error
}

func (s *recordingSaver) SaveHours(h uint8) error {
	s.saved = append(s.saved, h)
	return s.err
}

func TestHourCounterDecrementsOncePerHour(t *testing.T) {
	clock := timer.NewFakeClock[uint32](0, 0)
	saver := &recordingSaver{}
	c := NewHourCounter(clock, timer.Hour, 24, saver)

	clock.Advance(timer.Hour - 1)
	if changed, _ := c.Tick(); changed {
		t.Error("should not decrement before an hour")
	}
	clock.Advance(1)
	if changed, err := c.Tick(); !changed || err != nil {
		t.Fatalf("expected decrement, got changed=%v err=%v", changed, err)
	}
	if c.Hours() != 23 {
		t.Errorf("Hours: got %d, want 23", c.Hours())
	}
	if changed, _ := c.Tick(); changed {
		t.Error("should decrement only once per hour")
	}
	if len(saver.saved) != 1 || saver.saved[0] != 23 {
		t.Errorf("saved: got %v, want [23]", saver.saved)
	}
}

func TestHourCounterSaturatesAtZero(t *testing.T) {
	clock := timer.NewFakeClock[uint32](0, 0)
	saver := &recordingSaver{}
	c := NewHourCounter(clock, timer.Hour, 1, saver)

	clock.Advance(timer.Hour)
	c.Tick()
	if c.Hours() != 0 {
		t.Fatalf("Hours: got %d, want 0", c.Hours())
	}
	for i := 0; i < 3; i++ {
		clock.Advance(timer.Hour)
		if changed, _ := c.Tick(); changed {
			t.Error("counter at zero must not change")
		}
	}
	if c.Hours() != 0 {
		t.Errorf("Hours: got %d, want 0", c.Hours())
	}
	if len(saver.saved) != 1 {
		t.Errorf("expected one save, got %v", saver.saved)
	}
}

func TestHourCounterResetAndClamp(t *testing.T) {
	clock := timer.NewFakeClock[uint32](0, 0)
	saver := &recordingSaver{}
	c := NewHourCounter(clock, timer.Hour, 200, saver)
	if c.Hours() != 24 {
		t.Errorf("start should clamp to 24, got %d", c.Hours())
	}

	saver.err = errors.New("disk full")
	clock.Advance(timer.Hour)
	changed, err := c.Tick()
	if !changed || err == nil {
		t.Fatalf("expected change with save error, got changed=%v err=%v", changed, err)
	}
	if c.Hours() != 23 {
		t.Errorf("failed save must not roll back, got %d", c.Hours())
	}

	saver.err = nil
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if c.Hours() != 24 {
		t.Errorf("Hours after reset: got %d, want 24", c.Hours())
	}
	if last := saver.saved[len(saver.saved)-1]; last != 24 {
		t.Errorf("last saved: got %d, want 24", last)
	}
}

func TestHourCounterAcrossClockWrap(t *testing.T) {
	clock := timer.NewFakeClock[uint32](^uint32(0)-timer.Minute, 0)
	c := NewHourCounter(clock, timer.Hour, 24, &recordingSaver{})

	clock.Advance(timer.Hour)
	if changed, _ := c.Tick(); !changed {
		t.Error("should decrement one hour later even though the clock wrapped")
	}
}

func TestCompressorDutyForcesRest(t *testing.T) {
	d := NewCompressorDuty(DefaultMaxRun, DefaultForcedRest, DefaultNaturalBreak)

	if !d.Allow(0, true) {
		t.Fatal("should allow at start")
	}
	if !d.Allow(DefaultMaxRun, true) {
		t.Error("should allow at exactly max run")
	}
	if d.Allow(DefaultMaxRun+1, true) {
		t.Fatal("should force rest after max run")
	}
	if !d.Resting() {
		t.Error("expected resting")
	}
	if d.Allow(DefaultMaxRun+1+DefaultForcedRest-1, false) {
		t.Error("rest not over yet")
	}
	if !d.Allow(DefaultMaxRun+1+DefaultForcedRest, false) {
		t.Error("rest should be over")
	}
	if d.Resting() {
		t.Error("should no longer be resting")
	}
}

func TestCompressorDutyNaturalBreakResets(t *testing.T) {
	d := NewCompressorDuty(DefaultMaxRun, DefaultForcedRest, DefaultNaturalBreak)

	d.Allow(0, true)
	d.Allow(3*timer.Hour, false)
	d.Allow(3*timer.Hour+DefaultNaturalBreak, true)
	if !d.Allow(6*timer.Hour, true) {
		t.Error("natural break should have restarted the run clock")
	}
}

func TestCompressorDutyShortStopKeepsClock(t *testing.T) {
	d := NewCompressorDuty(DefaultMaxRun, DefaultForcedRest, DefaultNaturalBreak)

	d.Allow(0, true)
	d.Allow(3*timer.Hour, false)
	d.Allow(3*timer.Hour+timer.Minute, true)
	if d.Allow(4*timer.Hour+timer.Minute, true) {
		t.Error("short stop should not restart the run clock")
	}
}

func TestCompressorDutyDisabled(t *testing.T) {
	d := NewCompressorDuty(0, 0, 0)
	if !d.Allow(100*timer.Hour, true) {
		t.Error("disabled duty should always allow")
	}
}

func TestEventCounts(t *testing.T) {
	var c EventCounts
	for _, typ := range []EventType{EventCompressorOn, EventCompressorOff, EventCompressorOn, EventDefrostOn, EventDefrostOff} {
		c.Add(Event{Type: typ})
	}
	want := EventCounts{CompressorOn: 2, CompressorOff: 1, DefrostOn: 1, DefrostOff: 1}
	if c != want {
		t.Errorf("got %+v, want %+v", c, want)
	}
}
