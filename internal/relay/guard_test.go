package relay

import (
	"errors"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"github.com/sweeney/fridge-controller/internal/gpio"
	"github.com/sweeney/fridge-controller/internal/logic"
	"github.com/sweeney/fridge-controller/internal/timer"
)

var _ logic.Switch = (*Guard)(nil)

func newTestGuard(interval uint32) (*Guard, *gpio.FakeOutput, *timer.FakeClock[uint32]) {
	out := gpio.NewFakeOutput()
	clock := timer.NewFakeClock[uint32](0, 0)
	return NewGuard("test", out, clock, interval, zap.NewNop().Sugar()), out, clock
}

func TestGuardFirstChangeHonored(t *testing.T) {
	g, out, _ := newTestGuard(CompressorInterval)

	if !g.Set(true) {
		t.Fatal("first change should be honored")
	}
	if !g.Active() || !out.Level {
		t.Error("relay should be on")
	}
	if g.Pending() {
		t.Error("should not be pending after applied change")
	}
}

func TestGuardSuppressesEarlyChange(t *testing.T) {
	g, out, clock := newTestGuard(CompressorInterval)
	g.Set(true)

	clock.Advance(CompressorInterval - 1)
	if g.Set(false) {
		t.Fatal("change inside interval should be suppressed")
	}
	if !g.Active() {
		t.Error("relay should still be on")
	}
	if !g.Pending() {
		t.Error("suppressed request should be pending")
	}
	if g.Suppressed() != 1 {
		t.Errorf("Suppressed: got %d, want 1", g.Suppressed())
	}

	clock.Advance(1)
	if !g.Set(false) {
		t.Fatal("change at interval should be honored")
	}
	if g.Pending() {
		t.Error("pending should clear once applied")
	}
	if len(out.Writes) != 2 {
		t.Errorf("writes: got %v, want 2", out.Writes)
	}
}

func TestGuardSameStateIsNoop(t *testing.T) {
	g, out, clock := newTestGuard(HeaterInterval)
	g.Set(true)
	clock.Advance(1)
	g.Set(false) // suppressed

	if g.Set(true) {
		t.Error("request for current state should not change anything")
	}
	if g.Pending() {
		t.Error("request matching current state should withdraw pending")
	}
	if len(out.Writes) != 1 {
		t.Errorf("writes: got %v, want 1", out.Writes)
	}
}

func TestGuardWriteErrorNotApplied(t *testing.T) {
	g, out, _ := newTestGuard(HeaterInterval)
	out.SetError = errors.New("bus error")

	if g.Set(true) {
		t.Fatal("failed write should not report a change")
	}
	if g.Active() {
		t.Error("relay state should not change on write error")
	}

	out.SetError = nil
	if !g.Set(true) {
		t.Error("retry after error should be honored")
	}
}

func TestGuardAcrossClockWrap(t *testing.T) {
	out := gpio.NewFakeOutput()
	clock := timer.NewFakeClock[uint32](^uint32(0)-100, 0)
	g := NewGuard("wrap", out, clock, 1000, zap.NewNop().Sugar())

	g.Set(true)
	clock.Advance(999)
	if g.Set(false) {
		t.Error("999 ticks across the wrap should be suppressed")
	}
	clock.Advance(1)
	if !g.Set(false) {
		t.Error("1000 ticks across the wrap should be honored")
	}
}

func TestGuardAppliedTogglesSeparated(t *testing.T) {
	const interval = 500
	g, _, clock := newTestGuard(interval)
	rng := rand.New(rand.NewSource(42))

	var changes []uint32
	for i := 0; i < 5000; i++ {
		clock.Advance(uint32(rng.Intn(120)))
		if g.Set(rng.Intn(2) == 0) {
			changes = append(changes, clock.Now())
		}
	}
	if len(changes) < 2 {
		t.Fatalf("expected several applied changes, got %d", len(changes))
	}
	for i := 1; i < len(changes); i++ {
		if d := changes[i] - changes[i-1]; d < interval {
			t.Fatalf("changes %d and %d only %d ticks apart", i-1, i, d)
		}
	}
	if g.Applied() != uint64(len(changes)) {
		t.Errorf("Applied: got %d, want %d", g.Applied(), len(changes))
	}
}
