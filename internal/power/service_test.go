package power

import (
	"errors"
	"testing"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/board"
	"github.com/KevinKickass/OpenPowerCore/internal/gpio"
	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"github.com/KevinKickass/OpenPowerCore/internal/wakeout"
	"go.uber.org/zap/zaptest"
)

func intPtr(v int) *int { return &v }

func uint32Ptr(v uint32) *uint32 { return &v }

func testProfile() *types.BoardProfile {
	rail := func(pin uint32) types.VregConfig {
		return types.VregConfig{Name: "v", Rails: []types.RailConfig{{GPIO: pin, HoldTimeUs: 100, ActiveHigh: true}}}
	}
	return &types.BoardProfile{
		Board: types.BoardInfo{Name: "test", WakeoutPulseUs: 30000},
		Interfaces: []types.InterfaceConfig{
			{
				Name:     "mod1",
				Type:     types.InterfaceTypeModulePort2,
				Order:    types.InterfaceOrderPrimary,
				Vsys:     rail(1),
				Refclk:   rail(2),
				WakeGPIO: uint32Ptr(3),
				Detect:   &types.DetectConfig{GPIO: 4, ActiveHigh: true},
			},
			{
				Name:       "apb1",
				SwitchPort: intPtr(7),
				Type:       types.InterfaceTypePlain,
				Vsys:       rail(10),
				Refclk:     rail(11),
			},
			{
				Name:   "apb2",
				Type:   types.InterfaceTypePlain,
				Vsys:   rail(20),
				Refclk: rail(21),
			},
		},
	}
}

type recorder struct {
	holds []time.Duration
}

func (r *recorder) sleep(d time.Duration) { r.holds = append(r.holds, d) }

func newTestService(t *testing.T) (*Service, *gpio.Sim, *recorder) {
	t.Helper()
	sim := gpio.NewSim()
	rec := &recorder{}
	reg, err := board.NewRegistry(testProfile(), sim, board.WithSleep(rec.sleep))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	sim.ResetWrites()
	return NewService(reg, wakeout.UseDefault, zaptest.NewLogger(t)), sim, rec
}

func TestIsAllTarget(t *testing.T) {
	tests := map[string]bool{"all": true, "ALL": true, "All": false, "apb1": false, "": false}
	for in, want := range tests {
		if got := IsAllTarget(in); got != want {
			t.Errorf("IsAllTarget(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetPowerSingle(t *testing.T) {
	svc, _, _ := newTestService(t)

	var events []PowerEvent
	svc.Subscribe(func(ev PowerEvent) { events = append(events, ev) })

	if err := svc.SetPower("apb1", true); err != nil {
		t.Fatalf("power on: %v", err)
	}
	if err := svc.SetPower("apb1", true); err != nil {
		t.Fatalf("power on: %v", err)
	}

	iface, _ := svc.Registry().LookupByName("apb1")
	if iface.Vsys().UseCount() != 2 {
		t.Errorf("expected use count 2, got %d", iface.Vsys().UseCount())
	}
	if len(events) != 2 || events[1].VsysUseCount != 2 || !events[1].On {
		t.Errorf("unexpected events %+v", events)
	}
	if events[0].PreviousVsysUseCount != 0 || events[1].PreviousVsysUseCount != 1 || events[1].PreviousRefclkUseCount != 1 {
		t.Errorf("unexpected previous counts %+v", events)
	}

	if err := svc.SetPower("nope", true); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if len(events) != 2 {
		t.Error("failed call must not publish")
	}
}

func TestSetPowerAllShortCircuits(t *testing.T) {
	svc, sim, _ := newTestService(t)
	sim.FailWrites(10, errors.New("stuck"))

	err := svc.SetPower("ALL", true)
	if !errors.Is(err, types.ErrHardwareFault) {
		t.Fatalf("expected hardware fault, got %v", err)
	}

	mod1, _ := svc.Registry().LookupByName("mod1")
	apb2, _ := svc.Registry().LookupByName("apb2")
	if mod1.Vsys().UseCount() != 1 {
		t.Error("interfaces before the failure stay powered")
	}
	if apb2.Vsys().UseCount() != 0 {
		t.Error("interfaces after the failure must not be attempted")
	}
	for _, w := range sim.Writes() {
		if w.Pin == 20 || w.Pin == 21 {
			t.Errorf("apb2 rail %d was touched", w.Pin)
		}
	}
}

func TestSetPowerOffMisuse(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.SetPower("apb2", false); !errors.Is(err, types.ErrMisuse) {
		t.Errorf("expected misuse, got %v", err)
	}
}

func TestWakeoutLength(t *testing.T) {
	svc, sim, rec := newTestService(t)

	if svc.WakeoutLength() != wakeout.UseDefault {
		t.Errorf("unexpected initial length %d", svc.WakeoutLength())
	}
	if svc.EffectiveWakeoutLength() != 30*time.Millisecond {
		t.Errorf("unexpected effective length %s", svc.EffectiveWakeoutLength())
	}

	if err := svc.Wakeout("mod1", nil); err != nil {
		t.Fatalf("wakeout: %v", err)
	}
	if err := svc.SetWakeoutLength(500); err != nil {
		t.Fatalf("set length: %v", err)
	}
	if err := svc.Wakeout("mod1", nil); err != nil {
		t.Fatalf("wakeout: %v", err)
	}
	if err := svc.Wakeout("mod1", intPtr(250)); err != nil {
		t.Fatalf("wakeout: %v", err)
	}

	want := []time.Duration{30 * time.Millisecond, 500 * time.Microsecond, 250 * time.Microsecond}
	if len(rec.holds) != len(want) {
		t.Fatalf("expected holds %v, got %v", want, rec.holds)
	}
	for i := range want {
		if rec.holds[i] != want[i] {
			t.Errorf("pulse %d: expected %s, got %s", i, want[i], rec.holds[i])
		}
	}
	if len(sim.Writes()) != 6 {
		t.Errorf("expected 3 pulses, got writes %v", sim.Writes())
	}
}

func TestWakeoutAllStopsAtUnsupported(t *testing.T) {
	svc, sim, _ := newTestService(t)

	if err := svc.Wakeout("all", intPtr(500)); !errors.Is(err, types.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	// mod1 is first in registration order and pulses; apb1 then fails.
	if len(sim.Writes()) != 2 {
		t.Errorf("expected only mod1's pulse, got %v", sim.Writes())
	}
}

func TestDumpState(t *testing.T) {
	svc, _, _ := newTestService(t)

	all, err := svc.DumpState("all")
	if err != nil {
		t.Fatalf("dumpstate: %v", err)
	}
	if len(all) != 3 || all[0].Name != "mod1" || all[2].Name != "apb2" {
		t.Fatalf("unexpected snapshots %+v", all)
	}

	one, err := svc.DumpState("apb1")
	if err != nil {
		t.Fatalf("dumpstate: %v", err)
	}
	if len(one) != 1 || one[0].InterfaceID == nil || *one[0].InterfaceID != 2 {
		t.Errorf("unexpected apb1 snapshot %+v", one)
	}

	if _, err := svc.DumpState("missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListAndPorts(t *testing.T) {
	svc, _, _ := newTestService(t)

	list := svc.ListInterfaces()
	if len(list) != 3 || !list[0].ModulePort || list[1].SwitchPort == nil || *list[1].SwitchPort != 7 {
		t.Errorf("unexpected listing %+v", list)
	}

	id, err := svc.LookupIDByPort(7)
	if err != nil || id != 2 {
		t.Errorf("port 7: id=%d err=%v", id, err)
	}
	if _, err := svc.LookupIDByPort(8); !errors.Is(err, types.ErrNoMapping) {
		t.Errorf("expected no mapping, got %v", err)
	}
}

func TestWakeoutLengthLimit(t *testing.T) {
	sim := gpio.NewSim()
	reg, err := board.NewRegistry(testProfile(), sim, board.WithSleep(func(time.Duration) {}))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	sim.ResetWrites()
	svc := NewService(reg, wakeout.UseDefault, zaptest.NewLogger(t), WithMaxWakeoutLength(1000))

	if svc.MaxWakeoutLength() != 1000 {
		t.Fatalf("unexpected max %d", svc.MaxWakeoutLength())
	}

	if err := svc.Wakeout("mod1", intPtr(1001)); !errors.Is(err, types.ErrInvalidLength) {
		t.Errorf("expected invalid length, got %v", err)
	}
	if err := svc.SetWakeoutLength(2147483647); !errors.Is(err, types.ErrInvalidLength) {
		t.Errorf("expected invalid length, got %v", err)
	}
	if svc.WakeoutLength() != wakeout.UseDefault {
		t.Errorf("rejected length was stored: %d", svc.WakeoutLength())
	}
	if len(sim.Writes()) != 0 {
		t.Errorf("rejected wakeout drove the line: %v", sim.Writes())
	}

	if err := svc.SetWakeoutLength(1000); err != nil {
		t.Errorf("length at the maximum: %v", err)
	}
	if err := svc.Wakeout("mod1", intPtr(0)); err != nil {
		t.Errorf("board default: %v", err)
	}

	if NewService(reg, wakeout.UseDefault, zaptest.NewLogger(t), WithMaxWakeoutLength(0)).MaxWakeoutLength() != DefaultMaxWakeoutLengthUs {
		t.Error("zero max must keep the default")
	}
}
