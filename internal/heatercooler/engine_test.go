package heatercooler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hap/internal/accessory"
)

// testDebounceWindow keeps the async paths fast in tests.
const testDebounceWindow = 25 * time.Millisecond

// captureSink records the commands an engine emits.
type captureSink struct {
	mu   sync.Mutex
	cmds []Command
}

func (s *captureSink) Apply(cmd Command) {
	s.mu.Lock()
	s.cmds = append(s.cmds, cmd)
	s.mu.Unlock()
}

func (s *captureSink) all() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.cmds))
	copy(out, s.cmds)
	return out
}

// waitForCommands polls until the sink holds n commands or the deadline
// passes, then returns what it saw.
func waitForCommands(t *testing.T, s *captureSink, n int) []Command {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := s.all(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	return s.all()
}

// newTestEngine builds an engine with a short debounce window and a
// capture sink.
func newTestEngine(t *testing.T, snap Snapshot) (*Engine, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	e, err := New(Options{
		Snapshot:       snap,
		Sink:           sink,
		DebounceWindow: testDebounceWindow,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e, sink
}

func (e *Engine) char(t *testing.T, typ string) *accessory.Characteristic {
	t.Helper()
	c := e.Service().Characteristic(typ)
	if c == nil {
		t.Fatalf("service has no characteristic %s", typ)
	}
	return c
}

// ─── Construction ───────────────────────────────────────────────────────

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Sink: &captureSink{}})
	if !errors.Is(err, ErrDeviceIDRequired) {
		t.Errorf("missing device id: err = %v, want ErrDeviceIDRequired", err)
	}

	_, err = New(Options{Snapshot: rangeSnapshot()})
	if !errors.Is(err, ErrSinkRequired) {
		t.Errorf("missing sink: err = %v, want ErrSinkRequired", err)
	}
}

func TestEngine_ServiceShape(t *testing.T) {
	e, _ := newTestEngine(t, rangeSnapshot())

	svc := e.Service()
	if svc.Type != accessory.ServiceHeaterCooler {
		t.Errorf("service type = %s, want %s", svc.Type, accessory.ServiceHeaterCooler)
	}

	// Active, current state, target state, current temperature, both
	// thresholds, display units, rotation speed and swing mode.
	if got := len(svc.Characteristics()); got != 9 {
		t.Errorf("characteristic count = %d, want 9", got)
	}
	for _, typ := range []string{
		accessory.TypeActive,
		accessory.TypeCurrentHeaterCoolerState,
		accessory.TypeTargetHeaterCoolerState,
		accessory.TypeCurrentTemperature,
		accessory.TypeCoolingThresholdTemperature,
		accessory.TypeHeatingThresholdTemperature,
		accessory.TypeTemperatureDisplayUnits,
		accessory.TypeRotationSpeed,
		accessory.TypeSwingMode,
	} {
		if svc.Characteristic(typ) == nil {
			t.Errorf("service missing characteristic %s", typ)
		}
	}
}

// ─── Mode and power writes ──────────────────────────────────────────────

func TestEngine_ModeWriteEmitsCommand(t *testing.T) {
	e, sink := newTestEngine(t, rangeSnapshot())
	target := e.char(t, accessory.TypeTargetHeaterCoolerState)

	if err := target.Write(accessory.TargetStateHeat); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmds := sink.all()
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if cmds[0].Kind != CommandSetMode {
		t.Errorf("kind = %s, want %s", cmds[0].Kind, CommandSetMode)
	}
	if cmds[0].DeviceID != "hvac-living" {
		t.Errorf("device id = %s, want hvac-living", cmds[0].DeviceID)
	}
	if got := cmds[0].Params[ParamMode]; got != string(ModeHeat) {
		t.Errorf("mode param = %v, want heat", got)
	}
	if got := target.Int(); got != accessory.TargetStateHeat {
		t.Errorf("target state after write = %d, want %d", got, accessory.TargetStateHeat)
	}
}

func TestEngine_InvalidModeWriteDropped(t *testing.T) {
	snap := rangeSnapshot()
	snap.Modes = []Mode{ModeHeat, ModeCool} // no auto slot
	e, sink := newTestEngine(t, snap)
	target := e.char(t, accessory.TypeTargetHeaterCoolerState)

	if err := target.Write(accessory.TargetStateAuto); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := sink.all(); len(got) != 0 {
		t.Errorf("commands = %v, want none", got)
	}
	if got := e.Stats().InvalidWrites; got != 1 {
		t.Errorf("invalid writes = %d, want 1", got)
	}

	// The drop set no pending flag, so the very next refresh corrects
	// the characteristic.
	e.Refresh(Snapshot{DeviceID: "hvac-living", Mode: ModeCool})
	if got := target.Int(); got != accessory.TargetStateCool {
		t.Errorf("target state after refresh = %d, want %d", got, accessory.TargetStateCool)
	}
}

func TestEngine_PowerOffBypassesModeMapping(t *testing.T) {
	// The device never lists off as a selectable mode, yet power-off
	// must still command it.
	e, sink := newTestEngine(t, rangeSnapshot())
	active := e.char(t, accessory.TypeActive)

	if err := active.Write(accessory.ActiveInactive); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmds := sink.all()
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if cmds[0].Kind != CommandSetMode {
		t.Errorf("kind = %s, want %s", cmds[0].Kind, CommandSetMode)
	}
	if got := cmds[0].Params[ParamMode]; got != string(ModeOff) {
		t.Errorf("mode param = %v, want off", got)
	}

	// The write suppresses the echo for one cycle.
	e.Refresh(Snapshot{DeviceID: "hvac-living", Mode: ModeHeat})
	if got := active.Int(); got != accessory.ActiveInactive {
		t.Errorf("active after suppressed refresh = %d, want 0", got)
	}
	e.Refresh(Snapshot{DeviceID: "hvac-living", Mode: ModeHeat})
	if got := active.Int(); got != accessory.ActiveActive {
		t.Errorf("active after second refresh = %d, want 1", got)
	}
}

func TestEngine_PowerOnReassertsHeldMode(t *testing.T) {
	e, sink := newTestEngine(t, rangeSnapshot())
	target := e.char(t, accessory.TypeTargetHeaterCoolerState)
	active := e.char(t, accessory.TypeActive)

	// Device reported cool before powering off; the target state holds it.
	if err := target.Update(accessory.TargetStateCool); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := active.Write(accessory.ActiveActive); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmds := sink.all()
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if got := cmds[0].Params[ParamMode]; got != string(ModeCool) {
		t.Errorf("mode param = %v, want cool", got)
	}
}

// ─── Echo suppression ───────────────────────────────────────────────────

func TestEngine_EchoSuppressionLastsOneCycle(t *testing.T) {
	e, sink := newTestEngine(t, rangeSnapshot())
	target := e.char(t, accessory.TypeTargetHeaterCoolerState)

	if err := target.Write(accessory.TargetStateHeat); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := sink.all(); len(got) != 1 {
		t.Fatalf("commands = %d, want 1", len(got))
	}

	// First refresh after the write reports the old mode; the stale echo
	// must not clobber the written value.
	e.Refresh(Snapshot{DeviceID: "hvac-living", Mode: ModeCool})
	if got := target.Int(); got != accessory.TargetStateHeat {
		t.Errorf("target state during suppression = %d, want %d", got, accessory.TargetStateHeat)
	}
	if got := e.Stats().SuppressedEchoes; got != 1 {
		t.Errorf("suppressed echoes = %d, want 1", got)
	}

	// Suppression lasts exactly one cycle; from the second refresh the
	// device is authoritative again.
	e.Refresh(Snapshot{DeviceID: "hvac-living", Mode: ModeCool})
	if got := target.Int(); got != accessory.TargetStateCool {
		t.Errorf("target state after suppression = %d, want %d", got, accessory.TargetStateCool)
	}
}

func TestEngine_ThresholdEchoSuppression(t *testing.T) {
	e, sink := newTestEngine(t, rangeSnapshot())
	cooling := e.char(t, accessory.TypeCoolingThresholdTemperature)

	if err := cooling.Write(26.0); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitForCommands(t, sink, 1)

	e.Refresh(Snapshot{DeviceID: "hvac-living", TargetHigh: fptr(30)})
	if got := cooling.Float(); got != 26.0 {
		t.Errorf("cooling during suppression = %v, want 26", got)
	}

	e.Refresh(Snapshot{DeviceID: "hvac-living", TargetHigh: fptr(30)})
	if got := cooling.Float(); got != 30.0 {
		t.Errorf("cooling after suppression = %v, want 30", got)
	}
}

// ─── Debounced setpoint writes ──────────────────────────────────────────

func TestEngine_ThresholdBurstCoalesces(t *testing.T) {
	e, sink := newTestEngine(t, rangeSnapshot())
	cooling := e.char(t, accessory.TypeCoolingThresholdTemperature)

	for _, v := range []float64{24.0, 24.5, 26.0} {
		if err := cooling.Write(v); err != nil {
			t.Fatalf("write %v: %v", v, err)
		}
	}

	cmds := waitForCommands(t, sink, 1)
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if cmds[0].Kind != CommandSetTemperature {
		t.Errorf("kind = %s, want %s", cmds[0].Kind, CommandSetTemperature)
	}
	if got := cmds[0].Params[ParamSetpointHigh]; got != 26.0 {
		t.Errorf("setpoint_high = %v, want last written 26", got)
	}
	// The untouched low bound rides along from the heating characteristic.
	if got := cmds[0].Params[ParamSetpointLow]; got != 19.0 {
		t.Errorf("setpoint_low = %v, want 19", got)
	}

	// No trailing flush after the window settles.
	time.Sleep(3 * testDebounceWindow)
	if got := sink.all(); len(got) != 1 {
		t.Errorf("commands after settle = %d, want 1", len(got))
	}
}

func TestEngine_HeatingFlushCarriesCoolingValue(t *testing.T) {
	e, sink := newTestEngine(t, rangeSnapshot())
	heating := e.char(t, accessory.TypeHeatingThresholdTemperature)

	if err := heating.Write(18.0); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmds := waitForCommands(t, sink, 1)
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if got := cmds[0].Params[ParamSetpointLow]; got != 18.0 {
		t.Errorf("setpoint_low = %v, want 18", got)
	}
	if got := cmds[0].Params[ParamSetpointHigh]; got != 23.0 {
		t.Errorf("setpoint_high = %v, want 23", got)
	}
}

func TestEngine_SingleTargetFlow(t *testing.T) {
	snap := Snapshot{
		DeviceID: "ac-bedroom",
		Features: FeatureTargetTemperature,
		Modes:    []Mode{ModeCool},
		Unit:     UnitCelsius,
	}
	e, sink := newTestEngine(t, snap)

	// Cool-only single setpoint lands on the cooling threshold.
	cooling := e.char(t, accessory.TypeCoolingThresholdTemperature)
	if e.Service().Characteristic(accessory.TypeHeatingThresholdTemperature) != nil {
		t.Fatal("cool-only device should not expose a heating threshold")
	}

	if err := cooling.Write(25.0); err != nil {
		t.Fatalf("write: %v", err)
	}

	// A refresh inside the suppression window leaves the written value.
	e.Refresh(Snapshot{DeviceID: "ac-bedroom", TargetTemperature: fptr(20)})
	if got := cooling.Float(); got != 25.0 {
		t.Errorf("cooling during suppression = %v, want 25", got)
	}

	cmds := waitForCommands(t, sink, 1)
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if cmds[0].Kind != CommandSetTemperature {
		t.Errorf("kind = %s, want %s", cmds[0].Kind, CommandSetTemperature)
	}
	if got := cmds[0].Params[ParamSetpoint]; got != 25.0 {
		t.Errorf("setpoint = %v, want 25", got)
	}
	if _, ok := cmds[0].Params[ParamSetpointLow]; ok {
		t.Error("single-setpoint command should not carry a range bound")
	}

	e.Refresh(Snapshot{DeviceID: "ac-bedroom", TargetTemperature: fptr(20)})
	if got := cooling.Float(); got != 20.0 {
		t.Errorf("cooling after suppression = %v, want 20", got)
	}
}

func TestEngine_RotationSpeedWrite(t *testing.T) {
	e, sink := newTestEngine(t, rangeSnapshot())
	rotation := e.char(t, accessory.TypeRotationSpeed)

	if err := rotation.Write(75.0); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmds := waitForCommands(t, sink, 1)
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if cmds[0].Kind != CommandSetFanMode {
		t.Errorf("kind = %s, want %s", cmds[0].Kind, CommandSetFanMode)
	}
	// 75 on a three-speed scale rounds to the top position.
	if got := cmds[0].Params[ParamFanMode]; got != "high" {
		t.Errorf("fan_mode = %v, want high", got)
	}
}

func TestEngine_SwingWriteImmediate(t *testing.T) {
	e, sink := newTestEngine(t, rangeSnapshot())
	swing := e.char(t, accessory.TypeSwingMode)

	if err := swing.Write(accessory.SwingEnabled); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := swing.Write(accessory.SwingDisabled); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmds := sink.all()
	if len(cmds) != 2 {
		t.Fatalf("commands = %d, want 2", len(cmds))
	}
	if cmds[0].Kind != CommandSetSwingMode || cmds[1].Kind != CommandSetSwingMode {
		t.Errorf("kinds = %s/%s, want set_swing_mode twice", cmds[0].Kind, cmds[1].Kind)
	}
	if got := cmds[0].Params[ParamSwingMode]; got != "swing_on" {
		t.Errorf("first swing param = %v, want swing_on", got)
	}
	if got := cmds[1].Params[ParamSwingMode]; got != "swing_off" {
		t.Errorf("second swing param = %v, want swing_off", got)
	}
}

// ─── Refresh path ───────────────────────────────────────────────────────

func TestEngine_RefreshAppliesFullState(t *testing.T) {
	e, _ := newTestEngine(t, rangeSnapshot())

	e.Refresh(Snapshot{
		DeviceID:           "hvac-living",
		Mode:               ModeCool,
		Action:             ActionCooling,
		CurrentTemperature: fptr(22.5),
		TargetLow:          fptr(18),
		TargetHigh:         fptr(26),
		FanMode:            "high",
		SwingMode:          "swing_on",
		Unit:               UnitCelsius,
	})

	checks := []struct {
		typ  string
		want any
	}{
		{accessory.TypeActive, accessory.ActiveActive},
		{accessory.TypeTargetHeaterCoolerState, accessory.TargetStateCool},
		{accessory.TypeCurrentHeaterCoolerState, accessory.CurrentStateCooling},
		{accessory.TypeCurrentTemperature, 22.5},
		{accessory.TypeCoolingThresholdTemperature, 26.0},
		{accessory.TypeHeatingThresholdTemperature, 18.0},
		{accessory.TypeRotationSpeed, 100.0},
		{accessory.TypeSwingMode, accessory.SwingEnabled},
		{accessory.TypeTemperatureDisplayUnits, accessory.UnitsCelsius},
	}
	for _, c := range checks {
		if got := e.char(t, c.typ).Value(); got != c.want {
			t.Errorf("characteristic %s = %v, want %v", c.typ, got, c.want)
		}
	}
	if got := e.Stats().Refreshes; got != 1 {
		t.Errorf("refreshes = %d, want 1", got)
	}
}

func TestEngine_RefreshOffModes(t *testing.T) {
	for _, mode := range []Mode{ModeOff, ModeDry} {
		t.Run(string(mode), func(t *testing.T) {
			e, _ := newTestEngine(t, rangeSnapshot())
			target := e.char(t, accessory.TypeTargetHeaterCoolerState)
			active := e.char(t, accessory.TypeActive)

			// Establish a target state, then report the powered-down mode.
			e.Refresh(Snapshot{DeviceID: "hvac-living", Mode: ModeHeat})
			e.Refresh(Snapshot{DeviceID: "hvac-living", Mode: mode})

			if got := active.Int(); got != accessory.ActiveInactive {
				t.Errorf("active = %d, want 0", got)
			}
			// No target-state mapping exists for the mode; the last one
			// stands.
			if got := target.Int(); got != accessory.TargetStateHeat {
				t.Errorf("target state = %d, want %d", got, accessory.TargetStateHeat)
			}
		})
	}
}

func TestEngine_RefreshSkipsUnknownFanMode(t *testing.T) {
	e, _ := newTestEngine(t, rangeSnapshot())
	rotation := e.char(t, accessory.TypeRotationSpeed)

	e.Refresh(Snapshot{DeviceID: "hvac-living", FanMode: "medium"})
	if got := rotation.Float(); got != 50.0 {
		t.Fatalf("rotation = %v, want 50", got)
	}

	// A name outside the construction-time list must not zero the dial.
	e.Refresh(Snapshot{DeviceID: "hvac-living", FanMode: "turbo"})
	if got := rotation.Float(); got != 50.0 {
		t.Errorf("rotation after unknown mode = %v, want 50", got)
	}
}

func TestEngine_RefreshPartialSnapshot(t *testing.T) {
	e, _ := newTestEngine(t, rangeSnapshot())

	// Only the ambient temperature arrives; everything else keeps its
	// value.
	e.Refresh(Snapshot{DeviceID: "hvac-living", CurrentTemperature: fptr(19.5)})

	if got := e.char(t, accessory.TypeCurrentTemperature).Float(); got != 19.5 {
		t.Errorf("current temperature = %v, want 19.5", got)
	}
	if got := e.char(t, accessory.TypeCoolingThresholdTemperature).Float(); got != 23.0 {
		t.Errorf("cooling threshold = %v, want initial 23", got)
	}
	if got := e.char(t, accessory.TypeActive).Int(); got != accessory.ActiveActive {
		t.Errorf("active = %d, want initial 1", got)
	}
}

func TestEngine_FahrenheitDevice(t *testing.T) {
	snap := Snapshot{
		DeviceID: "hvac-imperial",
		Features: FeatureTargetRange,
		Modes:    []Mode{ModeHeat, ModeCool},
		Unit:     UnitFahrenheit,
		MinTemp:  fptr(45),
		MaxTemp:  fptr(95),
		Step:     fptr(1),
	}
	e, sink := newTestEngine(t, snap)

	e.Refresh(Snapshot{
		DeviceID:           "hvac-imperial",
		Unit:               UnitFahrenheit,
		CurrentTemperature: fptr(75),
		TargetHigh:         fptr(76),
	})

	if got := e.char(t, accessory.TypeCurrentTemperature).Float(); got != 24.0 {
		t.Errorf("current temperature = %v, want 24", got)
	}
	cooling := e.char(t, accessory.TypeCoolingThresholdTemperature)
	if got := cooling.Float(); got != 24.5 {
		t.Errorf("cooling threshold = %v, want 24.5", got)
	}
	if got := e.char(t, accessory.TypeTemperatureDisplayUnits).Int(); got != accessory.UnitsFahrenheit {
		t.Errorf("display units = %d, want fahrenheit", got)
	}

	// Commands land back on the device's own scale and step grid.
	if err := cooling.Write(24.5); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmds := waitForCommands(t, sink, 1)
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if got := cmds[0].Params[ParamSetpointHigh]; got != 76.0 {
		t.Errorf("setpoint_high = %v, want 76", got)
	}
	if got := cmds[0].Params[ParamSetpointLow]; got != 66.0 {
		t.Errorf("setpoint_low = %v, want 66", got)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────────

func TestEngine_CloseCancelsPendingCommands(t *testing.T) {
	e, sink := newTestEngine(t, rangeSnapshot())
	cooling := e.char(t, accessory.TypeCoolingThresholdTemperature)

	if err := cooling.Write(25.0); err != nil {
		t.Fatalf("write: %v", err)
	}
	e.Close()

	time.Sleep(3 * testDebounceWindow)
	if got := sink.all(); len(got) != 0 {
		t.Errorf("commands after close = %v, want none", got)
	}
}

func TestEngine_DroppedAfterClose(t *testing.T) {
	e, sink := newTestEngine(t, rangeSnapshot())
	e.Close()

	e.SetTargetState(accessory.TargetStateHeat)
	e.Refresh(Snapshot{DeviceID: "hvac-living", Mode: ModeCool})

	if got := sink.all(); len(got) != 0 {
		t.Errorf("commands after close = %v, want none", got)
	}
	stats := e.Stats()
	if stats.Refreshes != 0 || stats.CommandsSent != 0 {
		t.Errorf("stats after close = %+v, want zeroes", stats)
	}
	if got := e.char(t, accessory.TypeTargetHeaterCoolerState).Int(); got != 0 {
		t.Errorf("target state after closed refresh = %d, want initial 0", got)
	}
}

func TestEngine_Stats(t *testing.T) {
	e, _ := newTestEngine(t, rangeSnapshot())

	// One command with its suppressed echo, one invalid write, two
	// refreshes.
	e.SetTargetState(accessory.TargetStateHeat)
	e.Refresh(Snapshot{DeviceID: "hvac-living", Mode: ModeCool})
	e.SetTargetState(9)
	e.Refresh(Snapshot{DeviceID: "hvac-living", Mode: ModeCool})

	want := Stats{Refreshes: 2, SuppressedEchoes: 1, InvalidWrites: 1, CommandsSent: 1}
	if got := e.Stats(); got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}
