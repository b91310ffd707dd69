package heatercooler

import (
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// fptr returns a pointer to v for snapshot literals.
func fptr(v float64) *float64 {
	return &v
}

// testLogger records log lines for assertions.
type testLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *testLogger) Debug(string, ...any) {}
func (l *testLogger) Info(string, ...any)  {}

func (l *testLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *testLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *testLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func (l *testLogger) hasWarnContaining(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.warns {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

// rangeSnapshot describes a dual-setpoint unit in Celsius with fan and
// swing support.
func rangeSnapshot() Snapshot {
	return Snapshot{
		DeviceID:   "hvac-living",
		Features:   FeatureTargetRange | FeatureFan | FeatureSwing,
		Modes:      []Mode{ModeHeat, ModeCool, ModeHeatCool},
		FanModes:   []string{"low", "medium", "high"},
		SwingModes: []string{"swing_off", "swing_on"},
		Unit:       UnitCelsius,
		MinTemp:    fptr(7),
		MaxTemp:    fptr(35),
		Step:       fptr(0.5),
	}
}

// ─── Topology ───────────────────────────────────────────────────────────

func TestResolve_RangeTopology(t *testing.T) {
	cfg := resolve(rangeSnapshot(), noopLogger{})

	if cfg.topology != RangeTarget {
		t.Fatalf("topology = %v, want RangeTarget", cfg.topology)
	}
	if !reflect.DeepEqual(cfg.modes.validValues, []int{0, 1, 2}) {
		t.Errorf("validValues = %v, want [0 1 2]", cfg.modes.validValues)
	}
	if cfg.minTemp != 7 || cfg.maxTemp != 35 || cfg.step != 0.5 {
		t.Errorf("bounds = %v/%v/%v, want 7/35/0.5", cfg.minTemp, cfg.maxTemp, cfg.step)
	}

	chars := buildCharacteristics(cfg)
	if chars.cooling == nil || chars.heating == nil {
		t.Error("range topology must expose both threshold characteristics")
	}
}

func TestResolve_RangeWinsOverSingle(t *testing.T) {
	snap := rangeSnapshot()
	snap.Features |= FeatureTargetTemperature

	cfg := resolve(snap, noopLogger{})
	if cfg.topology != RangeTarget {
		t.Errorf("topology = %v, want RangeTarget when both features present", cfg.topology)
	}
}

func TestResolve_NoTemperatureControl(t *testing.T) {
	snap := rangeSnapshot()
	snap.Features = 0

	cfg := resolve(snap, noopLogger{})
	if cfg.topology != NoTemperatureControl {
		t.Fatalf("topology = %v, want NoTemperatureControl", cfg.topology)
	}

	chars := buildCharacteristics(cfg)
	if chars.cooling != nil || chars.heating != nil {
		t.Error("no setpoint feature must expose no threshold characteristics")
	}
	if chars.active == nil || chars.currentState == nil || chars.targetState == nil || chars.currentTemp == nil {
		t.Error("baseline characteristics must always exist")
	}
}

// ─── Single-setpoint slot choice ────────────────────────────────────────

func TestResolve_SingleSlot(t *testing.T) {
	tests := []struct {
		name     string
		modes    []Mode
		wantSlot ThresholdSlot
		wantWarn bool
	}{
		{"cool only uses cooling slot", []Mode{ModeCool}, CoolingSlot, false},
		{"heat only uses heating slot", []Mode{ModeHeat}, HeatingSlot, false},
		{"heat and cool degrade to heating slot", []Mode{ModeHeat, ModeCool}, HeatingSlot, true},
		{"neither heat nor cool uses heating slot", []Mode{ModeAuto}, HeatingSlot, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &testLogger{}
			snap := Snapshot{
				DeviceID: "hvac-single",
				Features: FeatureTargetTemperature,
				Modes:    tt.modes,
				Unit:     UnitCelsius,
			}

			cfg := resolve(snap, logger)
			if cfg.topology != SingleTarget {
				t.Fatalf("topology = %v, want SingleTarget", cfg.topology)
			}
			if cfg.singleSlot != tt.wantSlot {
				t.Errorf("singleSlot = %v, want %v", cfg.singleSlot, tt.wantSlot)
			}
			if got := logger.hasWarnContaining("heating threshold"); got != tt.wantWarn {
				t.Errorf("degraded mapping warn = %v, want %v", got, tt.wantWarn)
			}

			chars := buildCharacteristics(cfg)
			gotCooling := chars.cooling != nil
			if gotCooling != (tt.wantSlot == CoolingSlot) {
				t.Errorf("cooling characteristic present = %v, want %v", gotCooling, tt.wantSlot == CoolingSlot)
			}
			gotHeating := chars.heating != nil
			if gotHeating != (tt.wantSlot == HeatingSlot) {
				t.Errorf("heating characteristic present = %v, want %v", gotHeating, tt.wantSlot == HeatingSlot)
			}
		})
	}
}

// ─── Degraded capability ────────────────────────────────────────────────

func TestResolve_MissingModeList(t *testing.T) {
	logger := &testLogger{}
	snap := rangeSnapshot()
	snap.Modes = nil

	cfg := resolve(snap, logger)

	if logger.errorCount() == 0 {
		t.Error("missing mode list should log an error")
	}
	// Assumed heat/cool/heat_cool still yields the full target-state set.
	if !reflect.DeepEqual(cfg.modes.validValues, []int{0, 1, 2}) {
		t.Errorf("validValues = %v, want [0 1 2]", cfg.modes.validValues)
	}
}

func TestResolve_SubsumptionInValidValues(t *testing.T) {
	snap := rangeSnapshot()
	snap.Modes = []Mode{ModeAuto, ModeHeat, ModeCool, ModeHeatCool}

	cfg := resolve(snap, noopLogger{})

	if !reflect.DeepEqual(cfg.modes.validValues, []int{0, 1, 2}) {
		t.Errorf("validValues = %v, want [0 1 2]", cfg.modes.validValues)
	}
	// Auto owns the 0 slot; the combined mode is gone from the usable set.
	if cfg.modes.toDevice[0] != ModeAuto {
		t.Errorf("toDevice[0] = %q, want auto", cfg.modes.toDevice[0])
	}
	for _, m := range cfg.modes.usable {
		if m == ModeHeatCool {
			t.Error("heat_cool should be subsumed by auto")
		}
	}
}

func TestResolve_SwingPartition(t *testing.T) {
	tests := []struct {
		name       string
		swingModes []string
		wantSwing  bool
		wantOn     string
		wantOff    string
	}{
		{"off and on names", []string{"swing_off", "swing_on"}, true, "swing_on", "swing_off"},
		{"case insensitive off", []string{"OFF", "horizontal"}, true, "horizontal", "OFF"},
		{"no off-like name", []string{"low", "medium", "high"}, false, "", ""},
		{"only off-like names", []string{"off", "also_off"}, false, "", ""},
		{"empty list", nil, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &testLogger{}
			snap := rangeSnapshot()
			snap.SwingModes = tt.swingModes

			cfg := resolve(snap, logger)

			if cfg.hasSwing != tt.wantSwing {
				t.Fatalf("hasSwing = %v, want %v", cfg.hasSwing, tt.wantSwing)
			}
			if !tt.wantSwing {
				if logger.errorCount() == 0 {
					t.Error("failed partition should log an error")
				}
				if chars := buildCharacteristics(cfg); chars.swing != nil {
					t.Error("swing characteristic should be absent")
				}
				return
			}
			if cfg.swingOn != tt.wantOn || cfg.swingOff != tt.wantOff {
				t.Errorf("partition = on %q / off %q, want on %q / off %q",
					cfg.swingOn, cfg.swingOff, tt.wantOn, tt.wantOff)
			}
			if chars := buildCharacteristics(cfg); chars.swing == nil {
				t.Error("swing characteristic should be present")
			}
		})
	}
}

func TestResolve_FanWithoutSpeeds(t *testing.T) {
	logger := &testLogger{}
	snap := rangeSnapshot()
	snap.FanModes = nil

	cfg := resolve(snap, logger)

	if cfg.speeds != nil {
		t.Error("fan feature without speeds should omit the mapper")
	}
	if logger.errorCount() == 0 {
		t.Error("fan feature without speeds should log an error")
	}
	if chars := buildCharacteristics(cfg); chars.rotation != nil {
		t.Error("rotation characteristic should be absent")
	}
}

// ─── Bounds ─────────────────────────────────────────────────────────────

func TestResolveBounds(t *testing.T) {
	tests := []struct {
		name     string
		snap     Snapshot
		wantMin  float64
		wantMax  float64
		wantStep float64
	}{
		{
			name:     "defaults when unreported",
			snap:     Snapshot{Unit: UnitCelsius},
			wantMin:  7, wantMax: 35, wantStep: 0.5,
		},
		{
			name: "celsius bounds rounded to half",
			snap: Snapshot{
				Unit: UnitCelsius, MinTemp: fptr(10.2), MaxTemp: fptr(29.8), Step: fptr(1),
			},
			wantMin: 10, wantMax: 30, wantStep: 1,
		},
		{
			name: "fahrenheit bounds converted",
			snap: Snapshot{
				Unit: UnitFahrenheit, MinTemp: fptr(45), MaxTemp: fptr(90), Step: fptr(1),
			},
			wantMin: 7, wantMax: 32, wantStep: 1,
		},
		{
			name: "zero step falls back",
			snap: Snapshot{Unit: UnitCelsius, Step: fptr(0)},
			wantMin: 7, wantMax: 35, wantStep: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMin, gotMax, gotStep := resolveBounds(tt.snap)
			if math.Abs(gotMin-tt.wantMin) > 1e-9 ||
				math.Abs(gotMax-tt.wantMax) > 1e-9 ||
				math.Abs(gotStep-tt.wantStep) > 1e-9 {
				t.Errorf("bounds = %v/%v/%v, want %v/%v/%v",
					gotMin, gotMax, gotStep, tt.wantMin, tt.wantMax, tt.wantStep)
			}
		})
	}
}

// ─── Initial values ─────────────────────────────────────────────────────

func TestBuildCharacteristics_InitialValues(t *testing.T) {
	cfg := resolve(rangeSnapshot(), noopLogger{})
	chars := buildCharacteristics(cfg)

	if got := chars.active.Int(); got != 1 {
		t.Errorf("initial active = %d, want 1", got)
	}
	if got := chars.currentState.Int(); got != 0 {
		t.Errorf("initial current state = %d, want 0", got)
	}
	if got := chars.currentTemp.Float(); got != 21.0 {
		t.Errorf("initial current temperature = %v, want 21", got)
	}
	if got := chars.cooling.Float(); got != 23.0 {
		t.Errorf("initial cooling threshold = %v, want 23", got)
	}
	if got := chars.heating.Float(); got != 19.0 {
		t.Errorf("initial heating threshold = %v, want 19", got)
	}
	if got := chars.displayUnits.Int(); got != 0 {
		t.Errorf("initial display units = %d, want 0", got)
	}
	if got := chars.targetState.Int(); got != 0 {
		t.Errorf("initial target state = %d, want first valid value 0", got)
	}

	if got := chars.targetState.ValidValues(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("target state valid values = %v, want [0 1 2]", got)
	}

	minV, maxV, step, ok := chars.cooling.Bounds()
	if !ok || minV != 7 || maxV != 35 || step != 0.5 {
		t.Errorf("cooling bounds = %v/%v/%v/%v, want 7/35/0.5/true", minV, maxV, step, ok)
	}

	// Three named speeds spread over the scale in steps of 50.
	if chars.rotation == nil {
		t.Fatal("rotation characteristic missing")
	}
	_, _, rotStep, ok := chars.rotation.Bounds()
	if !ok || rotStep != 50 {
		t.Errorf("rotation step = %v/%v, want 50/true", rotStep, ok)
	}
}
